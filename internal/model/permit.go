package model

import "time"

// PermitAlert is a building-permit headline from the hybrid national +
// county feed. Src is "national" or the county domain the feed is scoped to.
type PermitAlert struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"` // yyyymmdd
	Src   string `json:"src"`
}

// KeywordCache holds the LLM-expanded keyword set and when it was refreshed.
type KeywordCache struct {
	Keywords []string  `json:"keywords"`
	Updated  time.Time `json:"updated"`
}
