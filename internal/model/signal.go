package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SignalSource labels where a signal came from.
type SignalSource string

const (
	SignalSourceScan   SignalSource = "scan"
	SignalSourcePermit SignalSource = "permit"
	SignalSourceManual SignalSource = "manual"
)

// Signal is a single headline or data point tied to a company, fetched by
// the daily scan. Date is the publication day in yyyymmdd form, matching
// the GDELT seendate prefix.
type Signal struct {
	ID          string       `json:"id"`
	Company     string       `json:"company"`
	Date        string       `json:"date"`
	Headline    string       `json:"headline"`
	URL         string       `json:"url"`
	URLHash     string       `json:"url_hash"`
	SourceLabel SignalSource `json:"source_label"`
	LandFlag    bool         `json:"land_flag"`
	SectorGuess string       `json:"sector_guess,omitempty"`
	Latitude    *float64     `json:"lat,omitempty"`
	Longitude   *float64     `json:"lon,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// HasLocation reports whether both coordinates are set.
func (s Signal) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// HashURL returns the canonical sha256 hex digest used to dedup signals
// and key cached summaries.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
