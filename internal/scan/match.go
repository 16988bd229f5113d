package scan

import "strings"

// HeadlineMatches reports whether any keyword appears in the headline,
// case-insensitively.
func HeadlineMatches(headline string, keywords []string) bool {
	low := strings.ToLower(headline)
	for _, kw := range keywords {
		if strings.Contains(low, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

var landPhrases = []string{
	"buys land",
	"acquires land",
	"land purchase",
	"acquire site",
	"acquires site",
	"acres",
}

// LandFlag reports whether the headline indicates a land acquisition
// rather than work on an existing facility.
func LandFlag(headline string) bool {
	low := strings.ToLower(headline)
	for _, p := range landPhrases {
		if strings.Contains(low, p) {
			return true
		}
	}
	return false
}

var sectorHints = []struct {
	phrase string
	sector string
}{
	{"cold storage", "food & beverage"},
	{"food", "food & beverage"},
	{"beverage", "food & beverage"},
	{"distribution center", "logistics"},
	{"warehouse", "logistics"},
	{"logistics", "logistics"},
	{"data center", "technology"},
	{"semiconductor", "technology"},
	{"chip", "technology"},
	{"battery", "energy"},
	{"solar", "energy"},
	{"pharma", "life sciences"},
	{"biotech", "life sciences"},
	{"automotive", "automotive"},
	{"ev plant", "automotive"},
	{"steel", "metals"},
	{"aluminum", "metals"},
}

// GuessSector maps a headline to a coarse sector label, or "" when no
// hint matches. First hint wins.
func GuessSector(headline string) string {
	low := strings.ToLower(headline)
	for _, h := range sectorHints {
		if strings.Contains(low, h.phrase) {
			return h.sector
		}
	}
	return ""
}
