package model

import "time"

// LeadStatus represents where a lead sits in the outreach funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "New"
	LeadStatusContacted LeadStatus = "Contacted"
	LeadStatusQualified LeadStatus = "Qualified"
	LeadStatusWon       LeadStatus = "Won"
	LeadStatusLost      LeadStatus = "Lost"
)

// Contact is a person attached to a lead.
type Contact struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Lead represents a tracked company prospect.
type Lead struct {
	Name       string     `json:"name"`
	Summary    string     `json:"summary,omitempty"`
	SectorTags []string   `json:"sector_tags,omitempty"`
	Status     LeadStatus `json:"status"`
	HQAddress  string     `json:"hq_address,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Website    string     `json:"website,omitempty"`
	LogoURL    string     `json:"logo_url,omitempty"`
	Facilities []string   `json:"facilities,omitempty"`
	Contacts   []Contact  `json:"contacts,omitempty"`
	NextTouch  string     `json:"next_touch,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HasAnySector reports whether the lead carries at least one of the given tags.
func (l Lead) HasAnySector(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range l.SectorTags {
			if have == want {
				return true
			}
		}
	}
	return false
}
