package main

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-master/internal/model"
)

// parseLeadsCSV reads leads from a CSV with a header row. Recognized
// columns: name (required), summary, sector_tags (semicolon-separated),
// status, hq_address, phone, website, next_touch, notes.
func parseLeadsCSV(r io.Reader) ([]model.Lead, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, eris.New("csv is missing required column: name")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var leads []model.Lead
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv record")
		}

		name := field(record, "name")
		if name == "" {
			continue
		}

		status := model.LeadStatus(field(record, "status"))
		if status == "" {
			status = model.LeadStatusNew
		}

		var tags []string
		if raw := field(record, "sector_tags"); raw != "" {
			for _, t := range strings.Split(raw, ";") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}

		now := time.Now().UTC()
		leads = append(leads, model.Lead{
			Name:       name,
			Summary:    field(record, "summary"),
			SectorTags: tags,
			Status:     status,
			HQAddress:  field(record, "hq_address"),
			Phone:      field(record, "phone"),
			Website:    field(record, "website"),
			NextTouch:  field(record, "next_touch"),
			Notes:      field(record, "notes"),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return leads, nil
}
