// Package report renders lead reports as PDF or XLSX workbooks for
// handoff to the sales team.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-master/internal/model"
)

// Format selects the report output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format string from a flag or query parameter.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "pdf":
		return FormatPDF, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("report: unknown format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// Filename returns a dated download name for the format.
func (f Format) Filename(now time.Time) string {
	return fmt.Sprintf("lead-report-%s.%s", now.UTC().Format("2006-01-02"), string(f))
}

// Write renders the leads in the given format.
func Write(w io.Writer, format Format, leads []model.Lead) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, leads)
	case FormatPDF:
		return writePDF(w, leads)
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

func writePDF(w io.Writer, leads []model.Lead) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Lead Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Lead Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s - %d leads", time.Now().UTC().Format("2006-01-02"), len(leads)))
	pdf.Ln(10)

	for _, lead := range leads {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, lead.Name)
		pdf.Ln(6)

		pdf.SetFont("Helvetica", "", 9)
		pdf.Cell(0, 5, fmt.Sprintf("Status: %s", lead.Status))
		pdf.Ln(5)
		if len(lead.SectorTags) > 0 {
			pdf.Cell(0, 5, fmt.Sprintf("Sectors: %s", strings.Join(lead.SectorTags, ", ")))
			pdf.Ln(5)
		}
		if lead.HQAddress != "" {
			pdf.Cell(0, 5, fmt.Sprintf("HQ: %s", lead.HQAddress))
			pdf.Ln(5)
		}
		if lead.Website != "" {
			pdf.Cell(0, 5, lead.Website)
			pdf.Ln(5)
		}
		if lead.Summary != "" {
			pdf.MultiCell(0, 5, lead.Summary, "", "L", false)
		}
		if lead.NextTouch != "" {
			pdf.Cell(0, 5, fmt.Sprintf("Next touch: %s", lead.NextTouch))
			pdf.Ln(5)
		}
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return eris.Wrap(err, "report: render pdf")
	}
	return nil
}

var xlsxHeader = []string{
	"Name", "Status", "Sectors", "Summary", "HQ Address",
	"Phone", "Website", "Contacts", "Next Touch", "Notes",
}

func writeXLSX(w io.Writer, leads []model.Lead) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, lead := range leads {
		row := sheet.AddRow()
		row.AddCell().SetString(lead.Name)
		row.AddCell().SetString(string(lead.Status))
		row.AddCell().SetString(strings.Join(lead.SectorTags, ", "))
		row.AddCell().SetString(lead.Summary)
		row.AddCell().SetString(lead.HQAddress)
		row.AddCell().SetString(lead.Phone)
		row.AddCell().SetString(lead.Website)
		row.AddCell().SetString(formatContacts(lead.Contacts))
		row.AddCell().SetString(lead.NextTouch)
		row.AddCell().SetString(lead.Notes)
	}

	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "report: render xlsx")
	}
	return nil
}

func formatContacts(contacts []model.Contact) string {
	parts := make([]string, 0, len(contacts))
	for _, c := range contacts {
		p := c.Name
		if c.Email != "" {
			p += " <" + c.Email + ">"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "; ")
}
