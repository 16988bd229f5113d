package report

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-master/internal/model"
)

func sampleLeads() []model.Lead {
	return []model.Lead{
		{
			Name:       "Acme Corp",
			Summary:    "Acme is building a plant in Ohio.",
			SectorTags: []string{"manufacturing", "logistics"},
			Status:     model.LeadStatusQualified,
			HQAddress:  "100 Main St, Columbus, OH",
			Website:    "https://acme.example.com",
			Contacts: []model.Contact{
				{Name: "Pat Doe", Email: "pat@acme.example.com"},
			},
			NextTouch: "2026-09-01",
		},
		{
			Name:   "Beta Logistics",
			Status: model.LeadStatusNew,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":     FormatPDF,
		"pdf":  FormatPDF,
		"PDF":  FormatPDF,
		"xlsx": FormatXLSX,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("docx")
	require.Error(t, err)
}

func TestFormatFilename(t *testing.T) {
	now := time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, "lead-report-2026-08-31.pdf", FormatPDF.Filename(now))
	assert.Equal(t, "lead-report-2026-08-31.xlsx", FormatXLSX.Filename(now))
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, sampleLeads()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

// The PDF uses the cp1252 core fonts, so any text outside ASCII would
// render as mojibake. Decompress the content streams and check.
func TestWritePDFTextIsASCII(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, sampleLeads()))

	text := decodePDFStreams(t, buf.Bytes())
	assert.Contains(t, text, "Generated")
	assert.Contains(t, text, "- 2 leads")
	for i := 0; i < len(text); i++ {
		require.Less(t, text[i], byte(0x80), "non-ASCII byte in PDF text at offset %d", i)
	}
}

func decodePDFStreams(t *testing.T, pdf []byte) string {
	t.Helper()
	var out bytes.Buffer
	rest := pdf
	for {
		start := bytes.Index(rest, []byte("stream\n"))
		if start < 0 {
			break
		}
		rest = rest[start+len("stream\n"):]
		end := bytes.Index(rest, []byte("endstream"))
		if end < 0 {
			break
		}
		if r, err := zlib.NewReader(bytes.NewReader(rest[:end])); err == nil {
			_, _ = io.Copy(&out, r)
			_ = r.Close()
		}
		rest = rest[end+len("endstream"):]
	}
	require.Positive(t, out.Len())
	return out.String()
}

func TestWritePDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleLeads()))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "Leads", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Name", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Acme Corp", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Qualified", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "manufacturing, logistics", sheet.Rows[1].Cells[2].String())
	assert.Equal(t, "Pat Doe <pat@acme.example.com>", sheet.Rows[1].Cells[7].String())
	assert.Equal(t, "Beta Logistics", sheet.Rows[2].Cells[0].String())
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Write(&buf, Format("docx"), nil))
}
