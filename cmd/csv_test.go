package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-master/internal/model"
)

func TestParseLeadsCSV(t *testing.T) {
	csv := `name,summary,sector_tags,status,hq_address,website
Acme Corp,Building a plant in Ohio,manufacturing; logistics,Qualified,"100 Main St, Columbus, OH",https://acme.example.com
Beta Inc,,,,,
`
	leads, err := parseLeadsCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, leads, 2)

	acme := leads[0]
	assert.Equal(t, "Acme Corp", acme.Name)
	assert.Equal(t, []string{"manufacturing", "logistics"}, acme.SectorTags)
	assert.Equal(t, model.LeadStatusQualified, acme.Status)
	assert.Equal(t, "100 Main St, Columbus, OH", acme.HQAddress)

	beta := leads[1]
	assert.Equal(t, "Beta Inc", beta.Name)
	assert.Equal(t, model.LeadStatusNew, beta.Status, "status defaults to New")
	assert.Empty(t, beta.SectorTags)
}

func TestParseLeadsCSVSkipsBlankNames(t *testing.T) {
	csv := "name,notes\n,orphan row\nGamma LLC,kept\n"
	leads, err := parseLeadsCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Gamma LLC", leads[0].Name)
}

func TestParseLeadsCSVMissingNameColumn(t *testing.T) {
	_, err := parseLeadsCSV(strings.NewReader("company,notes\nAcme,hello\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scan", "permits", "serve", "import", "export", "geocode-backfill", "keywords", "migrate"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestCommandFlags(t *testing.T) {
	file := importCmd.Flags().Lookup("file")
	require.NotNil(t, file, "import takes --file")

	out := exportCmd.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "o", out.Shorthand)
}
