package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAnySector(t *testing.T) {
	lead := Lead{Name: "Acme Cold Chain", SectorTags: []string{"cold storage", "logistics"}}

	assert.True(t, lead.HasAnySector(nil), "empty filter matches everything")
	assert.True(t, lead.HasAnySector([]string{"logistics"}))
	assert.True(t, lead.HasAnySector([]string{"manufacturing", "cold storage"}))
	assert.False(t, lead.HasAnySector([]string{"manufacturing"}))

	untagged := Lead{Name: "Bare"}
	assert.True(t, untagged.HasAnySector(nil))
	assert.False(t, untagged.HasAnySector([]string{"logistics"}))
}

func TestHashURL(t *testing.T) {
	a := HashURL("https://example.com/story")
	b := HashURL("https://example.com/story")
	c := HashURL("https://example.com/other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestSignalHasLocation(t *testing.T) {
	lat, lon := 41.88, -87.63
	assert.True(t, Signal{Latitude: &lat, Longitude: &lon}.HasLocation())
	assert.False(t, Signal{Latitude: &lat}.HasLocation())
	assert.False(t, Signal{}.HasLocation())
}
