package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJurisdiction(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"uae long form", "This Agreement is governed by the laws of the United Arab Emirates.", "UAE"},
		{"us state", "governed by the laws of the State of Delaware, without regard to conflicts", "Delaware, USA"},
		{"construed in accordance", "governed by and construed in accordance with the laws of England and Wales.", "UK"},
		{"courts of", "subject to the exclusive jurisdiction of the courts of Singapore.", "Singapore"},
		{"law shall govern", "This Agreement and English law shall govern all disputes.", "UK"},
		{"governed by x law", "The contract is governed by German law.", "Germany"},
		{"courts of trailing", "The courts of Hong Kong shall have exclusive jurisdiction.", "Hong Kong"},
		{"unknown falls back to title case", "governed by the laws of Ruritania.", "Ruritania"},
		{"new york contained alias", "governed by the laws of the State of New York applicable to contracts", "New York, USA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJurisdiction(tt.text)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJurisdiction_NoMatch(t *testing.T) {
	for _, text := range []string{
		"No legal terms here.",
		"submit to the jurisdiction of any competent court.",
	} {
		_, ok := extractJurisdiction(text)
		assert.False(t, ok, text)
	}
}

func TestExtractGeography(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"gulf region", "The Distributor shall operate in the Gulf Region.", "Middle East"},
		{"gcc", "Customers across the GCC region are covered.", "Middle East"},
		{"silicon valley", "The company has offices in Silicon Valley.", "Silicon Valley, USA"},
		{"title case fallback", "Sales within the Northern Territory only.", "Northern Territory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractGeography(tt.text)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractGeography_Stoplist(t *testing.T) {
	for _, text := range []string{
		"ARTICLE 7 - TERRITORY AND REGION\nThe parties agree.",
		"Governing Law Region",
		"laws of the State of Delaware",
		"in any country",
	} {
		_, ok := extractGeography(text)
		assert.False(t, ok, text)
	}
}

func TestWordsAfterLast(t *testing.T) {
	stop := wordSet("the", "in")
	assert.Equal(t, []string{"gulf"}, wordsAfterLast([]string{"in", "the", "gulf"}, stop))
	assert.Equal(t, []string{"north", "sea"}, wordsAfterLast([]string{"north", "sea"}, stop))
	assert.Empty(t, wordsAfterLast([]string{"in", "the"}, stop))
}

func TestAliasTable_LongestContained(t *testing.T) {
	got, ok := jurisdictionAliases.lookupContained("courts in the state of new york")
	assert.True(t, ok)
	assert.Equal(t, "New York, USA", got)

	_, ok = jurisdictionAliases.lookupContained("ruritania")
	assert.False(t, ok)
}
