package iati

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestPreferredNarrative(t *testing.T) {
	narratives := []Narrative{
		{Lang: "fr", Text: "Renforcement des capacités"},
		{Lang: "en", Text: "Capacity building"},
	}

	assert.Equal(t, "Capacity building", PreferredNarrative(narratives, language.English))
	assert.Equal(t, "Renforcement des capacités", PreferredNarrative(narratives, language.French))

	// No match falls back to the first narrative in document order.
	assert.Equal(t, "Renforcement des capacités", PreferredNarrative(narratives, language.Japanese))
}

func TestPreferredNarrativeEdgeCases(t *testing.T) {
	assert.Equal(t, "", PreferredNarrative(nil, language.English))

	untagged := []Narrative{{Text: "  Water project  "}}
	assert.Equal(t, "Water project", PreferredNarrative(untagged, language.English))
	assert.Equal(t, "Water project", PreferredNarrative(untagged, language.Und))

	// Unparseable language tags are skipped, not fatal.
	mixed := []Narrative{
		{Lang: "???", Text: "broken"},
		{Lang: "en", Text: "ok"},
	}
	assert.Equal(t, "ok", PreferredNarrative(mixed, language.English))
}

func TestDateOfType(t *testing.T) {
	a := Activity{Dates: []ActivityDate{
		{Type: DateTypePlannedStart, ISODate: "2014-01-01"},
		{Type: DateTypePlannedEnd, ISODate: "2014-12-31"},
	}}
	assert.Equal(t, "2014-01-01", a.DateOfType(DateTypePlannedStart))
	assert.Equal(t, "", a.DateOfType(DateTypeActualEnd))
}

func TestBudgetTotal(t *testing.T) {
	amt := func(v float64) *float64 { return &v }
	a := Activity{
		DefaultCurrency: "USD",
		Budgets: []Budget{
			{Value: Value{Amount: amt(1000), Currency: "EUR"}},
			{Value: Value{Raw: "garbage"}}, // unparseable, skipped
			{Value: Value{Amount: amt(500)}},
		},
	}
	total, currency, ok := a.BudgetTotal()
	assert.True(t, ok)
	assert.Equal(t, 1500.0, total)
	assert.Equal(t, "EUR", currency)

	empty := Activity{}
	_, _, ok = empty.BudgetTotal()
	assert.False(t, ok)
}
