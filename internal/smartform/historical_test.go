package smartform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticHistory_Embedded(t *testing.T) {
	h, err := NewStaticHistory()
	require.NoError(t, err)
	assert.Contains(t, h.Fields(), "basicInfo.propertyType")

	list, err := h.Historical(context.Background(), "basicInfo.propertyType")
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "apartment", list[0].Value)
	assert.Equal(t, SuggestionHistorical, list[0].Type())

	origin, ok := list[0].Origin.(HistoricalOrigin)
	require.True(t, ok)
	assert.Equal(t, 412, origin.Occurrences)

	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, list[i-1].Confidence, list[i].Confidence)
	}

	none, err := h.Historical(context.Background(), "unknown.field")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStaticHistory_StableIDs(t *testing.T) {
	h, err := NewStaticHistory()
	require.NoError(t, err)

	a, _ := h.Historical(context.Background(), "details.bedrooms")
	b, _ := h.Historical(context.Background(), "details.bedrooms")
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
	assert.NotEqual(t, a[0].ID, a[1].ID)

	ai1 := NewAISuggestion("details.bedrooms", 1, 0.5, "", "")
	ai2 := NewAISuggestion("details.bedrooms", 1, 0.5, "", "")
	assert.NotEqual(t, ai1.ID, ai2.ID)
}

func TestParseStaticHistory(t *testing.T) {
	h, err := ParseStaticHistory([]byte(`
pricing.currency:
  - value: USD
    occurrences: 10
    confidence: 0.2
  - value: EUR
    occurrences: 40
    confidence: 0.9
`))
	require.NoError(t, err)
	list, _ := h.Historical(context.Background(), "pricing.currency")
	require.Len(t, list, 2)
	assert.Equal(t, "EUR", list[0].Value)

	_, err = ParseStaticHistory([]byte("pricing.currency: [unclosed"))
	assert.Error(t, err)
}

func TestNewSuggestion_ClampsConfidence(t *testing.T) {
	assert.Equal(t, 1.0, NewAISuggestion("f", "v", 1.7, "", "").Confidence)
	assert.Equal(t, 0.0, NewMarketSuggestion("f", 1.0, -0.2, "", 0, 50).Confidence)
}
