package smartform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoFill(t *testing.T) {
	best := map[string]Suggestion{
		"basicInfo.title":        NewHistoricalSuggestion("basicInfo.title", "Suggested", 0.3, 10),
		"basicInfo.propertyType": NewHistoricalSuggestion("basicInfo.propertyType", "house", 0.6, 268),
		"details.bedrooms":       NewHistoricalSuggestion("details.bedrooms", "", 0.6, 1),
	}
	lookup := func(field string) (Suggestion, bool) {
		s, ok := best[field]
		return s, ok
	}

	form := Form{"basicInfo": map[string]any{"title": "Mine"}}
	applied := AutoFill(form, RequiredFields, lookup)

	require.Len(t, applied, 1)
	assert.Equal(t, "basicInfo.propertyType", applied[0].Field)

	title, _ := form.Get("basicInfo.title")
	assert.Equal(t, "Mine", title)
	pt, _ := form.Get("basicInfo.propertyType")
	assert.Equal(t, "house", pt)
	assert.True(t, form.IsEmpty("details.bedrooms"), "空建议不填充")
}

func TestMatchCachedAndMerge(t *testing.T) {
	cached := []Suggestion{
		NewHistoricalSuggestion("location.city", "Lisbon", 0.5, 10),
		NewHistoricalSuggestion("location.city", "Lis", 0.5, 10),
		NewHistoricalSuggestion("location.city", "Porto", 0.5, 10),
	}
	local := MatchCached("LIS", cached)
	require.Len(t, local, 1, "完全相同的值不作为补全")
	assert.Equal(t, "Lisbon", local[0].Value)

	remote := []Suggestion{
		NewAISuggestion("location.city", "lisbon", 0.9, "", ""),
		NewAISuggestion("location.city", "Lisburn", 0.4, "", ""),
		NewAISuggestion("location.city", "Lismore", 0.3, "", ""),
	}
	merged := MergeAutocomplete(local, remote, 2)
	require.Len(t, merged, 2)
	assert.Equal(t, "Lisbon", merged[0].Value)
	assert.Equal(t, "Lisburn", merged[1].Value)

	assert.False(t, ShouldAutocomplete(" a "))
	assert.True(t, ShouldAutocomplete("里斯"))
}
