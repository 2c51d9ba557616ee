package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/smartform"
)

type staticHistory map[string][]smartform.Suggestion

func (h staticHistory) Historical(_ context.Context, field string) ([]smartform.Suggestion, error) {
	return h[field], nil
}

func TestHistoryService_MergesAcceptedAndStatic(t *testing.T) {
	static := staticHistory{
		"basicInfo.propertyType": {
			smartform.NewHistoricalSuggestion("basicInfo.propertyType", "apartment", 0.6, 412),
			smartform.NewHistoricalSuggestion("basicInfo.propertyType", "house", 0.4, 230),
		},
	}
	feedback := &mockFeedbackRepo{topAccepted: func(field string) ([]repository.AcceptedValue, error) {
		return []repository.AcceptedValue{
			{ValueText: "Apartment", Value: []byte(`"Apartment"`), Occurrences: 9},
			{ValueText: "villa", Value: []byte(`"villa"`), Occurrences: 2},
		}, nil
	}}
	h := NewHistoryService(static, feedback, nil)

	list, err := h.Historical(context.Background(), "basicInfo.propertyType")
	require.NoError(t, err)
	require.Len(t, list, 3, "同值（不区分大小写）合并")

	values := map[string]float64{}
	for _, s := range list {
		values[s.ValueString()] = s.Confidence
		assert.Equal(t, smartform.SuggestionHistorical, s.Type())
	}
	assert.InDelta(t, 0.95, values["Apartment"], 1e-9)
	assert.InDelta(t, 0.6, values["villa"], 1e-9)
	assert.InDelta(t, 0.4, values["house"], 1e-9)
}

func TestHistoryService_FeedbackFailureFallsBack(t *testing.T) {
	static := staticHistory{"details.bedrooms": {smartform.NewHistoricalSuggestion("details.bedrooms", 2.0, 0.5, 10)}}
	feedback := &mockFeedbackRepo{topAccepted: func(string) ([]repository.AcceptedValue, error) {
		return nil, errors.New("db down")
	}}
	h := NewHistoryService(static, feedback, nil)

	list, err := h.Historical(context.Background(), "details.bedrooms")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2.0, list[0].Value)
}

func TestDecodeAccepted(t *testing.T) {
	assert.Equal(t, 120.0, decodeAccepted(repository.AcceptedValue{ValueText: "120", Value: []byte("120")}))
	assert.Equal(t, "raw", decodeAccepted(repository.AcceptedValue{ValueText: "raw", Value: []byte("not json")}))
	assert.Equal(t, "raw", decodeAccepted(repository.AcceptedValue{ValueText: "raw"}))
}
