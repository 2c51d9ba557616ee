package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/smartform"
)

func TestLocationService_Search(t *testing.T) {
	places := &mockPlaces{searchFn: func(query string, limit int) ([]client.Place, error) {
		assert.Equal(t, 5, limit)
		return []client.Place{{Name: query}}, nil
	}}
	svc := NewLocationService(places, nil)

	list, err := svc.Search(context.Background(), "Porto", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Search(context.Background(), "P", 5)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestLocationService_GetSmartSuggestions(t *testing.T) {
	places := &mockPlaces{searchFn: func(string, int) ([]client.Place, error) {
		return []client.Place{
			{Name: "Quay", Address: "12 Quay Street", City: "Lisbon"},
			{Name: "Square", Address: "", City: "Lisbon"},
		}, nil
	}}
	svc := NewLocationService(places, nil)
	form := smartform.Form{"location": map[string]any{"address": "12 Qu"}}

	list, err := svc.GetSmartSuggestions(context.Background(), smartform.Session{}, "location.address", form)
	require.NoError(t, err)
	require.Len(t, list, 1, "空地址跳过")
	assert.Equal(t, "12 Quay Street", list[0].Value)
	assert.InDelta(t, 0.8, list[0].Confidence, 1e-9)

	list, err = svc.GetSmartSuggestions(context.Background(), smartform.Session{}, "pricing.basePrice", form)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSourceChain(t *testing.T) {
	ok := &mockAI{suggestFn: func(_ context.Context, _ smartform.Session, field string, _ smartform.Form) ([]smartform.Suggestion, error) {
		return []smartform.Suggestion{smartform.NewAISuggestion(field, "x", 0.5, "", "m")}, nil
	}}
	failing := &mockAI{suggestFn: func(context.Context, smartform.Session, string, smartform.Form) ([]smartform.Suggestion, error) {
		return nil, errors.New("down")
	}}

	list, err := sourceChain{ok, failing}.GetSmartSuggestions(context.Background(), smartform.Session{}, "f", nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = sourceChain{failing}.GetSmartSuggestions(context.Background(), smartform.Session{}, "f", nil)
	assert.Error(t, err)
}
