package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/smartform"
)

func TestComparableStats(t *testing.T) {
	st, err := ComparableStats([]float64{100, 0, 80, 120, 140, 160})
	require.NoError(t, err)

	assert.Equal(t, 5, st.SampleSize, "忽略非正数")
	assert.Equal(t, 120.0, st.Median)
	assert.Equal(t, 120.0, st.Mean)
	assert.LessOrEqual(t, st.P25, st.Median)
	assert.GreaterOrEqual(t, st.P75, st.Median)

	_, err = ComparableStats(nil)
	assert.ErrorIs(t, err, ErrNoComparables)
}

func TestPricingAdvisor_PriceSuggestions(t *testing.T) {
	market := &mockMarket{comparablesFn: func(client.ComparablesQuery) ([]client.Comparable, error) {
		return comparables(80, 100, 120, 140, 160), nil
	}}
	advisor := NewPricingAdvisor(market, nil)
	ctx := context.Background()

	list, err := advisor.PriceSuggestions(ctx, smartform.Session{}, "pricing.basePrice", completeForm())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 120.0, list[0].Value)
	assert.Equal(t, smartform.SuggestionMarketData, list[0].Type())
	origin, ok := list[0].Origin.(smartform.MarketOrigin)
	require.True(t, ok)
	assert.Equal(t, 5, origin.SampleSize)
	assert.Equal(t, 50.0, origin.Percentile)

	// 相同输入得到相同 ID
	again, err := advisor.PriceSuggestions(ctx, smartform.Session{}, "pricing.basePrice", completeForm())
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, again[0].ID)

	fees, err := advisor.PriceSuggestions(ctx, smartform.Session{}, "pricing.cleaningFee", completeForm())
	require.NoError(t, err)
	assert.Equal(t, 30.0, fees[0].Value)
}

func TestPricingAdvisor_Skips(t *testing.T) {
	called := false
	market := &mockMarket{comparablesFn: func(client.ComparablesQuery) ([]client.Comparable, error) {
		called = true
		return comparables(100, 100, 100), nil
	}}
	advisor := NewPricingAdvisor(market, nil)
	ctx := context.Background()

	list, err := advisor.PriceSuggestions(ctx, smartform.Session{}, "basicInfo.title", completeForm())
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = advisor.PriceSuggestions(ctx, smartform.Session{}, "pricing.basePrice", smartform.Form{})
	require.NoError(t, err)
	assert.Empty(t, list, "缺少城市")
	assert.False(t, called)

	// 三档相同时去重
	list, err = advisor.PriceSuggestions(ctx, smartform.Session{}, "pricing.basePrice", completeForm())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
