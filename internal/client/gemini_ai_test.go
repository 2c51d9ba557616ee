package client

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental_listing_v1/internal/smartform"
)

// 需要真实 Key，本地运行：GEMINI_API_KEY=xxx go test -run TestGeminiAI ./internal/client/
func TestGeminiAI_Live(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("跳过：未设置 GEMINI_API_KEY")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ai, err := NewGeminiAI(ctx, apiKey, "", nil)
	require.NoError(t, err)
	defer ai.Close()

	form := smartform.Form{"basicInfo": map[string]any{"propertyType": "apartment"}, "location": map[string]any{"city": "Lisbon"}}
	list, err := ai.GetSmartSuggestions(ctx, smartform.Session{ID: "live", PropertyType: "apartment"}, "basicInfo.title", form)
	require.NoError(t, err)
	for _, s := range list {
		assert.Equal(t, smartform.SuggestionAI, s.Type())
	}
}

func TestNewGeminiAI_RequiresKey(t *testing.T) {
	_, err := NewGeminiAI(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
