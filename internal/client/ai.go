package client

import (
	"context"
	"strings"

	"rental_listing_v1/internal/smartform"
)

// AIClient AI 服务能力
// 同时实现智能表单的 SuggestionSource 与 IssueValidator
type AIClient interface {
	smartform.SuggestionSource
	smartform.IssueValidator

	GeneratePropertyDescription(ctx context.Context, req DescriptionRequest) (*DescriptionResult, error)
	AnalyzeContent(ctx context.Context, req ContentAnalysisRequest) (*ContentAnalysis, error)
	SuggestPricing(ctx context.Context, req PricingRequest) (*PricingSuggestion, error)
	OptimizeForSEO(ctx context.Context, req SEORequest) (*SEOResult, error)
	AnalyzeMarket(ctx context.Context, req MarketAnalysisRequest) (*MarketAnalysis, error)
	// StreamQuery 流式问答，每收到一段文本回调一次；回调返回错误时中止
	StreamQuery(ctx context.Context, req QueryRequest, onChunk func(chunk string) error) error
	Model() string
}

// ==================== 请求 / 响应 ====================

// Usage token 用量，远端未返回时为 0
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type DescriptionRequest struct {
	Form     smartform.Form `json:"form"`
	Tone     string         `json:"tone,omitempty"`
	Language string         `json:"language,omitempty"`
	MaxWords int            `json:"max_words,omitempty"`
}

type DescriptionResult struct {
	Description string   `json:"description"`
	Highlights  []string `json:"highlights"`
	Usage       Usage    `json:"usage"`
}

type ContentAnalysisRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ContentAnalysis struct {
	Score        int      `json:"score"`
	Readability  int      `json:"readability"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Keywords     []string `json:"keywords"`
	Usage        Usage    `json:"usage"`
}

type PricingRequest struct {
	Form        smartform.Form `json:"form"`
	Area        string         `json:"area"`
	Comparables []float64      `json:"comparables,omitempty"`
}

type PricingSuggestion struct {
	SuggestedPrice float64 `json:"suggested_price"`
	MinPrice       float64 `json:"min_price"`
	MaxPrice       float64 `json:"max_price"`
	Currency       string  `json:"currency"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	Usage          Usage   `json:"usage"`
}

type SEORequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

type SEOResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Score       int      `json:"score"`
	Usage       Usage    `json:"usage"`
}

type MarketAnalysisRequest struct {
	Area         string `json:"area"`
	PropertyType string `json:"property_type"`
	Bedrooms     int    `json:"bedrooms,omitempty"`
}

type MarketAnalysis struct {
	Summary       string   `json:"summary"`
	AverageRate   float64  `json:"average_rate"`
	OccupancyRate float64  `json:"occupancy_rate"`
	Trends        []string `json:"trends"`
	Usage         Usage    `json:"usage"`
}

type QueryRequest struct {
	SessionID      string         `json:"session_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Query          string         `json:"query"`
	Form           smartform.Form `json:"form,omitempty"`
}

// fieldSuggestion AI 返回的单条字段建议
type fieldSuggestion struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func toSuggestions(field, model string, list []fieldSuggestion) []smartform.Suggestion {
	out := make([]smartform.Suggestion, 0, len(list))
	for _, s := range list {
		if smartform.IsEmptyValue(s.Value) {
			continue
		}
		out = append(out, smartform.NewAISuggestion(field, s.Value, s.Confidence, s.Reason, model))
	}
	return out
}

func normalizeIssues(issues []smartform.ValidationIssue) []smartform.ValidationIssue {
	out := make([]smartform.ValidationIssue, 0, len(issues))
	for _, is := range issues {
		switch is.Severity {
		case smartform.SeverityError, smartform.SeverityWarning, smartform.SeverityInfo:
		default:
			is.Severity = smartform.SeverityInfo
		}
		if strings.TrimSpace(is.Message) == "" {
			continue
		}
		out = append(out, is)
	}
	return out
}

// ==================== 未配置实现 ====================

// DisabledAI 未配置 AI 时使用，所有调用返回 ErrUnavailable
type DisabledAI struct{}

var _ AIClient = DisabledAI{}

func (DisabledAI) GetSmartSuggestions(context.Context, smartform.Session, string, smartform.Form) ([]smartform.Suggestion, error) {
	return nil, ErrUnavailable
}

func (DisabledAI) ValidatePropertyData(context.Context, smartform.Session, smartform.Form) ([]smartform.ValidationIssue, error) {
	return nil, ErrUnavailable
}

func (DisabledAI) GeneratePropertyDescription(context.Context, DescriptionRequest) (*DescriptionResult, error) {
	return nil, ErrUnavailable
}

func (DisabledAI) AnalyzeContent(context.Context, ContentAnalysisRequest) (*ContentAnalysis, error) {
	return nil, ErrUnavailable
}

func (DisabledAI) SuggestPricing(context.Context, PricingRequest) (*PricingSuggestion, error) {
	return nil, ErrUnavailable
}

func (DisabledAI) OptimizeForSEO(context.Context, SEORequest) (*SEOResult, error) {
	return nil, ErrUnavailable
}

func (DisabledAI) AnalyzeMarket(context.Context, MarketAnalysisRequest) (*MarketAnalysis, error) {
	return nil, ErrUnavailable
}

func (DisabledAI) StreamQuery(context.Context, QueryRequest, func(string) error) error {
	return ErrUnavailable
}

func (DisabledAI) Model() string { return "" }
