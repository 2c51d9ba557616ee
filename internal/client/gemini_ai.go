package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"rental_listing_v1/internal/smartform"
)

// GeminiAI 直连 Gemini 的 AI 实现
type GeminiAI struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

var _ AIClient = (*GeminiAI)(nil)

// NewGeminiAI 创建 Gemini 客户端，调用方负责 Close
func NewGeminiAI(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GeminiAI, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("Gemini 初始化失败: %w", err)
	}
	return &GeminiAI{
		client:    client,
		modelName: modelName,
		logger:    logger.With(zap.String("component", "gemini_ai")),
	}, nil
}

func (g *GeminiAI) Model() string { return g.modelName }

// Close 释放底层连接
func (g *GeminiAI) Close() error {
	return g.client.Close()
}

// ==================== 智能表单 ====================

func (g *GeminiAI) GetSmartSuggestions(ctx context.Context, sess smartform.Session, field string, form smartform.Form) ([]smartform.Suggestion, error) {
	current, _ := form.Get(field)
	prompt := fmt.Sprintf(`You help hosts fill in a rental listing form.
Property type: %s
Field: %s
Current value: %v
Form so far (JSON): %s

Suggest up to 3 values for the field. Each suggestion has a confidence between 0 and 1 and a short reason.

Output Schema (JSON):
{"suggestions": [{"value": "string or number", "confidence": 0.8, "reason": "string"}]}`,
		sess.PropertyType, field, current, formJSON(form))

	var out struct {
		Suggestions []fieldSuggestion `json:"suggestions"`
	}
	if _, err := g.generateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return toSuggestions(field, g.modelName, out.Suggestions), nil
}

func (g *GeminiAI) ValidatePropertyData(ctx context.Context, sess smartform.Session, form smartform.Form) ([]smartform.ValidationIssue, error) {
	prompt := fmt.Sprintf(`Review this %s rental listing draft for problems: missing essentials, inconsistent numbers, unrealistic prices, misleading wording.
Listing (JSON): %s

Use dotted field paths such as "basicInfo.title" or "pricing.basePrice".
Severity is one of "error", "warning", "info".

Output Schema (JSON):
{"issues": [{"field": "string", "message": "string", "severity": "warning", "suggestion": "string"}]}`,
		sess.PropertyType, formJSON(form))

	var out struct {
		Issues []smartform.ValidationIssue `json:"issues"`
	}
	if _, err := g.generateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return normalizeIssues(out.Issues), nil
}

// ==================== 内容生成 ====================

func (g *GeminiAI) GeneratePropertyDescription(ctx context.Context, req DescriptionRequest) (*DescriptionResult, error) {
	maxWords := req.MaxWords
	if maxWords <= 0 {
		maxWords = 250
	}
	prompt := fmt.Sprintf(`You are a copywriter for a vacation rental marketplace.
Write a listing description for this property (JSON): %s

Requirements:
1. Tone: %s
2. Language: %s
3. At most %d words, split into short paragraphs
4. List 3-5 highlights

Output Schema (JSON):
{"description": "string", "highlights": ["string"]}`,
		formJSON(req.Form), orDefault(req.Tone, "warm and professional"), orDefault(req.Language, "English"), maxWords)

	var out DescriptionResult
	usage, err := g.generateJSON(ctx, prompt, &out)
	if err != nil {
		return nil, err
	}
	out.Usage = usage
	return &out, nil
}

func (g *GeminiAI) AnalyzeContent(ctx context.Context, req ContentAnalysisRequest) (*ContentAnalysis, error) {
	prompt := fmt.Sprintf(`Score this rental listing copy from 0 to 100 and explain.
Title: %q
Description: %q

Output Schema (JSON):
{"score": 0, "readability": 0, "strengths": ["string"], "improvements": ["string"], "keywords": ["string"]}`,
		req.Title, req.Description)

	var out ContentAnalysis
	usage, err := g.generateJSON(ctx, prompt, &out)
	if err != nil {
		return nil, err
	}
	out.Usage = usage
	return &out, nil
}

func (g *GeminiAI) SuggestPricing(ctx context.Context, req PricingRequest) (*PricingSuggestion, error) {
	prompt := fmt.Sprintf(`Suggest a nightly price for this rental.
Area: %s
Listing (JSON): %s
Nightly prices of comparable listings: %v

Output Schema (JSON):
{"suggested_price": 0, "min_price": 0, "max_price": 0, "currency": "USD", "confidence": 0.5, "reasoning": "string"}`,
		req.Area, formJSON(req.Form), req.Comparables)

	var out PricingSuggestion
	usage, err := g.generateJSON(ctx, prompt, &out)
	if err != nil {
		return nil, err
	}
	out.Usage = usage
	return &out, nil
}

func (g *GeminiAI) OptimizeForSEO(ctx context.Context, req SEORequest) (*SEOResult, error) {
	prompt := fmt.Sprintf(`You are an SEO expert for a rental marketplace.
Rewrite the title (max 80 characters) and description for search visibility without changing facts.
Title: %q
Description: %q
Seed keywords: %s

Output Schema (JSON):
{"title": "string", "description": "string", "keywords": ["string"], "score": 0}`,
		req.Title, req.Description, strings.Join(req.Keywords, ", "))

	var out SEOResult
	usage, err := g.generateJSON(ctx, prompt, &out)
	if err != nil {
		return nil, err
	}
	out.Usage = usage
	return &out, nil
}

func (g *GeminiAI) AnalyzeMarket(ctx context.Context, req MarketAnalysisRequest) (*MarketAnalysis, error) {
	prompt := fmt.Sprintf(`Summarise the short-term rental market.
Area: %s
Property type: %s
Bedrooms: %d

Output Schema (JSON):
{"summary": "string", "average_rate": 0, "occupancy_rate": 0, "trends": ["string"]}`,
		req.Area, req.PropertyType, req.Bedrooms)

	var out MarketAnalysis
	usage, err := g.generateJSON(ctx, prompt, &out)
	if err != nil {
		return nil, err
	}
	out.Usage = usage
	return &out, nil
}

// StreamQuery 使用 GenerateContentStream 逐段返回
func (g *GeminiAI) StreamQuery(ctx context.Context, req QueryRequest, onChunk func(string) error) error {
	model := g.client.GenerativeModel(g.modelName)
	prompt := req.Query
	if len(req.Form) > 0 {
		prompt = fmt.Sprintf("Listing draft (JSON): %s\n\n%s", formJSON(req.Form), req.Query)
	}

	iter := model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("AI 流式生成失败: %w", err)
		}
		if text := firstText(resp); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
}

// ==================== 内部方法 ====================

func (g *GeminiAI) generateJSON(ctx context.Context, prompt string, out any) (Usage, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Usage{}, fmt.Errorf("AI 生成失败: %w", err)
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	raw := firstText(resp)
	if raw == "" {
		return usage, errors.New("AI 返回为空")
	}
	raw = stripFences(raw)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		g.logger.Warn("AI 返回非 JSON", zap.String("raw", raw))
		return usage, fmt.Errorf("JSON 解析失败: %w", err)
	}
	return usage, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// stripFences 清洗可能存在的 markdown 符号 (```json ... ```)
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func formJSON(form smartform.Form) string {
	data, err := form.JSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
