package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"rental_listing_v1/internal/smartform"
	"rental_listing_v1/pkg/net"
)

// RemoteAIConfig HTTP AI 服务配置
type RemoteAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string // 仅用于标注建议来源与调用日志
}

// RemoteAI 通过 HTTP 调用独立部署的 AI 服务
type RemoteAI struct {
	cfg        RemoteAIConfig
	dispatcher net.Dispatcher
	logger     *zap.Logger
}

var _ AIClient = (*RemoteAI)(nil)

// NewRemoteAI 创建 HTTP AI 客户端
func NewRemoteAI(cfg RemoteAIConfig, dispatcher net.Dispatcher, logger *zap.Logger) *RemoteAI {
	if cfg.Model == "" {
		cfg.Model = "remote"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &RemoteAI{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("component", "remote_ai")),
	}
}

func (c *RemoteAI) Model() string { return c.cfg.Model }

// ==================== 智能表单 ====================

func (c *RemoteAI) GetSmartSuggestions(ctx context.Context, sess smartform.Session, field string, form smartform.Form) ([]smartform.Suggestion, error) {
	payload := map[string]any{
		"session_id":      sess.ID,
		"conversation_id": sess.ConversationID,
		"property_type":   sess.PropertyType,
		"field":           field,
		"form":            form,
	}
	var resp struct {
		Suggestions []fieldSuggestion `json:"suggestions"`
	}
	if err := c.post(ctx, "/ai/suggestions", payload, &resp); err != nil {
		return nil, err
	}
	return toSuggestions(field, c.cfg.Model, resp.Suggestions), nil
}

func (c *RemoteAI) ValidatePropertyData(ctx context.Context, sess smartform.Session, form smartform.Form) ([]smartform.ValidationIssue, error) {
	payload := map[string]any{
		"session_id":    sess.ID,
		"property_type": sess.PropertyType,
		"form":          form,
	}
	var resp struct {
		Issues []smartform.ValidationIssue `json:"issues"`
	}
	if err := c.post(ctx, "/ai/validate", payload, &resp); err != nil {
		return nil, err
	}
	return normalizeIssues(resp.Issues), nil
}

// ==================== 内容生成 ====================

func (c *RemoteAI) GeneratePropertyDescription(ctx context.Context, req DescriptionRequest) (*DescriptionResult, error) {
	var out DescriptionResult
	if err := c.post(ctx, "/ai/description", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RemoteAI) AnalyzeContent(ctx context.Context, req ContentAnalysisRequest) (*ContentAnalysis, error) {
	var out ContentAnalysis
	if err := c.post(ctx, "/ai/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RemoteAI) SuggestPricing(ctx context.Context, req PricingRequest) (*PricingSuggestion, error) {
	var out PricingSuggestion
	if err := c.post(ctx, "/ai/pricing", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RemoteAI) OptimizeForSEO(ctx context.Context, req SEORequest) (*SEOResult, error) {
	var out SEOResult
	if err := c.post(ctx, "/ai/seo", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RemoteAI) AnalyzeMarket(ctx context.Context, req MarketAnalysisRequest) (*MarketAnalysis, error) {
	var out MarketAnalysis
	if err := c.post(ctx, "/ai/market-analysis", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamQuery 读取 SSE 响应：每行 "data: <text>"，以 "data: [DONE]" 结束
func (c *RemoteAI) StreamQuery(ctx context.Context, req QueryRequest, onChunk func(string) error) error {
	if c.cfg.BaseURL == "" {
		return ErrUnavailable
	}

	httpReq, err := net.BuildPostRequest(ctx, c.cfg.BaseURL+"/ai/query/stream", req, c.cfg.APIKey)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.dispatcher.Send(ctx, httpReq)
	if err != nil {
		return fmt.Errorf("AI 流式请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Service: "ai", Status: resp.StatusCode, Body: string(body)}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}
		if data == "" {
			continue
		}
		if err := onChunk(decodeChunk(data)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("读取 AI 流失败: %w", err)
	}
	return nil
}

// decodeChunk 兼容 {"text": "..."} 与纯文本两种分片
func decodeChunk(data string) string {
	var chunk struct {
		Text string `json:"text"`
	}
	if strings.HasPrefix(data, "{") && json.Unmarshal([]byte(data), &chunk) == nil {
		return chunk.Text
	}
	return data
}

// ==================== 内部方法 ====================

func (c *RemoteAI) post(ctx context.Context, path string, payload, out any) error {
	if c.cfg.BaseURL == "" {
		return ErrUnavailable
	}

	req, err := net.BuildPostRequest(ctx, c.cfg.BaseURL+path, payload, c.cfg.APIKey)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.dispatcher.Send(ctx, req)
	if err != nil {
		return fmt.Errorf("AI 请求 %s 失败: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取 AI 响应失败: %w", err)
	}

	c.logger.Debug("AI 请求完成",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Service: "ai", Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析 AI 响应失败: %w", err)
	}
	return nil
}
