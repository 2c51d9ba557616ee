package dto

import (
	"time"

	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/smartform"
)

// ==================== AI 内容请求 ====================

// GenerateDescriptionRequest 生成房源描述
type GenerateDescriptionRequest struct {
	SessionID string         `json:"session_id"`
	DraftID   int64          `json:"draft_id"`
	Form      smartform.Form `json:"form" binding:"required"`
	Tone      string         `json:"tone"`
	Language  string         `json:"language"`
	MaxWords  int            `json:"max_words"`
}

// OptimizeSEORequest SEO 优化
type OptimizeSEORequest struct {
	SessionID   string   `json:"session_id"`
	DraftID     int64    `json:"draft_id"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// SuggestPricingRequest 定价建议
type SuggestPricingRequest struct {
	SessionID string         `json:"session_id"`
	DraftID   int64          `json:"draft_id"`
	Form      smartform.Form `json:"form" binding:"required"`
}

// AnalyzeContentRequest 内容分析
type AnalyzeContentRequest struct {
	SessionID   string `json:"session_id"`
	DraftID     int64  `json:"draft_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MarketAnalysisRequest 市场分析
type MarketAnalysisRequest struct {
	SessionID    string `json:"session_id"`
	DraftID      int64  `json:"draft_id"`
	Area         string `json:"area" binding:"required"`
	PropertyType string `json:"property_type"`
	Bedrooms     int    `json:"bedrooms"`
}

// QueryRequest 流式问答
type QueryRequest struct {
	SessionID      string         `json:"session_id"`
	ConversationID string         `json:"conversation_id"`
	Query          string         `json:"query" binding:"required"`
	Form           smartform.Form `json:"form"`
}

// ==================== AI 内容响应 ====================

// PriceStats 可比房源价格统计
type PriceStats struct {
	SampleSize int     `json:"sample_size"`
	Median     float64 `json:"median"`
	P25        float64 `json:"p25"`
	P75        float64 `json:"p75"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
}

// PricingResult 定价建议结果
// Source: ai / market（AI 不可用时按市场统计给出）
type PricingResult struct {
	SuggestedPrice float64     `json:"suggested_price"`
	MinPrice       float64     `json:"min_price"`
	MaxPrice       float64     `json:"max_price"`
	Currency       string      `json:"currency"`
	Confidence     float64     `json:"confidence"`
	Reasoning      string      `json:"reasoning"`
	Source         string      `json:"source"`
	Market         *PriceStats `json:"market,omitempty"`
}

// ContentAnalysisResult 内容分析结果
// Source: ai / local（AI 不可用时使用本地评分）
type ContentAnalysisResult struct {
	Score            int      `json:"score"`
	TitleScore       int      `json:"title_score"`
	DescriptionScore int      `json:"description_score"`
	Readability      int      `json:"readability"`
	Strengths        []string `json:"strengths"`
	Improvements     []string `json:"improvements"`
	Keywords         []string `json:"keywords"`
	Source           string   `json:"source"`
}

// MarketOverview 市场概况 + AI 分析 + 洞察
type MarketOverview struct {
	Area          string   `json:"area"`
	PropertyType  string   `json:"property_type"`
	AverageRate   float64  `json:"average_rate"`
	MedianRate    float64  `json:"median_rate"`
	OccupancyRate float64  `json:"occupancy_rate"`
	ActiveCount   int      `json:"active_listings"`
	Currency      string   `json:"currency"`
	Summary       string   `json:"summary,omitempty"`
	Trends        []string `json:"trends,omitempty"`
	Insights      []string `json:"insights,omitempty"`
}

// AIUsageReport 时间段内的 AI 用量报表
type AIUsageReport struct {
	From         time.Time                    `json:"from"`
	To           time.Time                    `json:"to"`
	TotalCostUSD float64                      `json:"total_cost_usd"`
	ByType       []repository.CallTypeStats   `json:"by_type"`
	Daily        []repository.DailyUsageStats `json:"daily"`
}
