package smartform

import (
	"encoding/json"
	"fmt"
	"time"
)

// ==================== 建议类型 ====================

// SuggestionType 建议来源类型
type SuggestionType string

const (
	SuggestionAI         SuggestionType = "ai"
	SuggestionHistorical SuggestionType = "historical"
	SuggestionMarketData SuggestionType = "market_data"
)

// Origin 建议来源载荷，按类型区分
// 只有本包内的 AIOrigin / HistoricalOrigin / MarketOrigin 实现该接口
type Origin interface {
	Type() SuggestionType
	isOrigin()
}

// AIOrigin AI 生成的建议
type AIOrigin struct {
	Model string `json:"model,omitempty"`
}

func (AIOrigin) Type() SuggestionType { return SuggestionAI }
func (AIOrigin) isOrigin()            {}

// HistoricalOrigin 历史数据建议
type HistoricalOrigin struct {
	Occurrences int `json:"occurrences"`
}

func (HistoricalOrigin) Type() SuggestionType { return SuggestionHistorical }
func (HistoricalOrigin) isOrigin()            {}

// MarketOrigin 市场数据建议
type MarketOrigin struct {
	SampleSize int     `json:"sample_size"`
	Percentile float64 `json:"percentile"`
}

func (MarketOrigin) Type() SuggestionType { return SuggestionMarketData }
func (MarketOrigin) isOrigin()            {}

// ==================== 建议 ====================

// Suggestion 字段建议值
type Suggestion struct {
	ID         string
	Field      string
	Value      any
	Confidence float64 // 0-1
	Reason     string
	Origin     Origin
}

// Type 返回建议来源类型
func (s Suggestion) Type() SuggestionType {
	if s.Origin == nil {
		return SuggestionAI
	}
	return s.Origin.Type()
}

// ValueString 建议值的字符串形式，用于去重与匹配
func (s Suggestion) ValueString() string {
	return valueString(s.Value)
}

func (s Suggestion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string         `json:"id"`
		Field      string         `json:"field"`
		Value      any            `json:"value"`
		Confidence float64        `json:"confidence"`
		Reason     string         `json:"reason"`
		Type       SuggestionType `json:"type"`
		Origin     Origin         `json:"origin,omitempty"`
	}{s.ID, s.Field, s.Value, s.Confidence, s.Reason, s.Type(), s.Origin})
}

// ==================== 校验问题 ====================

// Severity 问题级别
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue 远端校验返回的问题
type ValidationIssue struct {
	Field      string   `json:"field"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// HasErrors 是否包含 error 级别的问题
func HasErrors(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ==================== 表单分析 ====================

// FormFieldAnalysis 表单分析结果，每次按当前状态重新计算
type FormFieldAnalysis struct {
	Completeness     int               `json:"completeness"`
	Quality          int               `json:"quality"`
	TitleScore       int               `json:"title_score"`
	DescriptionScore int               `json:"description_score"`
	MissingFields    []string          `json:"missing_fields"`
	Suggestions      []Suggestion      `json:"suggestions"`
	Issues           []ValidationIssue `json:"issues"`
}

// ==================== 会话 ====================

// Session 编辑会话上下文，随调用显式传递
type Session struct {
	ID             string    `json:"id"`
	UserID         int64     `json:"user_id"`
	DraftID        int64     `json:"draft_id"`
	PropertyType   string    `json:"property_type"`
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
