package dto

import "rental_listing_v1/internal/smartform"

// ==================== 会话 ====================

// CreateSessionRequest 创建智能表单会话
// DraftID > 0 时以草稿表单为初始值
type CreateSessionRequest struct {
	UserID         int64          `json:"user_id"`
	DraftID        int64          `json:"draft_id"`
	PropertyType   string         `json:"property_type"`
	ConversationID string         `json:"conversation_id"`
	Form           smartform.Form `json:"form"`
}

// ==================== 字段交互 ====================

// FieldInputRequest 字段输入
type FieldInputRequest struct {
	Value any `json:"value"`
}

// ApplySuggestionRequest 采纳建议
type ApplySuggestionRequest struct {
	Field        string `json:"field" binding:"required"`
	SuggestionID string `json:"suggestion_id" binding:"required"`
}

// FieldResponse 字段交互结果
type FieldResponse struct {
	Input       smartform.InputSnapshot `json:"input"`
	Suggestions []smartform.Suggestion  `json:"suggestions"`
}

// ApplyResult 采纳结果
type ApplyResult struct {
	Applied smartform.Suggestion `json:"applied"`
	Form    smartform.Form       `json:"form"`
}

// AutoFillResult 自动填充结果
type AutoFillResult struct {
	Filled   int                         `json:"filled"`
	Applied  []smartform.Suggestion      `json:"applied"`
	Analysis smartform.FormFieldAnalysis `json:"analysis"`
}

// ValidateResult 立即校验结果
type ValidateResult struct {
	Issues    []smartform.ValidationIssue `json:"issues"`
	HasErrors bool                        `json:"has_errors"`
}
