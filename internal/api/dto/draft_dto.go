package dto

import (
	"time"

	"rental_listing_v1/internal/smartform"
)

// ==================== 请求 DTO ====================

// CreateDraftRequest 创建向导草稿请求
type CreateDraftRequest struct {
	UserID    int64          `json:"user_id"`
	SessionID string         `json:"session_id"`
	FormData  smartform.Form `json:"form_data"`
}

// SaveStepRequest 保存步骤数据请求
// Data 为该步骤的局部表单，按路径深度合并到草稿
type SaveStepRequest struct {
	Data smartform.Form `json:"data" binding:"required"`
}

// UpdateDraftRequest 整体替换表单
type UpdateDraftRequest struct {
	FormData smartform.Form `json:"form_data" binding:"required"`
	Keywords []string       `json:"keywords,omitempty"`
}

// ListDraftsRequest 草稿列表请求
type ListDraftsRequest struct {
	UserID   int64  `form:"user_id"`
	Status   string `form:"status"`
	City     string `form:"city"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// ==================== 响应 DTO ====================

// DraftProgress 向导进度
type DraftProgress struct {
	CurrentStep    string   `json:"current_step"`
	CompletedSteps []string `json:"completed_steps"`
	Percent        int      `json:"percent"`
	Completeness   int      `json:"completeness"`
	Quality        int      `json:"quality"`
	MissingFields  []string `json:"missing_fields"`
}

// DraftVO 草稿视图对象
type DraftVO struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	SessionID    string         `json:"session_id,omitempty"`
	Title        string         `json:"title"`
	PropertyType string         `json:"property_type"`
	City         string         `json:"city"`
	Status       string         `json:"status"`
	FormData     smartform.Form `json:"form_data"`
	Keywords     []string       `json:"keywords"`
	Progress     DraftProgress  `json:"progress"`
	SubmittedAt  *time.Time     `json:"submitted_at,omitempty"`
	LastActiveAt time.Time      `json:"last_active_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

// SubmitDraftResult 提交结果
type SubmitDraftResult struct {
	Draft  *DraftVO                    `json:"draft"`
	Issues []smartform.ValidationIssue `json:"issues"`
}
