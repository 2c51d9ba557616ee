package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"rental_listing_v1/internal/model"
)

// ==================== 仓储接口 ====================

// AICallLogRepository AI调用日志仓储接口
type AICallLogRepository interface {
	Create(ctx context.Context, log *model.AICallLog) error
	GetByID(ctx context.Context, id int64) (*model.AICallLog, error)

	// 统计查询
	GetUsageBySession(ctx context.Context, sessionID string) (*AIUsageStats, error)
	GetUsageByDraft(ctx context.Context, draftID int64) (*AIUsageStats, error)
	GetCallsByType(ctx context.Context, startTime, endTime time.Time) ([]CallTypeStats, error)
	GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyUsageStats, error)
	GetTotalCost(ctx context.Context, startTime, endTime time.Time) (float64, error)
}

// ==================== 统计结构 ====================

// AIUsageStats AI用量统计
type AIUsageStats struct {
	TotalCalls        int64   `json:"total_calls"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	SuccessCount      int64   `json:"success_count"`
	FailedCount       int64   `json:"failed_count"`
}

// CallTypeStats 按调用类型统计
type CallTypeStats struct {
	CallType      string  `json:"call_type"`
	TotalCalls    int64   `json:"total_calls"`
	FailedCount   int64   `json:"failed_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// DailyUsageStats 每日用量统计
type DailyUsageStats struct {
	Date              string  `json:"date"`
	TotalCalls        int64   `json:"total_calls"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
}

const usageSelect = `
	COUNT(*) as total_calls,
	COALESCE(SUM(input_tokens), 0) as total_input_tokens,
	COALESCE(SUM(output_tokens), 0) as total_output_tokens,
	COALESCE(SUM(cost_usd), 0) as total_cost_usd,
	COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
	COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) as success_count,
	COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed_count
`

// ==================== 仓储实现 ====================

type aiCallLogRepo struct {
	db *gorm.DB
}

// NewAICallLogRepository 创建AI调用日志仓储
func NewAICallLogRepository(db *gorm.DB) AICallLogRepository {
	return &aiCallLogRepo{db: db}
}

func (r *aiCallLogRepo) Create(ctx context.Context, log *model.AICallLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *aiCallLogRepo) GetByID(ctx context.Context, id int64) (*model.AICallLog, error) {
	var log model.AICallLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *aiCallLogRepo) GetUsageBySession(ctx context.Context, sessionID string) (*AIUsageStats, error) {
	var stats AIUsageStats
	err := r.db.WithContext(ctx).Model(&model.AICallLog{}).
		Where("session_id = ?", sessionID).
		Select(usageSelect).
		Scan(&stats).Error
	return &stats, err
}

func (r *aiCallLogRepo) GetUsageByDraft(ctx context.Context, draftID int64) (*AIUsageStats, error) {
	var stats AIUsageStats
	err := r.db.WithContext(ctx).Model(&model.AICallLog{}).
		Where("draft_id = ?", draftID).
		Select(usageSelect).
		Scan(&stats).Error
	return &stats, err
}

func (r *aiCallLogRepo) GetCallsByType(ctx context.Context, startTime, endTime time.Time) ([]CallTypeStats, error) {
	var stats []CallTypeStats

	query := r.db.WithContext(ctx).Model(&model.AICallLog{})
	if !startTime.IsZero() {
		query = query.Where("created_at >= ?", startTime)
	}
	if !endTime.IsZero() {
		query = query.Where("created_at <= ?", endTime)
	}

	err := query.Select(`
		call_type,
		COUNT(*) as total_calls,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed_count,
		COALESCE(AVG(duration_ms), 0) as avg_duration_ms
	`).
		Group("call_type").
		Order("total_calls DESC").
		Scan(&stats).Error

	return stats, err
}

func (r *aiCallLogRepo) GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyUsageStats, error) {
	var stats []DailyUsageStats

	err := r.db.WithContext(ctx).Model(&model.AICallLog{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as total_calls,
			COALESCE(SUM(cost_usd), 0) as total_cost_usd,
			COALESCE(SUM(input_tokens), 0) as total_input_tokens,
			COALESCE(SUM(output_tokens), 0) as total_output_tokens
		`).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&stats).Error

	return stats, err
}

func (r *aiCallLogRepo) GetTotalCost(ctx context.Context, startTime, endTime time.Time) (float64, error) {
	var totalCost float64

	query := r.db.WithContext(ctx).Model(&model.AICallLog{})
	if !startTime.IsZero() {
		query = query.Where("created_at >= ?", startTime)
	}
	if !endTime.IsZero() {
		query = query.Where("created_at <= ?", endTime)
	}

	err := query.Select("COALESCE(SUM(cost_usd), 0)").Scan(&totalCost).Error
	return totalCost, err
}
