package repository

import (
	"context"

	"gorm.io/gorm"

	"rental_listing_v1/internal/model"
)

// FeedbackRepository 建议采纳记录仓储接口
type FeedbackRepository interface {
	Create(ctx context.Context, fb *model.SuggestionFeedback) error
	// TopAccepted 字段被采纳次数最多的值
	TopAccepted(ctx context.Context, field string, limit int) ([]AcceptedValue, error)
	AcceptanceRate(ctx context.Context, suggestionType string) (float64, error)
}

// AcceptedValue 采纳统计
type AcceptedValue struct {
	ValueText   string
	Value       []byte
	Occurrences int
}

type feedbackRepo struct {
	db *gorm.DB
}

// NewFeedbackRepository 创建采纳记录仓储
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) Create(ctx context.Context, fb *model.SuggestionFeedback) error {
	return r.db.WithContext(ctx).Create(fb).Error
}

func (r *feedbackRepo) TopAccepted(ctx context.Context, field string, limit int) ([]AcceptedValue, error) {
	if limit <= 0 {
		limit = 5
	}

	var rows []struct {
		ValueText   string
		Value       string
		Occurrences int
	}
	err := r.db.WithContext(ctx).Model(&model.SuggestionFeedback{}).
		Select("value_text, MIN(CAST(value AS TEXT)) as value, COUNT(*) as occurrences").
		Where("field = ? AND accepted = ?", field, true).
		Group("value_text").
		Order("occurrences DESC, value_text ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]AcceptedValue, 0, len(rows))
	for _, row := range rows {
		out = append(out, AcceptedValue{ValueText: row.ValueText, Value: []byte(row.Value), Occurrences: row.Occurrences})
	}
	return out, nil
}

// AcceptanceRate 某类建议的采纳率（0-1），无记录时为 0
func (r *feedbackRepo) AcceptanceRate(ctx context.Context, suggestionType string) (float64, error) {
	var stats struct {
		Total    int64
		Accepted int64
	}
	query := r.db.WithContext(ctx).Model(&model.SuggestionFeedback{})
	if suggestionType != "" {
		query = query.Where("suggestion_type = ?", suggestionType)
	}
	err := query.Select(`
		COUNT(*) as total,
		COALESCE(SUM(CASE WHEN accepted THEN 1 ELSE 0 END), 0) as accepted
	`).Scan(&stats).Error
	if err != nil || stats.Total == 0 {
		return 0, err
	}
	return float64(stats.Accepted) / float64(stats.Total), nil
}
