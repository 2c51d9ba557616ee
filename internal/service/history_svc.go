package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"go.uber.org/zap"

	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/smartform"
)

// HistoryService 历史建议：静态表 + 用户采纳记录
type HistoryService struct {
	static   smartform.HistoryProvider
	feedback repository.FeedbackRepository
	limit    int
	logger   *zap.Logger
}

var _ smartform.HistoryProvider = (*HistoryService)(nil)

// NewHistoryService static / feedback 均可为 nil
func NewHistoryService(static smartform.HistoryProvider, feedback repository.FeedbackRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		static:   static,
		feedback: feedback,
		limit:    5,
		logger:   logger.With(zap.String("component", "history")),
	}
}

// Historical 合并两类历史建议，同值只保留置信度较高的一条
func (h *HistoryService) Historical(ctx context.Context, field string) ([]smartform.Suggestion, error) {
	var out []smartform.Suggestion
	seen := make(map[string]int)

	add := func(s smartform.Suggestion) {
		key := strings.ToLower(s.ValueString())
		if key == "" {
			return
		}
		if i, ok := seen[key]; ok {
			if s.Confidence > out[i].Confidence {
				out[i] = s
			}
			return
		}
		seen[key] = len(out)
		out = append(out, s)
	}

	if h.feedback != nil {
		accepted, err := h.feedback.TopAccepted(ctx, field, h.limit)
		if err != nil {
			// 采纳记录不可用时退回静态表
			h.logger.Warn("查询采纳记录失败", zap.String("field", field), zap.Error(err))
		}
		for _, a := range accepted {
			add(smartform.NewHistoricalSuggestion(field, decodeAccepted(a), acceptedConfidence(a.Occurrences), a.Occurrences))
		}
	}

	if h.static != nil {
		list, err := h.static.Historical(ctx, field)
		if err != nil {
			return out, err
		}
		for _, s := range list {
			add(s)
		}
	}

	return out, nil
}

// acceptedConfidence 采纳次数越多置信度越高，上限 0.95
func acceptedConfidence(occurrences int) float64 {
	return math.Min(0.5+0.05*float64(occurrences), 0.95)
}

func decodeAccepted(a repository.AcceptedValue) any {
	if len(a.Value) > 0 {
		var v any
		if err := json.Unmarshal(a.Value, &v); err == nil && v != nil {
			return v
		}
	}
	return a.ValueText
}
