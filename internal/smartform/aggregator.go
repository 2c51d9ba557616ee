package smartform

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ==================== 外部依赖 ====================

// SuggestionSource AI 建议来源（远端 getSmartSuggestions）
type SuggestionSource interface {
	GetSmartSuggestions(ctx context.Context, sess Session, field string, form Form) ([]Suggestion, error)
}

// MarketPricer 市场数据建议来源，仅用于 pricing.* 字段
type MarketPricer interface {
	PriceSuggestions(ctx context.Context, sess Session, field string, form Form) ([]Suggestion, error)
}

// ==================== 聚合器 ====================

// Aggregator 按字段合并 AI、历史与市场建议，并缓存待处理列表
type Aggregator struct {
	ai      SuggestionSource
	history HistoryProvider
	market  MarketPricer
	logger  *zap.Logger

	mu      sync.RWMutex
	byField map[string][]Suggestion
}

// NewAggregator 创建聚合器，任一来源可为 nil
func NewAggregator(ai SuggestionSource, history HistoryProvider, market MarketPricer, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		ai:      ai,
		history: history,
		market:  market,
		logger:  logger,
		byField: make(map[string][]Suggestion),
	}
}

// Fetch 并行拉取字段建议，替换该字段的缓存并返回
// 单个来源失败只记录日志，不影响其他来源
func (a *Aggregator) Fetch(ctx context.Context, sess Session, field string, form Form) []Suggestion {
	var aiList, historyList, marketList []Suggestion

	eg, egCtx := errgroup.WithContext(ctx)
	if a.ai != nil {
		eg.Go(func() error {
			list, err := a.ai.GetSmartSuggestions(egCtx, sess, field, form)
			if err != nil {
				a.logger.Warn("AI 建议获取失败", zap.String("field", field), zap.Error(err))
				return nil
			}
			aiList = tagField(list, field)
			return nil
		})
	}
	if a.history != nil {
		eg.Go(func() error {
			list, err := a.history.Historical(egCtx, field)
			if err != nil {
				a.logger.Warn("历史建议获取失败", zap.String("field", field), zap.Error(err))
				return nil
			}
			historyList = tagField(list, field)
			return nil
		})
	}
	if a.market != nil && strings.HasPrefix(field, "pricing.") {
		eg.Go(func() error {
			list, err := a.market.PriceSuggestions(egCtx, sess, field, form)
			if err != nil {
				a.logger.Warn("市场建议获取失败", zap.String("field", field), zap.Error(err))
				return nil
			}
			marketList = tagField(list, field)
			return nil
		})
	}
	_ = eg.Wait()

	merged := make([]Suggestion, 0, len(aiList)+len(marketList)+len(historyList))
	merged = append(merged, aiList...)
	merged = append(merged, marketList...)
	merged = append(merged, historyList...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	a.mu.Lock()
	a.byField[field] = merged
	a.mu.Unlock()

	return cloneSuggestions(merged)
}

// Pending 字段待处理的建议
func (a *Aggregator) Pending(field string) []Suggestion {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneSuggestions(a.byField[field])
}

// All 所有字段的待处理建议，按字段名排序
func (a *Aggregator) All() []Suggestion {
	a.mu.RLock()
	defer a.mu.RUnlock()

	fields := make([]string, 0, len(a.byField))
	for f := range a.byField {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]Suggestion, 0)
	for _, f := range fields {
		out = append(out, a.byField[f]...)
	}
	return out
}

// Best 字段置信度最高的建议
func (a *Aggregator) Best(field string) (Suggestion, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	list := a.byField[field]
	if len(list) == 0 {
		return Suggestion{}, false
	}
	return list[0], true
}

// Find 按 ID 查找字段建议
func (a *Aggregator) Find(field, id string) (Suggestion, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, s := range a.byField[field] {
		if s.ID == id {
			return s, true
		}
	}
	return Suggestion{}, false
}

// Remove 从待处理列表移除建议
func (a *Aggregator) Remove(field, id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	list := a.byField[field]
	for i, s := range list {
		if s.ID == id {
			a.byField[field] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func tagField(list []Suggestion, field string) []Suggestion {
	for i := range list {
		if list[i].Field == "" {
			list[i].Field = field
		}
	}
	return list
}

func cloneSuggestions(list []Suggestion) []Suggestion {
	if list == nil {
		return []Suggestion{}
	}
	return append([]Suggestion(nil), list...)
}
