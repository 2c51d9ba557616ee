package smartform

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// HistoryProvider 历史建议来源
type HistoryProvider interface {
	Historical(ctx context.Context, field string) ([]Suggestion, error)
}

//go:embed data/historical.yaml
var historicalYAML []byte

type historicalEntry struct {
	Value       any     `yaml:"value"`
	Occurrences int     `yaml:"occurrences"`
	Confidence  float64 `yaml:"confidence"`
}

// StaticHistory 内置的历史常用值表，按字段名查找
type StaticHistory struct {
	table map[string][]historicalEntry
}

// NewStaticHistory 加载内置历史表
func NewStaticHistory() (*StaticHistory, error) {
	return ParseStaticHistory(historicalYAML)
}

// ParseStaticHistory 从 YAML 解析历史表
func ParseStaticHistory(data []byte) (*StaticHistory, error) {
	table := make(map[string][]historicalEntry)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("解析历史建议表失败: %w", err)
	}
	for field := range table {
		entries := table[field]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Confidence > entries[j].Confidence
		})
	}
	return &StaticHistory{table: table}, nil
}

// Historical 返回字段的历史建议
func (h *StaticHistory) Historical(_ context.Context, field string) ([]Suggestion, error) {
	entries := h.table[field]
	out := make([]Suggestion, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewHistoricalSuggestion(field, e.Value, e.Confidence, e.Occurrences))
	}
	return out, nil
}

// Fields 历史表覆盖的字段
func (h *StaticHistory) Fields() []string {
	fields := make([]string, 0, len(h.table))
	for f := range h.table {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// NewHistoricalSuggestion 构造历史建议，ID 由字段与值决定
func NewHistoricalSuggestion(field string, value any, confidence float64, occurrences int) Suggestion {
	return Suggestion{
		ID:         stableID(SuggestionHistorical, field, value),
		Field:      field,
		Value:      value,
		Confidence: clampConfidence(confidence),
		Reason:     fmt.Sprintf("%d 个同类房源使用该值", occurrences),
		Origin:     HistoricalOrigin{Occurrences: occurrences},
	}
}

// NewAISuggestion 构造 AI 建议
func NewAISuggestion(field string, value any, confidence float64, reason, model string) Suggestion {
	return Suggestion{
		ID:         uuid.NewString(),
		Field:      field,
		Value:      value,
		Confidence: clampConfidence(confidence),
		Reason:     reason,
		Origin:     AIOrigin{Model: model},
	}
}

// NewMarketSuggestion 构造市场数据建议
func NewMarketSuggestion(field string, value any, confidence float64, reason string, sampleSize int, percentile float64) Suggestion {
	return Suggestion{
		ID:         stableID(SuggestionMarketData, field, value),
		Field:      field,
		Value:      value,
		Confidence: clampConfidence(confidence),
		Reason:     reason,
		Origin:     MarketOrigin{SampleSize: sampleSize, Percentile: percentile},
	}
}

func stableID(t SuggestionType, field string, value any) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(t)+"|"+field+"|"+valueString(value))).String()
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
