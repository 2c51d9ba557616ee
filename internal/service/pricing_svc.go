package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/smartform"
)

// MarketDataSource 市场数据服务接口
type MarketDataSource interface {
	MarketData(ctx context.Context, area, propertyType string) (*client.MarketData, error)
	Comparables(ctx context.Context, q client.ComparablesQuery) ([]client.Comparable, error)
	Insights(ctx context.Context, area string) ([]client.Insight, error)
}

// ErrNoComparables 没有可比房源
var ErrNoComparables = errors.New("no comparable listings")

// 定价相关字段
const (
	fieldBasePrice   = "pricing.basePrice"
	fieldCleaningFee = "pricing.cleaningFee"
)

// ==================== 价格统计 ====================

// ComparableStats 计算可比房源价格统计
func ComparableStats(prices []float64) (*dto.PriceStats, error) {
	data := make(stats.Float64Data, 0, len(prices))
	for _, p := range prices {
		if p > 0 {
			data = append(data, p)
		}
	}
	if len(data) == 0 {
		return nil, ErrNoComparables
	}

	median, err := stats.Median(data)
	if err != nil {
		return nil, fmt.Errorf("median: %w", err)
	}
	// 最近秩百分位，样本很少时也有定义
	p25, err := stats.PercentileNearestRank(data, 25)
	if err != nil {
		return nil, fmt.Errorf("p25: %w", err)
	}
	p75, err := stats.PercentileNearestRank(data, 75)
	if err != nil {
		return nil, fmt.Errorf("p75: %w", err)
	}
	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviation(data)

	return &dto.PriceStats{
		SampleSize: len(data),
		Median:     round2(median),
		P25:        round2(p25),
		P75:        round2(p75),
		Mean:       round2(mean),
		StdDev:     round2(sd),
	}, nil
}

// sampleConfidence 样本越多置信度越高
func sampleConfidence(n int) float64 {
	return math.Min(0.4+0.05*float64(n), 0.9)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ==================== 定价建议来源 ====================

// PricingAdvisor 基于可比房源的价格字段建议
type PricingAdvisor struct {
	market MarketDataSource
	limit  int
	logger *zap.Logger
}

var _ smartform.MarketPricer = (*PricingAdvisor)(nil)

// NewPricingAdvisor 创建定价建议来源
func NewPricingAdvisor(market MarketDataSource, logger *zap.Logger) *PricingAdvisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricingAdvisor{market: market, limit: 20, logger: logger.With(zap.String("component", "pricing"))}
}

// PriceSuggestions 价格字段给出 p25 / 中位数 / p75 三档建议
// 非价格字段或缺少城市时返回空
func (p *PricingAdvisor) PriceSuggestions(ctx context.Context, sess smartform.Session, field string, form smartform.Form) ([]smartform.Suggestion, error) {
	if p.market == nil || (field != fieldBasePrice && field != fieldCleaningFee) {
		return nil, nil
	}

	area := formString(form, "location.city")
	if area == "" {
		return nil, nil
	}

	comps, err := p.market.Comparables(ctx, comparablesQuery(area, sess, form, p.limit))
	if err != nil {
		return nil, err
	}

	prices := make([]float64, 0, len(comps))
	for _, c := range comps {
		if field == fieldCleaningFee {
			prices = append(prices, c.CleaningFee)
		} else {
			prices = append(prices, c.NightlyRate)
		}
	}

	st, err := ComparableStats(prices)
	if errors.Is(err, ErrNoComparables) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	conf := sampleConfidence(st.SampleSize)
	tiers := []smartform.Suggestion{
		smartform.NewMarketSuggestion(field, st.Median, conf,
			fmt.Sprintf("%s 同类房源中位价", area), st.SampleSize, 50),
		smartform.NewMarketSuggestion(field, st.P25, conf*0.8,
			"价格更具竞争力，利于提升入住率", st.SampleSize, 25),
		smartform.NewMarketSuggestion(field, st.P75, conf*0.7,
			"高端定位，适合设施完善的房源", st.SampleSize, 75),
	}

	// 样本集中时三档可能相同
	out := make([]smartform.Suggestion, 0, len(tiers))
	seen := make(map[float64]bool)
	for _, s := range tiers {
		v := s.Value.(float64)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, s)
	}
	return out, nil
}

func comparablesQuery(area string, sess smartform.Session, form smartform.Form, limit int) client.ComparablesQuery {
	propertyType := formString(form, "basicInfo.propertyType")
	if propertyType == "" {
		propertyType = sess.PropertyType
	}
	return client.ComparablesQuery{
		Area:         area,
		PropertyType: propertyType,
		Bedrooms:     formInt(form, "details.bedrooms"),
		Limit:        limit,
	}
}

// ==================== 表单取值 ====================

func formString(form smartform.Form, path string) string {
	v, ok := form.Get(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func formFloat(form smartform.Form, path string) float64 {
	v, ok := form.Get(path)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func formInt(form smartform.Form, path string) int {
	return int(formFloat(form, path))
}
