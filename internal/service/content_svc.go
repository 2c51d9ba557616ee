package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/model"
	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/smartform"
)

const (
	sourceAI     = "ai"
	sourceMarket = "market"
	sourceLocal  = "local"
)

// ContentService AI 内容能力：描述生成、SEO、定价、内容分析、市场分析
type ContentService struct {
	ai       client.AIClient
	market   MarketDataSource
	logs     repository.AICallLogRepository
	recorder *AICallRecorder
	logger   *zap.Logger
}

// NewContentService market / logs 可为 nil
func NewContentService(ai client.AIClient, market MarketDataSource, logs repository.AICallLogRepository, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ai == nil {
		ai = client.DisabledAI{}
	}
	return &ContentService{
		ai:       ai,
		market:   market,
		logs:     logs,
		recorder: NewAICallRecorder(logs, logger),
		logger:   logger.With(zap.String("component", "content")),
	}
}

// ==================== 描述生成 ====================

// GenerateDescription 生成房源描述
func (s *ContentService) GenerateDescription(ctx context.Context, req *dto.GenerateDescriptionRequest) (*client.DescriptionResult, error) {
	start := time.Now()
	result, err := s.ai.GeneratePropertyDescription(ctx, client.DescriptionRequest{
		Form:     req.Form,
		Tone:     req.Tone,
		Language: req.Language,
		MaxWords: req.MaxWords,
	})
	s.recorder.Record(ctx, CallScope{req.SessionID, req.DraftID}, model.AICallTypeDescription, s.ai.Model(), usageOf(result, err), start, err)
	if err != nil {
		return nil, fmt.Errorf("生成描述失败: %w", err)
	}
	return result, nil
}

// ==================== SEO ====================

// OptimizeSEO 标题 / 描述 SEO 优化
func (s *ContentService) OptimizeSEO(ctx context.Context, req *dto.OptimizeSEORequest) (*client.SEOResult, error) {
	start := time.Now()
	result, err := s.ai.OptimizeForSEO(ctx, client.SEORequest{
		Title:       req.Title,
		Description: req.Description,
		Keywords:    req.Keywords,
	})
	s.recorder.Record(ctx, CallScope{req.SessionID, req.DraftID}, model.AICallTypeSEO, s.ai.Model(), usageOf(result, err), start, err)
	if err != nil {
		return nil, fmt.Errorf("SEO优化失败: %w", err)
	}
	return result, nil
}

// ==================== 定价 ====================

// SuggestPricing 定价建议
// 先取可比房源统计，再交给 AI；AI 不可用时按统计结果给出
func (s *ContentService) SuggestPricing(ctx context.Context, req *dto.SuggestPricingRequest) (*dto.PricingResult, error) {
	area := formString(req.Form, "location.city")

	var (
		market   *dto.PriceStats
		currency string
		prices   []float64
	)
	if s.market != nil && area != "" {
		comps, err := s.market.Comparables(ctx, comparablesQuery(area, smartform.Session{}, req.Form, 20))
		if err != nil {
			s.logger.Warn("获取可比房源失败", zap.String("area", area), zap.Error(err))
		}
		for _, c := range comps {
			prices = append(prices, c.NightlyRate)
		}
		if len(prices) > 0 {
			market, err = ComparableStats(prices)
			if err != nil && !errors.Is(err, ErrNoComparables) {
				s.logger.Warn("价格统计失败", zap.Error(err))
			}
		}
		if md, err := s.market.MarketData(ctx, area, formString(req.Form, "basicInfo.propertyType")); err == nil && md != nil {
			currency = md.Currency
		}
	}

	start := time.Now()
	ai, err := s.ai.SuggestPricing(ctx, client.PricingRequest{Form: req.Form, Area: area, Comparables: prices})
	s.recorder.Record(ctx, CallScope{req.SessionID, req.DraftID}, model.AICallTypePricing, s.ai.Model(), usageOf(ai, err), start, err)

	if err == nil {
		return &dto.PricingResult{
			SuggestedPrice: ai.SuggestedPrice,
			MinPrice:       ai.MinPrice,
			MaxPrice:       ai.MaxPrice,
			Currency:       orString(ai.Currency, currency),
			Confidence:     ai.Confidence,
			Reasoning:      ai.Reasoning,
			Source:         sourceAI,
			Market:         market,
		}, nil
	}

	if market == nil {
		return nil, fmt.Errorf("定价建议失败: %w", err)
	}
	s.logger.Info("AI定价不可用，使用市场统计", zap.String("area", area), zap.Error(err))
	return &dto.PricingResult{
		SuggestedPrice: market.Median,
		MinPrice:       market.P25,
		MaxPrice:       market.P75,
		Currency:       currency,
		Confidence:     sampleConfidence(market.SampleSize),
		Reasoning:      fmt.Sprintf("基于 %s %d 个可比房源的中位价", area, market.SampleSize),
		Source:         sourceMarket,
		Market:         market,
	}, nil
}

// ==================== 内容分析 ====================

// AnalyzeContent 内容分析，AI 不可用时使用本地评分
func (s *ContentService) AnalyzeContent(ctx context.Context, req *dto.AnalyzeContentRequest) (*dto.ContentAnalysisResult, error) {
	titleScore := smartform.ScoreTitle(req.Title)
	descScore := smartform.ScoreDescription(req.Description)

	start := time.Now()
	ai, err := s.ai.AnalyzeContent(ctx, client.ContentAnalysisRequest{Title: req.Title, Description: req.Description})
	s.recorder.Record(ctx, CallScope{req.SessionID, req.DraftID}, model.AICallTypeAnalysis, s.ai.Model(), usageOf(ai, err), start, err)

	if err == nil {
		return &dto.ContentAnalysisResult{
			Score:            ai.Score,
			TitleScore:       titleScore,
			DescriptionScore: descScore,
			Readability:      ai.Readability,
			Strengths:        nonNil(ai.Strengths),
			Improvements:     nonNil(ai.Improvements),
			Keywords:         nonNil(ai.Keywords),
			Source:           sourceAI,
		}, nil
	}

	s.logger.Info("AI内容分析不可用，使用本地评分", zap.Error(err))
	return &dto.ContentAnalysisResult{
		Score:            (titleScore + descScore) / 2,
		TitleScore:       titleScore,
		DescriptionScore: descScore,
		Strengths:        []string{},
		Improvements:     localImprovements(req.Title, req.Description, titleScore, descScore),
		Keywords:         []string{},
		Source:           sourceLocal,
	}, nil
}

func localImprovements(title, desc string, titleScore, descScore int) []string {
	out := []string{}
	if strings.TrimSpace(title) == "" {
		out = append(out, "添加标题")
	} else if titleScore < 60 {
		out = append(out, "标题建议 20-60 个字符，并包含房源亮点")
	}
	if strings.TrimSpace(desc) == "" {
		out = append(out, "添加房源描述")
	} else if descScore < 60 {
		out = append(out, "描述建议分段介绍空间、设施与周边")
	}
	return out
}

// ==================== 市场分析 ====================

// AnalyzeMarket 并行获取市场概况、洞察与 AI 分析
// 任一来源失败不影响其他来源，全部失败时返回错误
func (s *ContentService) AnalyzeMarket(ctx context.Context, req *dto.MarketAnalysisRequest) (*dto.MarketOverview, error) {
	var (
		data     *client.MarketData
		insights []client.Insight
		analysis *client.MarketAnalysis
		errs     [3]error
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.market != nil {
		g.Go(func() error {
			data, errs[0] = s.market.MarketData(gctx, req.Area, req.PropertyType)
			return nil
		})
		g.Go(func() error {
			insights, errs[1] = s.market.Insights(gctx, req.Area)
			return nil
		})
	} else {
		errs[0], errs[1] = client.ErrUnavailable, client.ErrUnavailable
	}
	g.Go(func() error {
		start := time.Now()
		analysis, errs[2] = s.ai.AnalyzeMarket(gctx, client.MarketAnalysisRequest{
			Area:         req.Area,
			PropertyType: req.PropertyType,
			Bedrooms:     req.Bedrooms,
		})
		s.recorder.Record(ctx, CallScope{req.SessionID, req.DraftID}, model.AICallTypeMarket, s.ai.Model(), usageOf(analysis, errs[2]), start, errs[2])
		return nil
	})
	_ = g.Wait()

	if errs[0] != nil && errs[1] != nil && errs[2] != nil {
		return nil, fmt.Errorf("市场分析失败: %w", errors.Join(errs[:]...))
	}

	out := &dto.MarketOverview{Area: req.Area, PropertyType: req.PropertyType}
	if data != nil {
		out.AverageRate = data.AverageRate
		out.MedianRate = data.MedianRate
		out.OccupancyRate = data.OccupancyRate
		out.ActiveCount = data.ActiveCount
		out.Currency = data.Currency
	}
	for _, in := range insights {
		out.Insights = append(out.Insights, in.Message)
	}
	if analysis != nil {
		out.Summary = analysis.Summary
		out.Trends = analysis.Trends
		if out.AverageRate == 0 {
			out.AverageRate = analysis.AverageRate
		}
		if out.OccupancyRate == 0 {
			out.OccupancyRate = analysis.OccupancyRate
		}
	}
	for i, err := range errs {
		if err != nil {
			s.logger.Debug("市场分析来源失败", zap.Int("source", i), zap.Error(err))
		}
	}
	return out, nil
}

// ==================== 流式问答 ====================

// StreamQuery 流式问答
func (s *ContentService) StreamQuery(ctx context.Context, req *dto.QueryRequest, onChunk func(string) error) error {
	start := time.Now()
	err := s.ai.StreamQuery(ctx, client.QueryRequest{
		SessionID:      req.SessionID,
		ConversationID: req.ConversationID,
		Query:          req.Query,
		Form:           req.Form,
	}, onChunk)
	s.recorder.Record(ctx, CallScope{SessionID: req.SessionID}, model.AICallTypeQuery, s.ai.Model(), client.Usage{}, start, err)
	return err
}

// ==================== 用量 ====================

// SessionUsage 会话 AI 用量
func (s *ContentService) SessionUsage(ctx context.Context, sessionID string) (*repository.AIUsageStats, error) {
	if s.logs == nil {
		return &repository.AIUsageStats{}, nil
	}
	return s.logs.GetUsageBySession(ctx, sessionID)
}

// DraftUsage 草稿 AI 用量
func (s *ContentService) DraftUsage(ctx context.Context, draftID int64) (*repository.AIUsageStats, error) {
	if s.logs == nil {
		return &repository.AIUsageStats{}, nil
	}
	return s.logs.GetUsageByDraft(ctx, draftID)
}

// UsageReport 汇总 [from, to] 内的费用、按类型与按天统计
func (s *ContentService) UsageReport(ctx context.Context, from, to time.Time) (*dto.AIUsageReport, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: 结束时间必须晚于开始时间", ErrInvalidQuery)
	}
	report := &dto.AIUsageReport{
		From:   from,
		To:     to,
		ByType: []repository.CallTypeStats{},
		Daily:  []repository.DailyUsageStats{},
	}
	if s.logs == nil {
		return report, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cost, err := s.logs.GetTotalCost(gctx, from, to)
		report.TotalCostUSD = cost
		return err
	})
	g.Go(func() error {
		byType, err := s.logs.GetCallsByType(gctx, from, to)
		if byType != nil {
			report.ByType = byType
		}
		return err
	})
	g.Go(func() error {
		daily, err := s.logs.GetDailyUsage(gctx, from, to)
		if daily != nil {
			report.Daily = daily
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("查询 AI 用量失败: %w", err)
	}
	return report, nil
}

// ==================== 辅助函数 ====================

// usageOf 从结果中取 token 用量
func usageOf(result any, err error) client.Usage {
	if err != nil || result == nil {
		return client.Usage{}
	}
	switch r := result.(type) {
	case *client.DescriptionResult:
		if r != nil {
			return r.Usage
		}
	case *client.SEOResult:
		if r != nil {
			return r.Usage
		}
	case *client.PricingSuggestion:
		if r != nil {
			return r.Usage
		}
	case *client.ContentAnalysis:
		if r != nil {
			return r.Usage
		}
	case *client.MarketAnalysis:
		if r != nil {
			return r.Usage
		}
	}
	return client.Usage{}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
