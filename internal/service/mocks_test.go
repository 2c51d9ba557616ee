package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/model"
	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/smartform"
)

// ==================== Mock 实现 ====================

type mockAI struct {
	suggestFn     func(ctx context.Context, sess smartform.Session, field string, form smartform.Form) ([]smartform.Suggestion, error)
	validateFn    func(ctx context.Context, sess smartform.Session, form smartform.Form) ([]smartform.ValidationIssue, error)
	descriptionFn func(ctx context.Context, req client.DescriptionRequest) (*client.DescriptionResult, error)
	analyzeFn     func(ctx context.Context, req client.ContentAnalysisRequest) (*client.ContentAnalysis, error)
	pricingFn     func(ctx context.Context, req client.PricingRequest) (*client.PricingSuggestion, error)
	seoFn         func(ctx context.Context, req client.SEORequest) (*client.SEOResult, error)
	marketFn      func(ctx context.Context, req client.MarketAnalysisRequest) (*client.MarketAnalysis, error)
	streamFn      func(ctx context.Context, req client.QueryRequest, onChunk func(string) error) error
}

var _ client.AIClient = (*mockAI)(nil)

func (m *mockAI) GetSmartSuggestions(ctx context.Context, sess smartform.Session, field string, form smartform.Form) ([]smartform.Suggestion, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, sess, field, form)
	}
	return nil, nil
}

func (m *mockAI) ValidatePropertyData(ctx context.Context, sess smartform.Session, form smartform.Form) ([]smartform.ValidationIssue, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, sess, form)
	}
	return []smartform.ValidationIssue{}, nil
}

func (m *mockAI) GeneratePropertyDescription(ctx context.Context, req client.DescriptionRequest) (*client.DescriptionResult, error) {
	if m.descriptionFn != nil {
		return m.descriptionFn(ctx, req)
	}
	return nil, client.ErrUnavailable
}

func (m *mockAI) AnalyzeContent(ctx context.Context, req client.ContentAnalysisRequest) (*client.ContentAnalysis, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, req)
	}
	return nil, client.ErrUnavailable
}

func (m *mockAI) SuggestPricing(ctx context.Context, req client.PricingRequest) (*client.PricingSuggestion, error) {
	if m.pricingFn != nil {
		return m.pricingFn(ctx, req)
	}
	return nil, client.ErrUnavailable
}

func (m *mockAI) OptimizeForSEO(ctx context.Context, req client.SEORequest) (*client.SEOResult, error) {
	if m.seoFn != nil {
		return m.seoFn(ctx, req)
	}
	return nil, client.ErrUnavailable
}

func (m *mockAI) AnalyzeMarket(ctx context.Context, req client.MarketAnalysisRequest) (*client.MarketAnalysis, error) {
	if m.marketFn != nil {
		return m.marketFn(ctx, req)
	}
	return nil, client.ErrUnavailable
}

func (m *mockAI) StreamQuery(ctx context.Context, req client.QueryRequest, onChunk func(string) error) error {
	if m.streamFn != nil {
		return m.streamFn(ctx, req, onChunk)
	}
	return client.ErrUnavailable
}

func (m *mockAI) Model() string { return "mock-model" }

// mockDraftRepo 内存草稿仓储
type mockDraftRepo struct {
	mu     sync.Mutex
	nextID int64
	drafts map[int64]*model.ListingDraft
}

var _ repository.DraftRepository = (*mockDraftRepo)(nil)

func newMockDraftRepo() *mockDraftRepo {
	return &mockDraftRepo{drafts: make(map[int64]*model.ListingDraft)}
}

func (m *mockDraftRepo) Create(_ context.Context, d *model.ListingDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	d.CreatedAt = time.Now()
	cp := *d
	m.drafts[d.ID] = &cp
	return nil
}

func (m *mockDraftRepo) GetByID(_ context.Context, id int64) (*model.ListingDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDraftRepo) Update(_ context.Context, d *model.ListingDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.drafts[d.ID] = &cp
	return nil
}

func (m *mockDraftRepo) UpdateFields(_ context.Context, id int64, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.drafts[id]; ok {
		if status, ok := fields["status"].(string); ok {
			d.Status = status
		}
	}
	return nil
}

func (m *mockDraftRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

func (m *mockDraftRepo) List(_ context.Context, f repository.DraftFilter) ([]model.ListingDraft, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ListingDraft
	for _, d := range m.drafts {
		if f.UserID > 0 && d.UserID != f.UserID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockDraftRepo) FindAbandoned(_ context.Context, before time.Time, limit int) ([]*model.ListingDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ListingDraft
	for _, d := range m.drafts {
		if d.Status == model.DraftStatusDraft && d.LastActiveAt.Before(before) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockDraftRepo) MarkAbandoned(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if d, ok := m.drafts[id]; ok && d.Status == model.DraftStatusDraft {
			d.Status = model.DraftStatusAbandoned
			n++
		}
	}
	return n, nil
}

// mockFeedbackRepo
type mockFeedbackRepo struct {
	mu          sync.Mutex
	created     []*model.SuggestionFeedback
	topAccepted func(field string) ([]repository.AcceptedValue, error)
}

func (m *mockFeedbackRepo) Create(_ context.Context, fb *model.SuggestionFeedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, fb)
	return nil
}

func (m *mockFeedbackRepo) TopAccepted(_ context.Context, field string, _ int) ([]repository.AcceptedValue, error) {
	if m.topAccepted != nil {
		return m.topAccepted(field)
	}
	return nil, nil
}

func (m *mockFeedbackRepo) AcceptanceRate(context.Context, string) (float64, error) {
	return 0, nil
}

func (m *mockFeedbackRepo) records() []*model.SuggestionFeedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.SuggestionFeedback(nil), m.created...)
}

// mockAILogRepo
type mockAILogRepo struct {
	mu   sync.Mutex
	logs []*model.AICallLog

	totalCost float64
	byType    []repository.CallTypeStats
	reportErr error
}

func (m *mockAILogRepo) Create(_ context.Context, l *model.AICallLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, l)
	return nil
}

func (m *mockAILogRepo) GetByID(context.Context, int64) (*model.AICallLog, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAILogRepo) GetUsageBySession(_ context.Context, sessionID string) (*repository.AIUsageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &repository.AIUsageStats{}
	for _, l := range m.logs {
		if l.SessionID == sessionID {
			st.TotalCalls++
		}
	}
	return st, nil
}

func (m *mockAILogRepo) GetUsageByDraft(context.Context, int64) (*repository.AIUsageStats, error) {
	return &repository.AIUsageStats{}, nil
}

func (m *mockAILogRepo) GetCallsByType(context.Context, time.Time, time.Time) ([]repository.CallTypeStats, error) {
	return m.byType, m.reportErr
}

func (m *mockAILogRepo) GetDailyUsage(context.Context, time.Time, time.Time) ([]repository.DailyUsageStats, error) {
	return nil, nil
}

func (m *mockAILogRepo) GetTotalCost(context.Context, time.Time, time.Time) (float64, error) {
	return m.totalCost, nil
}

func (m *mockAILogRepo) entries() []*model.AICallLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.AICallLog(nil), m.logs...)
}

// mockMarket
type mockMarket struct {
	dataFn        func(area, propertyType string) (*client.MarketData, error)
	comparablesFn func(q client.ComparablesQuery) ([]client.Comparable, error)
	insightsFn    func(area string) ([]client.Insight, error)
}

func (m *mockMarket) MarketData(_ context.Context, area, propertyType string) (*client.MarketData, error) {
	if m.dataFn != nil {
		return m.dataFn(area, propertyType)
	}
	return nil, client.ErrUnavailable
}

func (m *mockMarket) Comparables(_ context.Context, q client.ComparablesQuery) ([]client.Comparable, error) {
	if m.comparablesFn != nil {
		return m.comparablesFn(q)
	}
	return nil, client.ErrUnavailable
}

func (m *mockMarket) Insights(_ context.Context, area string) ([]client.Insight, error) {
	if m.insightsFn != nil {
		return m.insightsFn(area)
	}
	return nil, client.ErrUnavailable
}

// mockPlaces
type mockPlaces struct {
	searchFn  func(query string, limit int) ([]client.Place, error)
	reverseFn func(lat, lng float64) (*client.Place, error)
}

func (m *mockPlaces) SearchPlaces(_ context.Context, query string, limit int) ([]client.Place, error) {
	if m.searchFn != nil {
		return m.searchFn(query, limit)
	}
	return nil, nil
}

func (m *mockPlaces) ReverseGeocode(_ context.Context, lat, lng float64) (*client.Place, error) {
	if m.reverseFn != nil {
		return m.reverseFn(lat, lng)
	}
	return nil, client.ErrUnavailable
}

// ==================== 测试数据 ====================

func comparables(rates ...float64) []client.Comparable {
	out := make([]client.Comparable, 0, len(rates))
	for i, r := range rates {
		out = append(out, client.Comparable{ID: string(rune('a' + i)), NightlyRate: r, CleaningFee: r / 4})
	}
	return out
}

func completeForm() smartform.Form {
	return smartform.Form{
		"basicInfo": map[string]any{
			"title":        "Sunny loft near the river",
			"description":  "Spacious loft with a view of the river and fast wifi.",
			"propertyType": "apartment",
		},
		"location": map[string]any{
			"address": "12 Quay Street",
			"city":    "Lisbon",
		},
		"pricing": map[string]any{"basePrice": 120.0},
		"details": map[string]any{"bedrooms": 2.0},
	}
}
