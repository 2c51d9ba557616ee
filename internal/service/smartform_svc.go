package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/model"
	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/smartform"
)

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("smart form session not found")

// DraftStore 草稿读写接口，会话以草稿表单为初始值，关闭时回写会话内修改过的字段
type DraftStore interface {
	Form(ctx context.Context, id int64) (smartform.Form, error)
	SyncForm(ctx context.Context, id int64, changes smartform.Form) error
}

// SmartFormDeps 智能表单服务依赖，除 AI 外均可为 nil
type SmartFormDeps struct {
	AI       client.AIClient
	Location smartform.SuggestionSource
	History  smartform.HistoryProvider
	Pricer   smartform.MarketPricer
	Feedback repository.FeedbackRepository
	Recorder *AICallRecorder
	Drafts   DraftStore
	Options  smartform.Options
	TTL      time.Duration
	Logger   *zap.Logger
}

// sessionEntry 会话条目
type sessionEntry struct {
	coord      *smartform.Coordinator
	lastActive time.Time
}

// ==================== 服务实现 ====================

// SmartFormService 智能表单会话服务
// 每个编辑会话持有一个 Coordinator，事件推送给 SSE 订阅者
type SmartFormService struct {
	validator smartform.IssueValidator
	suggester smartform.SuggestionSource
	history   smartform.HistoryProvider
	pricer    smartform.MarketPricer
	feedback  repository.FeedbackRepository
	drafts    DraftStore
	opts      smartform.Options
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	// 事件订阅管理
	subscribers     map[string][]chan smartform.Event
	subscriberMutex sync.RWMutex
}

// NewSmartFormService 创建智能表单服务
func NewSmartFormService(deps SmartFormDeps) *SmartFormService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	s := &SmartFormService{
		history:     deps.History,
		pricer:      deps.Pricer,
		feedback:    deps.Feedback,
		drafts:      deps.Drafts,
		opts:        deps.Options,
		ttl:         ttl,
		logger:      logger.With(zap.String("component", "smartform_svc")),
		now:         time.Now,
		sessions:    make(map[string]*sessionEntry),
		subscribers: make(map[string][]chan smartform.Event),
	}

	recorder := deps.Recorder
	if recorder == nil {
		recorder = NewAICallRecorder(nil, logger)
	}
	var ai smartform.SuggestionSource
	if logged := newLoggedAI(deps.AI, recorder); logged != nil {
		s.validator = logged
		ai = logged
	}

	switch {
	case ai != nil && deps.Location != nil:
		s.suggester = sourceChain{ai, deps.Location}
	case ai != nil:
		s.suggester = ai
	case deps.Location != nil:
		s.suggester = deps.Location
	}
	return s
}

// ==================== 事件订阅 ====================

// Subscribe 订阅会话事件
// 会话检查与登记 channel 在同一把锁内完成
func (s *SmartFormService) Subscribe(sessionID string) (chan smartform.Event, error) {
	s.subscriberMutex.Lock()
	defer s.subscriberMutex.Unlock()

	if _, err := s.entry(sessionID); err != nil {
		return nil, err
	}

	ch := make(chan smartform.Event, 10)
	s.subscribers[sessionID] = append(s.subscribers[sessionID], ch)
	return ch, nil
}

// Unsubscribe 取消订阅
func (s *SmartFormService) Unsubscribe(sessionID string, ch chan smartform.Event) {
	s.subscriberMutex.Lock()
	defer s.subscriberMutex.Unlock()

	subs := s.subscribers[sessionID]
	for i, sub := range subs {
		if sub == ch {
			s.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(s.subscribers[sessionID]) == 0 {
		delete(s.subscribers, sessionID)
	}
}

// Subscribers 会话当前订阅数
func (s *SmartFormService) Subscribers(sessionID string) int {
	s.subscriberMutex.RLock()
	defer s.subscriberMutex.RUnlock()
	return len(s.subscribers[sessionID])
}

// notify 推送事件
func (s *SmartFormService) notify(event smartform.Event) {
	s.subscriberMutex.RLock()
	defer s.subscriberMutex.RUnlock()

	for _, ch := range s.subscribers[event.SessionID] {
		select {
		case ch <- event:
		default:
			// channel 已满，跳过
		}
	}
}

// closeSubscribers 会话结束时关闭所有订阅
func (s *SmartFormService) closeSubscribers(sessionID string) {
	s.subscriberMutex.Lock()
	defer s.subscriberMutex.Unlock()

	for _, ch := range s.subscribers[sessionID] {
		close(ch)
	}
	delete(s.subscribers, sessionID)
}

// ==================== 会话生命周期 ====================

// CreateSession 创建会话
func (s *SmartFormService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*smartform.Snapshot, error) {
	initial := req.Form.Clone()
	if req.DraftID > 0 {
		if s.drafts == nil {
			return nil, fmt.Errorf("%w: 草稿存储未配置", ErrDraftNotFound)
		}
		form, err := s.drafts.Form(ctx, req.DraftID)
		if err != nil {
			return nil, err
		}
		form.Merge(initial)
		initial = form
	}

	propertyType := req.PropertyType
	if propertyType == "" {
		propertyType = formString(initial, "basicInfo.propertyType")
	}

	sess := smartform.Session{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		DraftID:        req.DraftID,
		PropertyType:   propertyType,
		ConversationID: req.ConversationID,
		CreatedAt:      s.now(),
	}

	coord := smartform.NewCoordinator(sess, initial, smartform.Deps{
		Validator: s.validator,
		Suggester: s.suggester,
		History:   s.history,
		Market:    s.pricer,
		Logger:    s.logger,
		OnEvent:   s.notify,
	}, s.opts)

	s.mu.Lock()
	s.sessions[sess.ID] = &sessionEntry{coord: coord, lastActive: s.now()}
	s.mu.Unlock()

	s.logger.Info("会话已创建", zap.String("session", sess.ID), zap.Int64("draft_id", sess.DraftID))
	snap := coord.Snapshot()
	return &snap, nil
}

// Snapshot 会话快照
func (s *SmartFormService) Snapshot(sessionID string) (*smartform.Snapshot, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	snap := coord.Snapshot()
	return &snap, nil
}

// CloseSession 关闭会话，关联草稿时回写表单
func (s *SmartFormService) CloseSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return s.shutdown(ctx, sessionID, entry.coord)
}

// SweepIdle 关闭超过 TTL 未活动的会话，返回关闭数量
func (s *SmartFormService) SweepIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	expired := make(map[string]*smartform.Coordinator)
	for id, entry := range s.sessions {
		if entry.lastActive.Before(cutoff) {
			expired[id] = entry.coord
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for id, coord := range expired {
		if err := s.shutdown(ctx, id, coord); err != nil {
			s.logger.Warn("过期会话回写失败", zap.String("session", id), zap.Error(err))
		}
	}
	if len(expired) > 0 {
		s.logger.Info("清理过期会话", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Shutdown 关闭全部会话
func (s *SmartFormService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for id, entry := range all {
		if err := s.shutdown(ctx, id, entry.coord); err != nil {
			s.logger.Warn("会话回写失败", zap.String("session", id), zap.Error(err))
		}
	}
}

// ActiveSessions 活跃会话数
func (s *SmartFormService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SmartFormService) shutdown(ctx context.Context, sessionID string, coord *smartform.Coordinator) error {
	coord.Close()
	s.closeSubscribers(sessionID)

	sess := coord.Session()
	if sess.DraftID == 0 || s.drafts == nil {
		return nil
	}
	changes := coord.Changes()
	if len(changes) == 0 {
		return nil
	}
	if err := s.drafts.SyncForm(ctx, sess.DraftID, changes); err != nil {
		return fmt.Errorf("回写草稿 %d 失败: %w", sess.DraftID, err)
	}
	return nil
}

// ==================== 字段交互 ====================

// Focus 字段获得焦点
func (s *SmartFormService) Focus(ctx context.Context, sessionID, field string) (*dto.FieldResponse, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	suggestions, err := coord.Focus(ctx, field)
	if err != nil {
		return nil, err
	}
	return &dto.FieldResponse{Input: coord.Input(field), Suggestions: suggestions}, nil
}

// Input 字段输入
func (s *SmartFormService) Input(sessionID, field string, value any) (*dto.FieldResponse, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	if err := coord.Change(field, value); err != nil {
		return nil, err
	}
	return &dto.FieldResponse{Input: coord.Input(field), Suggestions: coord.PendingSuggestions(field)}, nil
}

// Blur 字段失焦
func (s *SmartFormService) Blur(sessionID, field string) (*dto.FieldResponse, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	if err := coord.Blur(field); err != nil {
		return nil, err
	}
	return &dto.FieldResponse{Input: coord.Input(field), Suggestions: coord.PendingSuggestions(field)}, nil
}

// Suggestions 拉取字段建议
func (s *SmartFormService) Suggestions(ctx context.Context, sessionID, field string) ([]smartform.Suggestion, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return coord.FetchSuggestions(ctx, field)
}

// Autocomplete 自动补全
func (s *SmartFormService) Autocomplete(ctx context.Context, sessionID, field, query string) ([]smartform.Suggestion, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return coord.Autocomplete(ctx, field, query), nil
}

// Apply 采纳建议并记录反馈
func (s *SmartFormService) Apply(ctx context.Context, sessionID string, req *dto.ApplySuggestionRequest) (*dto.ApplyResult, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	applied, err := coord.Select(req.Field, req.SuggestionID)
	if err != nil {
		return nil, err
	}
	s.recordFeedback(ctx, coord.Session(), applied)
	return &dto.ApplyResult{Applied: applied, Form: coord.Form()}, nil
}

// Validate 立即校验
func (s *SmartFormService) Validate(ctx context.Context, sessionID string) (*dto.ValidateResult, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	issues, err := coord.ValidateNow(ctx)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []smartform.ValidationIssue{}
	}
	return &dto.ValidateResult{Issues: issues, HasErrors: smartform.HasErrors(issues)}, nil
}

// AutoFill 用缓存建议填充空的必填字段
func (s *SmartFormService) AutoFill(ctx context.Context, sessionID string) (*dto.AutoFillResult, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	applied, err := coord.AutoFill()
	if err != nil {
		return nil, err
	}
	for _, sg := range applied {
		s.recordFeedback(ctx, coord.Session(), sg)
	}
	if applied == nil {
		applied = []smartform.Suggestion{}
	}
	return &dto.AutoFillResult{Filled: len(applied), Applied: applied, Analysis: coord.Analyze()}, nil
}

// Analysis 表单分析
func (s *SmartFormService) Analysis(sessionID string) (*smartform.FormFieldAnalysis, error) {
	coord, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	analysis := coord.Analyze()
	return &analysis, nil
}

// ==================== 内部方法 ====================

func (s *SmartFormService) entry(sessionID string) (*sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// touch 获取会话并刷新活跃时间
func (s *SmartFormService) touch(sessionID string) (*smartform.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.lastActive = s.now()
	return entry.coord, nil
}

// recordFeedback 记录采纳，失败只打日志
func (s *SmartFormService) recordFeedback(ctx context.Context, sess smartform.Session, sg smartform.Suggestion) {
	if s.feedback == nil {
		return
	}
	value, err := json.Marshal(sg.Value)
	if err != nil {
		s.logger.Warn("建议值序列化失败", zap.String("field", sg.Field), zap.Error(err))
		return
	}
	fb := &model.SuggestionFeedback{
		SessionID:      sess.ID,
		DraftID:        sess.DraftID,
		Field:          sg.Field,
		Value:          datatypes.JSON(value),
		ValueText:      truncate(sg.ValueString(), 500),
		SuggestionType: string(sg.Type()),
		Confidence:     sg.Confidence,
		Accepted:       true,
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		s.logger.Warn("保存建议反馈失败", zap.String("field", sg.Field), zap.Error(err))
	}
}
