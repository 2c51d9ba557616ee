package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/model"
	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/smartform"
)

// ==================== AI 调用记录 ====================

// AICallRecorder 写入 AI 调用日志
// repo 为 nil 时只打日志
type AICallRecorder struct {
	repo   repository.AICallLogRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAICallRecorder 创建记录器
func NewAICallRecorder(repo repository.AICallLogRepository, logger *zap.Logger) *AICallRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AICallRecorder{repo: repo, logger: logger.With(zap.String("component", "ai_log")), now: time.Now}
}

// CallScope 调用归属
type CallScope struct {
	SessionID string
	DraftID   int64
}

// Record 记录一次调用
func (r *AICallRecorder) Record(ctx context.Context, scope CallScope, callType, modelName string, usage client.Usage, start time.Time, callErr error) {
	entry := &model.AICallLog{
		SessionID:    scope.SessionID,
		DraftID:      scope.DraftID,
		CallType:     callType,
		ModelName:    modelName,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		DurationMs:   r.now().Sub(start).Milliseconds(),
		CostUSD:      model.EstimateCost(usage.InputTokens, usage.OutputTokens),
		Status:       model.AICallStatusSuccess,
	}
	if callErr != nil {
		entry.Status = model.AICallStatusFailed
		entry.ErrorMsg = truncate(callErr.Error(), 1000)
	}

	r.logger.Debug("ai call",
		zap.String("type", callType),
		zap.String("session", scope.SessionID),
		zap.String("status", entry.Status),
		zap.Int64("duration_ms", entry.DurationMs),
	)

	if r.repo == nil {
		return
	}
	// 请求已结束时仍需落库
	if err := r.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Warn("保存AI调用日志失败", zap.Error(err))
	}
}

// ==================== 智能表单端口装饰 ====================

// loggedAI 为智能表单的 AI 端口记录调用日志
type loggedAI struct {
	ai       client.AIClient
	recorder *AICallRecorder
}

var (
	_ smartform.SuggestionSource = (*loggedAI)(nil)
	_ smartform.IssueValidator   = (*loggedAI)(nil)
)

// newLoggedAI AI 为 nil 或未启用时返回 nil
func newLoggedAI(ai client.AIClient, recorder *AICallRecorder) *loggedAI {
	if ai == nil {
		return nil
	}
	if _, disabled := ai.(client.DisabledAI); disabled {
		return nil
	}
	return &loggedAI{ai: ai, recorder: recorder}
}

// LoggedValidator 记录调用日志的表单校验端口，AI 未启用时返回 nil
func LoggedValidator(ai client.AIClient, recorder *AICallRecorder) smartform.IssueValidator {
	if recorder == nil {
		recorder = NewAICallRecorder(nil, nil)
	}
	logged := newLoggedAI(ai, recorder)
	if logged == nil {
		return nil
	}
	return logged
}

func (l *loggedAI) GetSmartSuggestions(ctx context.Context, sess smartform.Session, field string, form smartform.Form) ([]smartform.Suggestion, error) {
	start := time.Now()
	list, err := l.ai.GetSmartSuggestions(ctx, sess, field, form)
	l.recorder.Record(ctx, scopeOf(sess), model.AICallTypeSuggestions, l.ai.Model(), client.Usage{}, start, err)
	return list, err
}

func (l *loggedAI) ValidatePropertyData(ctx context.Context, sess smartform.Session, form smartform.Form) ([]smartform.ValidationIssue, error) {
	start := time.Now()
	issues, err := l.ai.ValidatePropertyData(ctx, sess, form)
	l.recorder.Record(ctx, scopeOf(sess), model.AICallTypeValidation, l.ai.Model(), client.Usage{}, start, err)
	return issues, err
}

func scopeOf(sess smartform.Session) CallScope {
	return CallScope{SessionID: sess.ID, DraftID: sess.DraftID}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
