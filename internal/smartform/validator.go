package smartform

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// IssueValidator 远端表单校验（validatePropertyData）
type IssueValidator interface {
	ValidatePropertyData(ctx context.Context, sess Session, form Form) ([]ValidationIssue, error)
}

type validationCall struct {
	gen  uint64
	form Form
}

// DebouncedValidator 防抖校验器
//   - 静默 delay 后用最新表单调用远端校验，并替换问题列表
//   - 失败时保留旧的问题列表
//   - 后发起的调用优先：被新调用取代的响应直接丢弃
type DebouncedValidator struct {
	ctx       context.Context
	session   Session
	validator IssueValidator
	logger    *zap.Logger
	onUpdate  func([]ValidationIssue)

	debouncer *Debouncer[validationCall]
	calls     atomic.Int64

	mu     sync.RWMutex
	gen    uint64
	issues []ValidationIssue
}

// NewDebouncedValidator 创建防抖校验器，ctx 取消后进行中的远端调用随之中止
func NewDebouncedValidator(ctx context.Context, sess Session, v IssueValidator, delay time.Duration, logger *zap.Logger, onUpdate func([]ValidationIssue)) *DebouncedValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	dv := &DebouncedValidator{
		ctx:       ctx,
		session:   sess,
		validator: v,
		logger:    logger,
		onUpdate:  onUpdate,
		issues:    []ValidationIssue{},
	}
	dv.debouncer = NewDebouncer(delay, func(call validationCall) {
		dv.run(dv.ctx, call)
	})
	return dv
}

// Schedule 登记一次校验，静默期内的多次调用合并为一次
func (v *DebouncedValidator) Schedule(form Form) {
	v.mu.Lock()
	v.gen++
	call := validationCall{gen: v.gen, form: form.Clone()}
	v.mu.Unlock()

	v.debouncer.Call(call)
}

// ValidateNow 立即校验并返回最新的问题列表
func (v *DebouncedValidator) ValidateNow(ctx context.Context, form Form) []ValidationIssue {
	v.debouncer.Cancel()

	v.mu.Lock()
	v.gen++
	call := validationCall{gen: v.gen, form: form.Clone()}
	v.mu.Unlock()

	v.run(ctx, call)
	return v.Issues()
}

// Issues 当前问题列表
func (v *DebouncedValidator) Issues() []ValidationIssue {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]ValidationIssue{}, v.issues...)
}

// Calls 已发起的远端校验次数
func (v *DebouncedValidator) Calls() int64 {
	return v.calls.Load()
}

// Pending 是否有等待中的校验
func (v *DebouncedValidator) Pending() bool {
	return v.debouncer.Pending()
}

// Close 取消等待中的校验并等待进行中的调用结束
func (v *DebouncedValidator) Close() {
	v.debouncer.Close()
}

func (v *DebouncedValidator) run(ctx context.Context, call validationCall) {
	if v.validator == nil {
		return
	}
	v.calls.Add(1)

	issues, err := v.validator.ValidatePropertyData(ctx, v.session, call.form)
	if err != nil {
		v.logger.Warn("表单校验失败，保留原问题列表", zap.String("session", v.session.ID), zap.Error(err))
		return
	}
	if issues == nil {
		issues = []ValidationIssue{}
	}

	v.mu.Lock()
	if call.gen != v.gen {
		v.mu.Unlock()
		v.logger.Debug("丢弃过期的校验结果", zap.String("session", v.session.ID), zap.Uint64("gen", call.gen))
		return
	}
	v.issues = issues
	v.mu.Unlock()

	if v.onUpdate != nil {
		v.onUpdate(append([]ValidationIssue{}, issues...))
	}
}
