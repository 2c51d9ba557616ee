package smartform

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ==================== 错误定义 ====================

var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrClosed             = errors.New("smart form closed")
)

// ==================== 配置 ====================

// Options 协调器时间参数
type Options struct {
	ValidationDelay   time.Duration // 校验防抖静默期
	AutocompleteDelay time.Duration // 自动补全防抖静默期
	BlurGrace         time.Duration // 失焦后隐藏建议的宽限期，保证点击建议能生效
	MaxAutocomplete   int
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		ValidationDelay:   1000 * time.Millisecond,
		AutocompleteDelay: 300 * time.Millisecond,
		BlurGrace:         200 * time.Millisecond,
		MaxAutocomplete:   8,
	}
}

// Deps 协调器依赖，均可为 nil
type Deps struct {
	Validator IssueValidator
	Suggester SuggestionSource
	History   HistoryProvider
	Market    MarketPricer
	Logger    *zap.Logger
	OnEvent   func(Event)
}

// ==================== 协调器 ====================

// Coordinator 单个编辑会话的智能表单协调器
// 持有表单、字段建议缓存、问题列表与各字段输入绑定，可并发调用
type Coordinator struct {
	session    Session
	opts       Options
	suggester  SuggestionSource
	aggregator *Aggregator
	validator  *DebouncedValidator
	logger     *zap.Logger
	onEvent    func(Event)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	form   Form
	dirty  map[string]struct{} // 会话内修改过的字段路径
	inputs map[string]*smartInput
	closed bool
}

// NewCoordinator 创建协调器
func NewCoordinator(sess Session, initial Form, deps Deps, opts Options) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "smartform"), zap.String("session", sess.ID))

	def := DefaultOptions()
	if opts.ValidationDelay <= 0 {
		opts.ValidationDelay = def.ValidationDelay
	}
	if opts.AutocompleteDelay <= 0 {
		opts.AutocompleteDelay = def.AutocompleteDelay
	}
	if opts.BlurGrace <= 0 {
		opts.BlurGrace = def.BlurGrace
	}
	if opts.MaxAutocomplete <= 0 {
		opts.MaxAutocomplete = def.MaxAutocomplete
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		session:    sess,
		opts:       opts,
		suggester:  deps.Suggester,
		aggregator: NewAggregator(deps.Suggester, deps.History, deps.Market, logger),
		logger:     logger,
		onEvent:    deps.OnEvent,
		ctx:        ctx,
		cancel:     cancel,
		form:       initial.Clone(),
		dirty:      make(map[string]struct{}),
		inputs:     make(map[string]*smartInput),
	}
	c.validator = NewDebouncedValidator(ctx, sess, deps.Validator, opts.ValidationDelay, logger, func(issues []ValidationIssue) {
		c.emit(Event{Kind: EventValidation, Issues: issues})
	})
	return c
}

// Session 会话上下文
func (c *Coordinator) Session() Session {
	return c.session
}

// Form 当前表单副本
func (c *Coordinator) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.Clone()
}

// Changes 会话内修改过的字段及其当前值
func (c *Coordinator) Changes() Form {
	c.mu.Lock()
	defer c.mu.Unlock()

	patch := Form{}
	for path := range c.dirty {
		v, _ := c.form.Get(path)
		patch.Set(path, cloneValue(v))
	}
	return patch
}

// ==================== 输入绑定 ====================

// Focus 字段获得焦点：取消待隐藏、预加载建议
func (c *Coordinator) Focus(ctx context.Context, field string) ([]Suggestion, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	in := c.input(field)
	in.hide.Cancel()
	changed := in.setState(StateFocused)
	in.show = true
	form := c.form.Clone()
	c.mu.Unlock()

	if changed {
		c.emitState(field, StateFocused)
	}
	suggestions := c.aggregator.Fetch(ctx, c.session, field, form)

	c.mu.Lock()
	if in.state == StateFocused || in.state == StateTyping {
		in.visible = cloneSuggestions(suggestions)
	}
	c.mu.Unlock()

	c.emit(Event{Kind: EventSuggestions, Field: field, Suggestions: suggestions})
	return suggestions, nil
}

// Change 字段输入变化：写入表单、防抖自动补全、登记校验
func (c *Coordinator) Change(field string, value any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	in := c.input(field)
	in.hide.Cancel()
	changed := in.setState(StateTyping)
	in.value = value
	in.show = true
	c.form.Set(field, value)
	c.dirty[field] = struct{}{}

	text, isText := value.(string)
	if isText && ShouldAutocomplete(text) {
		in.autocomplete.Call(text)
	} else {
		in.autocomplete.Cancel()
		in.visible = nil
	}
	form := c.form.Clone()
	c.mu.Unlock()

	if changed {
		c.emitState(field, StateTyping)
	}
	c.validator.Schedule(form)
	return nil
}

// Blur 字段失焦：登记校验，宽限期后隐藏建议
func (c *Coordinator) Blur(field string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	in := c.input(field)
	changed := in.setState(StateBlurred)
	in.autocomplete.Cancel()
	in.hide.Call(struct{}{})
	form := c.form.Clone()
	c.mu.Unlock()

	if changed {
		c.emitState(field, StateBlurred)
	}
	c.validator.Schedule(form)
	return nil
}

// Select 在建议列表中选择一项（宽限期内仍然有效）
func (c *Coordinator) Select(field, suggestionID string) (Suggestion, error) {
	s, err := c.ApplySuggestion(field, suggestionID)
	if err != nil {
		return Suggestion{}, err
	}

	c.mu.Lock()
	in := c.input(field)
	in.hide.Cancel()
	in.show = false
	in.visible = nil
	changed := in.setState(StateIdle)
	c.mu.Unlock()

	if changed {
		c.emitState(field, StateIdle)
	}
	c.emit(Event{Kind: EventSuggestionsHidden, Field: field})
	return s, nil
}

// Input 字段输入框快照
func (c *Coordinator) Input(field string) InputSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if in, ok := c.inputs[field]; ok {
		return in.snapshot()
	}
	v, _ := c.form.Get(field)
	return InputSnapshot{Field: field, State: StateIdle, Value: v, Suggestions: []Suggestion{}}
}

// ==================== 建议 ====================

// FetchSuggestions 拉取并缓存字段建议
func (c *Coordinator) FetchSuggestions(ctx context.Context, field string) ([]Suggestion, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	suggestions := c.aggregator.Fetch(ctx, c.session, field, c.Form())
	c.emit(Event{Kind: EventSuggestions, Field: field, Suggestions: suggestions})
	return suggestions, nil
}

// PendingSuggestions 字段待处理建议
func (c *Coordinator) PendingSuggestions(field string) []Suggestion {
	return c.aggregator.Pending(field)
}

// ApplySuggestion 应用建议：写入表单并从待处理列表移除
func (c *Coordinator) ApplySuggestion(field, suggestionID string) (Suggestion, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Suggestion{}, ErrClosed
	}
	s, ok := c.aggregator.Find(field, suggestionID)
	in := c.input(field)
	if !ok {
		s, ok = in.findVisible(suggestionID)
	}
	if !ok {
		c.mu.Unlock()
		return Suggestion{}, ErrSuggestionNotFound
	}
	c.form.Set(field, s.Value)
	c.dirty[field] = struct{}{}
	in.value = s.Value
	in.dropVisible(suggestionID)
	c.aggregator.Remove(field, suggestionID)
	form := c.form.Clone()
	c.mu.Unlock()

	c.emit(Event{Kind: EventSuggestionApplied, Field: field, Value: s.Value, Suggestions: []Suggestion{s}})
	c.validator.Schedule(form)
	return s, nil
}

// Autocomplete 自动补全：少于 2 个字符不返回结果
// 本地缓存匹配优先，再合并远端结果并按值去重
func (c *Coordinator) Autocomplete(ctx context.Context, field, input string) []Suggestion {
	if !ShouldAutocomplete(input) {
		return []Suggestion{}
	}

	local := MatchCached(input, c.aggregator.Pending(field))

	var remote []Suggestion
	if c.suggester != nil {
		form := c.Form()
		form.Set(field, input)
		list, err := c.suggester.GetSmartSuggestions(ctx, c.session, field, form)
		if err != nil {
			c.logger.Warn("自动补全远端请求失败", zap.String("field", field), zap.Error(err))
		} else {
			remote = tagField(list, field)
		}
	}
	return MergeAutocomplete(local, remote, c.opts.MaxAutocomplete)
}

// ==================== 校验 ====================

// ScheduleValidation 登记一次防抖校验
func (c *Coordinator) ScheduleValidation() {
	if c.isClosed() {
		return
	}
	c.validator.Schedule(c.Form())
}

// ValidateNow 立即校验
func (c *Coordinator) ValidateNow(ctx context.Context) ([]ValidationIssue, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	return c.validator.ValidateNow(ctx, c.Form()), nil
}

// Issues 当前问题列表
func (c *Coordinator) Issues() []ValidationIssue {
	return c.validator.Issues()
}

// ValidationCalls 已发起的远端校验次数
func (c *Coordinator) ValidationCalls() int64 {
	return c.validator.Calls()
}

// ==================== 自动填充与分析 ====================

// AutoFill 用缓存建议填充空的必填字段，返回被应用的建议
func (c *Coordinator) AutoFill() ([]Suggestion, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	applied := AutoFill(c.form, RequiredFields, c.aggregator.Best)
	for _, s := range applied {
		c.dirty[s.Field] = struct{}{}
		c.aggregator.Remove(s.Field, s.ID)
		if in, ok := c.inputs[s.Field]; ok {
			in.value = s.Value
			in.dropVisible(s.ID)
		}
	}
	form := c.form.Clone()
	c.mu.Unlock()

	if len(applied) > 0 {
		c.emit(Event{Kind: EventAutoFill, Suggestions: applied})
		c.validator.Schedule(form)
	}
	return applied, nil
}

// Analyze 表单完整度、质量与建议/问题汇总
func (c *Coordinator) Analyze() FormFieldAnalysis {
	return Analyze(c.Form(), c.aggregator.All(), c.validator.Issues())
}

// ==================== 生命周期 ====================

// Close 停止所有计时器并中止进行中的远端调用
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	inputs := make([]*smartInput, 0, len(c.inputs))
	for _, in := range c.inputs {
		inputs = append(inputs, in)
	}
	c.mu.Unlock()

	c.cancel()
	c.validator.Close()
	for _, in := range inputs {
		in.close()
	}
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// input 获取或创建字段绑定，调用方需持有 c.mu
func (c *Coordinator) input(field string) *smartInput {
	if in, ok := c.inputs[field]; ok {
		return in
	}
	in := &smartInput{field: field, state: StateIdle}
	in.autocomplete = NewDebouncer(c.opts.AutocompleteDelay, func(text string) {
		c.runAutocomplete(field, text)
	})
	in.hide = NewDebouncer(c.opts.BlurGrace, func(struct{}) {
		c.hideSuggestions(field)
	})
	c.inputs[field] = in
	return in
}

func (c *Coordinator) runAutocomplete(field, text string) {
	results := c.Autocomplete(c.ctx, field, text)

	c.mu.Lock()
	in, ok := c.inputs[field]
	if !ok || c.closed || in.state != StateTyping {
		c.mu.Unlock()
		return
	}
	// 结果返回前输入已变化，丢弃旧结果
	if current, _ := in.value.(string); current != text {
		c.mu.Unlock()
		return
	}
	in.visible = cloneSuggestions(results)
	c.mu.Unlock()

	c.emit(Event{Kind: EventAutocomplete, Field: field, Value: text, Suggestions: results})
}

func (c *Coordinator) hideSuggestions(field string) {
	c.mu.Lock()
	in, ok := c.inputs[field]
	if !ok || c.closed {
		c.mu.Unlock()
		return
	}
	in.show = false
	in.visible = nil
	changed := false
	if in.state == StateBlurred {
		changed = in.setState(StateIdle)
	}
	c.mu.Unlock()

	if changed {
		c.emitState(field, StateIdle)
	}
	c.emit(Event{Kind: EventSuggestionsHidden, Field: field})
}

func (c *Coordinator) emitState(field string, state InputState) {
	c.emit(Event{Kind: EventState, Field: field, State: state})
}

func (c *Coordinator) emit(e Event) {
	if c.onEvent == nil {
		return
	}
	e.SessionID = c.session.ID
	e.At = time.Now()
	c.onEvent(e)
}

// Snapshot 会话整体快照
type Snapshot struct {
	Session  Session           `json:"session"`
	Form     Form              `json:"form"`
	Inputs   []InputSnapshot   `json:"inputs"`
	Issues   []ValidationIssue `json:"issues"`
	Analysis FormFieldAnalysis `json:"analysis"`
}

// Snapshot 当前表单、输入框与分析结果
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	inputs := make([]InputSnapshot, 0, len(c.inputs))
	for _, in := range c.inputs {
		inputs = append(inputs, in.snapshot())
	}
	form := c.form.Clone()
	c.mu.Unlock()

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Field < inputs[j].Field })
	issues := c.validator.Issues()
	return Snapshot{
		Session:  c.session,
		Form:     form,
		Inputs:   inputs,
		Issues:   issues,
		Analysis: Analyze(form, c.aggregator.All(), issues),
	}
}
