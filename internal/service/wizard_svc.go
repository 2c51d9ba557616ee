package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"rental_listing_v1/internal/api/dto"
	"rental_listing_v1/internal/model"
	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/smartform"
)

// ==================== 错误定义 ====================

var (
	ErrDraftNotFound    = errors.New("draft not found")
	ErrDraftNotEditable = errors.New("draft is not editable")
	ErrUnknownStep      = errors.New("unknown wizard step")
	ErrDraftIncomplete  = errors.New("draft is incomplete")
	ErrDraftInvalid     = errors.New("draft has validation errors")
)

// ==================== 服务实现 ====================

// WizardService 房源创建向导草稿服务
type WizardService struct {
	repo      repository.DraftRepository
	validator smartform.IssueValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewWizardService validator 为 nil 时提交只做本地完整度检查
func NewWizardService(repo repository.DraftRepository, validator smartform.IssueValidator, logger *zap.Logger) *WizardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WizardService{
		repo:      repo,
		validator: validator,
		logger:    logger.With(zap.String("component", "wizard")),
		now:       time.Now,
	}
}

// ==================== 创建 / 查询 ====================

// Create 创建草稿
func (s *WizardService) Create(ctx context.Context, req *dto.CreateDraftRequest) (*dto.DraftVO, error) {
	form := req.FormData.Clone()

	draft := &model.ListingDraft{
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		CurrentStep:    model.StepBasicInfo,
		CompletedSteps: pq.StringArray{},
		Keywords:       pq.StringArray{},
		Status:         model.DraftStatusDraft,
	}
	if err := s.applyForm(draft, form); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("创建草稿失败: %w", err)
	}

	s.logger.Info("草稿已创建", zap.Int64("draft_id", draft.ID), zap.Int64("user_id", draft.UserID))
	return toDraftVO(draft, form), nil
}

// Get 草稿详情
func (s *WizardService) Get(ctx context.Context, id int64) (*dto.DraftVO, error) {
	draft, form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDraftVO(draft, form), nil
}

// Form 草稿表单
func (s *WizardService) Form(ctx context.Context, id int64) (smartform.Form, error) {
	_, form, err := s.load(ctx, id)
	return form, err
}

// List 草稿列表
func (s *WizardService) List(ctx context.Context, req *dto.ListDraftsRequest) ([]dto.DraftVO, int64, error) {
	drafts, total, err := s.repo.List(ctx, repository.DraftFilter{
		UserID:   req.UserID,
		Status:   req.Status,
		City:     req.City,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("查询草稿失败: %w", err)
	}

	list := make([]dto.DraftVO, 0, len(drafts))
	for i := range drafts {
		form, err := smartform.ParseForm(drafts[i].FormData)
		if err != nil {
			s.logger.Warn("草稿表单解析失败", zap.Int64("draft_id", drafts[i].ID), zap.Error(err))
			form = smartform.Form{}
		}
		list = append(list, *toDraftVO(&drafts[i], form))
	}
	return list, total, nil
}

// Delete 删除草稿
func (s *WizardService) Delete(ctx context.Context, id int64) error {
	if _, _, err := s.load(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ==================== 步骤保存 ====================

// SaveStep 保存某一步骤的数据：深合并、标记完成、推进当前步骤
func (s *WizardService) SaveStep(ctx context.Context, id int64, step string, data smartform.Form) (*dto.DraftVO, error) {
	idx := model.StepIndex(step)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}

	draft, form, err := s.loadEditable(ctx, id)
	if err != nil {
		return nil, err
	}

	form.Merge(data)
	if err := s.applyForm(draft, form); err != nil {
		return nil, err
	}

	if !containsString(draft.CompletedSteps, step) {
		draft.CompletedSteps = append(draft.CompletedSteps, step)
	}
	// 只向前推进，回到前面的步骤修改时不回退
	if next := nextStep(idx); model.StepIndex(draft.CurrentStep) < model.StepIndex(next) {
		draft.CurrentStep = next
	}

	if err := s.repo.Update(ctx, draft); err != nil {
		return nil, fmt.Errorf("保存步骤失败: %w", err)
	}
	return toDraftVO(draft, form), nil
}

// Replace 整体替换表单（PUT）
func (s *WizardService) Replace(ctx context.Context, id int64, req *dto.UpdateDraftRequest) (*dto.DraftVO, error) {
	draft, _, err := s.loadEditable(ctx, id)
	if err != nil {
		return nil, err
	}

	form := req.FormData.Clone()
	if err := s.applyForm(draft, form); err != nil {
		return nil, err
	}
	if req.Keywords != nil {
		draft.Keywords = pq.StringArray(req.Keywords)
	}

	if err := s.repo.Update(ctx, draft); err != nil {
		return nil, fmt.Errorf("更新草稿失败: %w", err)
	}
	return toDraftVO(draft, form), nil
}

// SyncForm 智能表单会话结束时回写
// 以当前草稿表单为基础只合并会话内修改过的字段，会话期间通过步骤保存的数据不受影响
func (s *WizardService) SyncForm(ctx context.Context, id int64, changes smartform.Form) error {
	draft, form, err := s.loadEditable(ctx, id)
	if err != nil {
		return err
	}
	form.Merge(changes)
	if err := s.applyForm(draft, form); err != nil {
		return err
	}
	return s.repo.Update(ctx, draft)
}

// ==================== 提交 ====================

// Submit 提交草稿，要求必填字段齐全且没有 error 级别问题
func (s *WizardService) Submit(ctx context.Context, id int64) (*dto.SubmitDraftResult, error) {
	draft, form, err := s.loadEditable(ctx, id)
	if err != nil {
		return nil, err
	}

	if missing := smartform.MissingFields(form); len(missing) > 0 {
		return nil, fmt.Errorf("%w: 缺少 %v", ErrDraftIncomplete, missing)
	}

	issues := []smartform.ValidationIssue{}
	if s.validator != nil {
		sess := smartform.Session{ID: draft.SessionID, UserID: draft.UserID, DraftID: draft.ID, PropertyType: draft.PropertyType}
		remote, err := s.validator.ValidatePropertyData(ctx, sess, form)
		if err != nil {
			// 远端校验不可用不阻塞提交
			s.logger.Warn("提交前校验失败", zap.Int64("draft_id", id), zap.Error(err))
		} else {
			issues = remote
		}
	}
	if smartform.HasErrors(issues) {
		return &dto.SubmitDraftResult{Draft: toDraftVO(draft, form), Issues: issues}, ErrDraftInvalid
	}

	now := s.now()
	draft.Status = model.DraftStatusSubmitted
	draft.SubmittedAt = &now
	draft.CurrentStep = model.StepReview
	draft.LastActiveAt = now
	if err := s.repo.Update(ctx, draft); err != nil {
		return nil, fmt.Errorf("提交草稿失败: %w", err)
	}

	s.logger.Info("草稿已提交", zap.Int64("draft_id", id))
	return &dto.SubmitDraftResult{Draft: toDraftVO(draft, form), Issues: issues}, nil
}

// ==================== 清理 ====================

// MarkAbandoned 将 before 之前未活动的草稿标记为已放弃
func (s *WizardService) MarkAbandoned(ctx context.Context, before time.Time, batch int) (int64, error) {
	drafts, err := s.repo.FindAbandoned(ctx, before, batch)
	if err != nil {
		return 0, fmt.Errorf("查询过期草稿失败: %w", err)
	}
	if len(drafts) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(drafts))
	for _, d := range drafts {
		ids = append(ids, d.ID)
	}
	return s.repo.MarkAbandoned(ctx, ids)
}

// ==================== 内部方法 ====================

func (s *WizardService) load(ctx context.Context, id int64) (*model.ListingDraft, smartform.Form, error) {
	draft, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("查询草稿失败: %w", err)
	}

	form, err := smartform.ParseForm(draft.FormData)
	if err != nil {
		return nil, nil, fmt.Errorf("草稿表单解析失败: %w", err)
	}
	return draft, form, nil
}

func (s *WizardService) loadEditable(ctx context.Context, id int64) (*model.ListingDraft, smartform.Form, error) {
	draft, form, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if draft.Status != model.DraftStatusDraft {
		return nil, nil, fmt.Errorf("%w: status=%s", ErrDraftNotEditable, draft.Status)
	}
	return draft, form, nil
}

// applyForm 写入表单并刷新冗余字段与评分
func (s *WizardService) applyForm(draft *model.ListingDraft, form smartform.Form) error {
	data, err := form.JSON()
	if err != nil {
		return fmt.Errorf("表单序列化失败: %w", err)
	}
	draft.FormData = datatypes.JSON(data)
	draft.Title = formString(form, "basicInfo.title")
	draft.PropertyType = formString(form, "basicInfo.propertyType")
	draft.City = formString(form, "location.city")
	draft.Completeness = smartform.Completeness(form)
	draft.Quality = smartform.Quality(form)
	draft.LastActiveAt = s.now()
	return nil
}

func nextStep(idx int) string {
	if idx+1 < len(model.WizardSteps) {
		return model.WizardSteps[idx+1]
	}
	return model.WizardSteps[len(model.WizardSteps)-1]
}

// stepPercent 已完成步骤占比
func stepPercent(completed []string) int {
	n := 0
	for _, step := range model.WizardSteps {
		if containsString(completed, step) {
			n++
		}
	}
	return int(math.Round(float64(n) * 100 / float64(len(model.WizardSteps))))
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func toDraftVO(d *model.ListingDraft, form smartform.Form) *dto.DraftVO {
	completed := []string(d.CompletedSteps)
	if completed == nil {
		completed = []string{}
	}
	keywords := []string(d.Keywords)
	if keywords == nil {
		keywords = []string{}
	}
	return &dto.DraftVO{
		ID:           d.ID,
		UserID:       d.UserID,
		SessionID:    d.SessionID,
		Title:        d.Title,
		PropertyType: d.PropertyType,
		City:         d.City,
		Status:       d.Status,
		FormData:     form,
		Keywords:     keywords,
		Progress: dto.DraftProgress{
			CurrentStep:    d.CurrentStep,
			CompletedSteps: completed,
			Percent:        stepPercent(completed),
			Completeness:   d.Completeness,
			Quality:        d.Quality,
			MissingFields:  smartform.MissingFields(form),
		},
		SubmittedAt:  d.SubmittedAt,
		LastActiveAt: d.LastActiveAt,
		CreatedAt:    d.CreatedAt,
	}
}
