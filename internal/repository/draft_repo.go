package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"rental_listing_v1/internal/model"
)

// ==================== 仓储接口 ====================

// DraftRepository 房源草稿仓储接口
type DraftRepository interface {
	Create(ctx context.Context, draft *model.ListingDraft) error
	GetByID(ctx context.Context, id int64) (*model.ListingDraft, error)
	Update(ctx context.Context, draft *model.ListingDraft) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter DraftFilter) ([]model.ListingDraft, int64, error)

	// 过期清理相关
	FindAbandoned(ctx context.Context, before time.Time, limit int) ([]*model.ListingDraft, error)
	MarkAbandoned(ctx context.Context, ids []int64) (int64, error)
}

// ==================== 过滤条件 ====================

// DraftFilter 草稿过滤条件
type DraftFilter struct {
	UserID   int64
	Status   string
	City     string
	Page     int
	PageSize int
}

// ==================== 仓储实现 ====================

type draftRepo struct {
	db *gorm.DB
}

// NewDraftRepository 创建草稿仓储
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepo{db: db}
}

func (r *draftRepo) Create(ctx context.Context, draft *model.ListingDraft) error {
	return r.db.WithContext(ctx).Create(draft).Error
}

func (r *draftRepo) GetByID(ctx context.Context, id int64) (*model.ListingDraft, error) {
	var draft model.ListingDraft
	if err := r.db.WithContext(ctx).First(&draft, id).Error; err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepo) Update(ctx context.Context, draft *model.ListingDraft) error {
	return r.db.WithContext(ctx).Save(draft).Error
}

func (r *draftRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.ListingDraft{}).Where("id = ?", id).Updates(fields).Error
}

func (r *draftRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.ListingDraft{}, id).Error
}

func (r *draftRepo) List(ctx context.Context, filter DraftFilter) ([]model.ListingDraft, int64, error) {
	var drafts []model.ListingDraft
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ListingDraft{})

	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("last_active_at DESC").Limit(filter.PageSize).Offset(offset).Find(&drafts).Error; err != nil {
		return nil, 0, err
	}

	return drafts, total, nil
}

// FindAbandoned 查找 before 之前未再编辑的草稿
func (r *draftRepo) FindAbandoned(ctx context.Context, before time.Time, limit int) ([]*model.ListingDraft, error) {
	var drafts []*model.ListingDraft
	if limit <= 0 {
		limit = 100
	}
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_active_at < ?", model.DraftStatusDraft, before).
		Order("last_active_at ASC").
		Limit(limit).
		Find(&drafts).Error
	return drafts, err
}

func (r *draftRepo) MarkAbandoned(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&model.ListingDraft{}).
		Where("id IN ? AND status = ?", ids, model.DraftStatusDraft).
		Update("status", model.DraftStatusAbandoned)
	return result.RowsAffected, result.Error
}
