package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ==================== 状态常量 ====================

const (
	DraftStatusDraft     = "draft"
	DraftStatusSubmitted = "submitted"
	DraftStatusAbandoned = "abandoned"
)

// 向导步骤，按顺序排列
const (
	StepBasicInfo    = "basic_info"
	StepLocation     = "location"
	StepPricing      = "pricing"
	StepMedia        = "media"
	StepAvailability = "availability"
	StepReview       = "review"
)

// WizardSteps 向导步骤顺序
var WizardSteps = []string{
	StepBasicInfo, StepLocation, StepPricing, StepMedia, StepAvailability, StepReview,
}

// ==================== 数据库模型 ====================

// ListingDraft 房源创建向导草稿
type ListingDraft struct {
	BaseModel

	UserID    int64  `gorm:"index;comment:用户ID" json:"user_id"`
	SessionID string `gorm:"size:64;index;comment:智能表单会话ID" json:"session_id"`

	// 冗余字段，便于列表展示与检索
	Title        string `gorm:"size:255;comment:标题" json:"title"`
	PropertyType string `gorm:"size:32;index;comment:房源类型" json:"property_type"`
	City         string `gorm:"size:128;index;comment:城市" json:"city"`

	FormData       datatypes.JSON `gorm:"type:jsonb;comment:表单数据" json:"form_data"`
	CurrentStep    string         `gorm:"size:32;default:basic_info;comment:当前步骤" json:"current_step"`
	CompletedSteps pq.StringArray `gorm:"type:text[];comment:已完成步骤" json:"completed_steps"`
	Keywords       pq.StringArray `gorm:"type:text[];comment:SEO关键词" json:"keywords"`

	Completeness int `gorm:"default:0;comment:完整度(0-100)" json:"completeness"`
	Quality      int `gorm:"default:0;comment:质量分(0-100)" json:"quality"`

	Status       string     `gorm:"size:32;index;default:draft;comment:状态" json:"status"`
	SubmittedAt  *time.Time `gorm:"comment:提交时间" json:"submitted_at,omitempty"`
	LastActiveAt time.Time  `gorm:"index;comment:最后编辑时间" json:"last_active_at"`
}

func (ListingDraft) TableName() string {
	return "listing_drafts"
}

// StepIndex 步骤序号，未知步骤返回 -1
func StepIndex(step string) int {
	for i, s := range WizardSteps {
		if s == step {
			return i
		}
	}
	return -1
}
