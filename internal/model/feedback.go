package model

import "gorm.io/datatypes"

// SuggestionFeedback 建议采纳记录
// 被采纳的值会作为历史建议回流到智能表单
type SuggestionFeedback struct {
	BaseModel

	SessionID string `gorm:"size:64;index;comment:会话ID"`
	DraftID   int64  `gorm:"index;comment:草稿ID"`

	Field          string         `gorm:"size:128;index;comment:字段路径"`
	Value          datatypes.JSON `gorm:"type:jsonb;comment:建议值"`
	ValueText      string         `gorm:"size:512;comment:建议值文本"`
	SuggestionType string         `gorm:"size:32;index;comment:来源(ai/historical/market_data)"`
	Confidence     float64        `gorm:"comment:置信度"`
	Accepted       bool           `gorm:"index;comment:是否采纳"`
}

func (SuggestionFeedback) TableName() string {
	return "suggestion_feedbacks"
}
