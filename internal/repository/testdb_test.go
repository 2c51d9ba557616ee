package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 测试用 BaseModel（仅用于测试）
// sqlite 不支持 jsonb / text[]，测试表结构用等价的 text 列
type testBaseModel struct {
	ID        int64 `gorm:"primary_key;AUTO_INCREMENT"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type testListingDraft struct {
	testBaseModel
	UserID         int64  `gorm:"index"`
	SessionID      string `gorm:"size:64"`
	Title          string `gorm:"size:255"`
	PropertyType   string `gorm:"size:32"`
	City           string `gorm:"size:128"`
	FormData       string
	CurrentStep    string `gorm:"size:32;default:basic_info"`
	CompletedSteps string
	Keywords       string
	Completeness   int
	Quality        int
	Status         string `gorm:"size:32;default:draft"`
	SubmittedAt    *time.Time
	LastActiveAt   time.Time
}

func (testListingDraft) TableName() string { return "listing_drafts" }

type testSuggestionFeedback struct {
	testBaseModel
	SessionID      string `gorm:"size:64"`
	DraftID        int64
	Field          string `gorm:"size:128"`
	Value          string
	ValueText      string `gorm:"size:512"`
	SuggestionType string `gorm:"size:32"`
	Confidence     float64
	Accepted       bool
}

func (testSuggestionFeedback) TableName() string { return "suggestion_feedbacks" }

// 测试用 AICallLog
type testAICallLog struct {
	testBaseModel
	SessionID    string `gorm:"size:64;index"`
	DraftID      int64  `gorm:"index"`
	CallType     string `gorm:"size:32"`
	ModelName    string `gorm:"size:64"`
	InputTokens  int
	OutputTokens int
	DurationMs   int64
	CostUSD      float64 `gorm:"type:decimal(10,6)"`
	Status       string  `gorm:"size:32"`
	ErrorMsg     string  `gorm:"size:1024"`
}

func (testAICallLog) TableName() string { return "ai_call_logs" }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&testListingDraft{}, &testSuggestionFeedback{}, &testAICallLog{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}
