package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	applog "rental_listing_v1/pkg/logger"
)

// ==================== TaskManager 定时任务管理器 ====================

// TaskManager 统一管理后台定时任务
// 管理范围：会话清理、冷却表清理、废弃草稿归档
type TaskManager struct {
	cron   *cron.Cron
	logger *zap.Logger

	sessionTask *SessionSweepTask
	draftTask   *DraftCleanupTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Sessions SessionSweeper
	Limiter  LimiterSweeper
	Drafts   DraftJanitor
	Caches   []CachePurger
	Logger   *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// 会话清理
	SessionEnabled bool
	SessionSpec    string
	LimiterIdle    time.Duration

	// 废弃草稿
	DraftEnabled   bool
	DraftSpec      string
	DraftRetention time.Duration
	DraftBatchSize int
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		SessionEnabled: true,
		SessionSpec:    "0 * * * * *",
		LimiterIdle:    10 * time.Minute,

		DraftEnabled:   true,
		DraftSpec:      "0 30 3 * * *",
		DraftRetention: 30 * 24 * time.Hour,
		DraftBatchSize: 500,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := applog.OrNop(deps.Logger)

	tm := &TaskManager{
		cron:   cron.New(cron.WithSeconds()), // 支持秒级控制
		logger: logger,
	}

	if cfg.SessionEnabled && deps.Sessions != nil {
		tm.sessionTask = NewSessionSweepTask(deps.Sessions, deps.Limiter, cfg.LimiterIdle, logger, deps.Caches...)
		tm.schedule("session-sweep", cfg.SessionSpec, time.Minute, tm.sessionTask.Execute)
	}

	if cfg.DraftEnabled && deps.Drafts != nil {
		tm.draftTask = NewDraftCleanupTask(deps.Drafts, cfg.DraftRetention, cfg.DraftBatchSize, logger)
		tm.schedule("draft-cleanup", cfg.DraftSpec, 10*time.Minute, tm.draftTask.Execute)
	}

	return tm
}

// schedule 注册 cron 任务，每次执行带超时
func (tm *TaskManager) schedule(name, spec string, timeout time.Duration, job func(ctx context.Context)) {
	_, err := tm.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		job(ctx)
	})
	if err != nil {
		tm.logger.Error("定时任务注册失败", zap.String("task", name), zap.String("spec", spec), zap.Error(err))
	}
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	tm.cron.Start()
	tm.logger.Info("定时任务已启动", zap.Int("jobs", len(tm.cron.Entries())))
}

// Stop 停止所有任务，等待执行中的任务结束
func (tm *TaskManager) Stop() {
	<-tm.cron.Stop().Done()
	tm.logger.Info("定时任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerSessionSweep 立即执行会话清理
func (tm *TaskManager) TriggerSessionSweep(ctx context.Context) error {
	if tm.sessionTask == nil {
		return ErrTaskDisabled
	}
	tm.sessionTask.Execute(ctx)
	return nil
}

// TriggerDraftCleanup 立即执行草稿归档
func (tm *TaskManager) TriggerDraftCleanup(ctx context.Context) error {
	if tm.draftTask == nil {
		return ErrTaskDisabled
	}
	tm.draftTask.Execute(ctx)
	return nil
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"session": tm.sessionTask != nil,
		"draft":   tm.draftTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
