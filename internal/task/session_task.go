package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	applog "rental_listing_v1/pkg/logger"
)

// SessionSweeper 关闭空闲会话
type SessionSweeper interface {
	SweepIdle(ctx context.Context) int
}

// LimiterSweeper 清理冷却表
type LimiterSweeper interface {
	Sweep(idle time.Duration) int
}

// CachePurger 清理过期缓存条目
type CachePurger interface {
	Purge() int
}

// SessionSweepTask 会话、冷却表与外部数据缓存清理
type SessionSweepTask struct {
	sessions SessionSweeper
	limiter  LimiterSweeper
	caches   []CachePurger
	idle     time.Duration
	logger   *zap.Logger
}

func NewSessionSweepTask(sessions SessionSweeper, limiter LimiterSweeper, idle time.Duration, logger *zap.Logger, caches ...CachePurger) *SessionSweepTask {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &SessionSweepTask{
		sessions: sessions,
		limiter:  limiter,
		caches:   caches,
		idle:     idle,
		logger:   applog.OrNop(logger),
	}
}

// Execute 执行一次清理
func (t *SessionSweepTask) Execute(ctx context.Context) {
	closed := t.sessions.SweepIdle(ctx)

	swept := 0
	if t.limiter != nil {
		swept = t.limiter.Sweep(t.idle)
	}

	purged := 0
	for _, c := range t.caches {
		purged += c.Purge()
	}

	if closed > 0 || swept > 0 || purged > 0 {
		t.logger.Info("空闲会话清理完成",
			zap.Int("sessions", closed),
			zap.Int("cooldowns", swept),
			zap.Int("cache_entries", purged),
		)
	}
}
