package task

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DraftJanitor 将长期未活动的草稿标记为废弃
type DraftJanitor interface {
	MarkAbandoned(ctx context.Context, before time.Time, batch int) (int64, error)
}

// DraftCleanupTask 废弃草稿归档任务
type DraftCleanupTask struct {
	drafts    DraftJanitor
	retention time.Duration
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

func NewDraftCleanupTask(drafts DraftJanitor, retention time.Duration, batchSize int, logger *zap.Logger) *DraftCleanupTask {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &DraftCleanupTask{
		drafts:    drafts,
		retention: retention,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute 分批归档，直到不足一批或上下文取消
func (t *DraftCleanupTask) Execute(ctx context.Context) {
	before := t.now().Add(-t.retention)
	var total int64

	for {
		select {
		case <-ctx.Done():
			t.logger.Warn("草稿归档超时停止", zap.Int64("archived", total))
			return
		default:
		}

		n, err := t.drafts.MarkAbandoned(ctx, before, t.batchSize)
		if err != nil {
			t.logger.Error("草稿归档失败", zap.Error(err), zap.Int64("archived", total))
			return
		}
		total += n
		if n < int64(t.batchSize) {
			break
		}
	}

	if total > 0 {
		t.logger.Info("废弃草稿归档完成", zap.Int64("archived", total), zap.Time("before", before))
	}
}
