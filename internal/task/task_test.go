package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ==================== 测试替身 ====================

type fakeSessions struct {
	mu    sync.Mutex
	calls int
	n     int
}

func (f *fakeSessions) SweepIdle(context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.n
}

type fakeLimiter struct {
	idle time.Duration
}

func (f *fakeLimiter) Sweep(idle time.Duration) int {
	f.idle = idle
	return 2
}

type fakeJanitor struct {
	batches []int64
	before  []time.Time
	err     error
}

func (f *fakeJanitor) MarkAbandoned(_ context.Context, before time.Time, batch int) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.before = append(f.before, before)
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	if n > int64(batch) {
		n = int64(batch)
	}
	return n, nil
}

// ==================== 测试用例 ====================

func TestSessionSweepTask_Execute(t *testing.T) {
	sessions := &fakeSessions{n: 3}
	limiter := &fakeLimiter{}
	task := NewSessionSweepTask(sessions, limiter, 5*time.Minute, zap.NewNop())

	task.Execute(context.Background())

	assert.Equal(t, 1, sessions.calls)
	assert.Equal(t, 5*time.Minute, limiter.idle)
}

type fakeCache struct{ expired int }

func (f *fakeCache) Purge() int {
	n := f.expired
	f.expired = 0
	return n
}

func TestSessionSweepTask_PurgesCaches(t *testing.T) {
	places, market := &fakeCache{expired: 2}, &fakeCache{expired: 1}
	task := NewSessionSweepTask(&fakeSessions{}, nil, 0, nil, places, market)

	task.Execute(context.Background())

	assert.Zero(t, places.expired)
	assert.Zero(t, market.expired)
}

func TestSessionSweepTask_NilLimiter(t *testing.T) {
	sessions := &fakeSessions{}
	task := NewSessionSweepTask(sessions, nil, 0, zap.NewNop())

	assert.NotPanics(t, func() { task.Execute(context.Background()) })
	assert.Equal(t, 10*time.Minute, task.idle)
}

func TestDraftCleanupTask_LoopsUntilShortBatch(t *testing.T) {
	janitor := &fakeJanitor{batches: []int64{10, 10, 4}}
	task := NewDraftCleanupTask(janitor, 24*time.Hour, 10, zap.NewNop())
	fixed := time.Date(2025, 6, 1, 3, 30, 0, 0, time.UTC)
	task.now = func() time.Time { return fixed }

	task.Execute(context.Background())

	require.Len(t, janitor.before, 3)
	assert.Equal(t, fixed.Add(-24*time.Hour), janitor.before[0])
	assert.Empty(t, janitor.batches)
}

func TestDraftCleanupTask_StopsOnError(t *testing.T) {
	janitor := &fakeJanitor{err: errors.New("db down")}
	task := NewDraftCleanupTask(janitor, time.Hour, 0, zap.NewNop())

	task.Execute(context.Background())
	assert.Equal(t, 500, task.batchSize)
	assert.Empty(t, janitor.before)
}

func TestDraftCleanupTask_StopsOnCancel(t *testing.T) {
	janitor := &fakeJanitor{batches: []int64{10, 10, 10}}
	task := NewDraftCleanupTask(janitor, time.Hour, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task.Execute(ctx)

	assert.Empty(t, janitor.before)
}

func TestTaskManager_StatusAndTrigger(t *testing.T) {
	sessions := &fakeSessions{}
	tm := NewTaskManager(&TaskManagerDeps{Sessions: sessions}, nil)

	assert.Equal(t, map[string]bool{"session": true, "draft": false}, tm.Status())
	require.NoError(t, tm.TriggerSessionSweep(context.Background()))
	assert.Equal(t, 1, sessions.calls)
	assert.ErrorIs(t, tm.TriggerDraftCleanup(context.Background()), ErrTaskDisabled)

	tm.Start()
	assert.Len(t, tm.cron.Entries(), 1)
	tm.Stop()
}

func TestTaskManager_InvalidSpecSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionSpec = "not a cron"
	tm := NewTaskManager(&TaskManagerDeps{Sessions: &fakeSessions{}, Drafts: &fakeJanitor{}}, cfg)

	assert.Len(t, tm.cron.Entries(), 1)
}
