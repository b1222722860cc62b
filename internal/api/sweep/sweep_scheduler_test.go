package sweep

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nepabhay/account-service/internal/types"
)

// countingSweep counts runs without touching storage.
type countingSweep struct {
	runs atomic.Int32
}

func (c *countingSweep) RunSweep(ctx context.Context) (*types.SweepReport, error) {
	c.runs.Add(1)
	return &types.SweepReport{}, nil
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	svc := &countingSweep{}
	sched := NewScheduler(svc, 20*time.Millisecond, slog.Default())

	sched.Start(context.Background())
	time.Sleep(110 * time.Millisecond)
	sched.Stop()

	assert.GreaterOrEqual(t, svc.runs.Load(), int32(3))
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	svc := &countingSweep{}
	sched := NewScheduler(svc, 20*time.Millisecond, slog.Default())

	sched.Start(context.Background())
	sched.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	// A double start must not double the tick rate.
	assert.LessOrEqual(t, svc.runs.Load(), int32(3))
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	svc := &countingSweep{}
	sched := NewScheduler(svc, time.Hour, slog.Default())

	sched.Start(context.Background())
	sched.Stop()
	assert.NotPanics(t, sched.Stop)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	sched := NewScheduler(&countingSweep{}, time.Hour, slog.Default())
	assert.NotPanics(t, sched.Stop)
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	svc := &countingSweep{}
	sched := NewScheduler(svc, 10*time.Millisecond, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(35 * time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)

	after := svc.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, svc.runs.Load(), "no runs after the context is cancelled")
}
