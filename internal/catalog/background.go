package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// TaskRunner executes best-effort background work whose result is discarded but
// whose failure is logged. Backfill writes go through here so callers never block
// on them and never see their errors.
type TaskRunner struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewTaskRunner constructs a runner. A nil logger defaults to a no-op logger.
func NewTaskRunner(logger *zap.Logger) *TaskRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskRunner{logger: logger}
}

// Go spawns task in the background. The task receives a background context: no
// caller cancellation applies, matching the fire-and-forget contract.
func (r *TaskRunner) Go(name string, task func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := task(context.Background()); err != nil {
			r.logger.Warn("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

// Wait blocks until all spawned tasks have finished. Tests and shutdown use it.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}
