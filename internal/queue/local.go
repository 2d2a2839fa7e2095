package queue

import (
	"context"
	"sync"

	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

// LocalDispatcher runs every job on its own goroutine in this process.
type LocalDispatcher struct {
	runner *Runner
	wg     sync.WaitGroup
}

var _ Dispatcher = (*LocalDispatcher)(nil)

func NewLocalDispatcher(runner *Runner) *LocalDispatcher {
	return &LocalDispatcher{runner: runner}
}

// Submit starts job and returns at once. The job outlives ctx, which usually
// belongs to the HTTP request that triggered it.
func (d *LocalDispatcher) Submit(ctx context.Context, job Job) error {
	runCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Run(runCtx, job); err != nil {
			logger.Error("[Queue] Job failed", "task_id", job.TaskID, "err", err)
		}
	}()
	return nil
}

// Wait blocks until all submitted jobs returned.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
