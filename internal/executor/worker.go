package executor

import (
	"context"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"golang.org/x/sync/semaphore"
)

// worker acquires a slot of the pool and runs one job in it.
func (e *Executor) worker(ctx context.Context, sem *semaphore.Weighted, pool Pool, job Job) {
	if err := sem.Acquire(ctx, 1); err != nil {
		ctxlog.FromContext(ctx).Debug("Running job without a slot after cancellation.", "pool", pool)
		job(ctx)
		return
	}
	defer sem.Release(1)
	job(ctx)
}
