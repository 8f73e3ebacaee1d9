// Package executor runs scheduled work on two bounded pools: one for task
// evaluation and one reserved for blocking I/O such as process invocation
// and network fetches, so a slow external call never starves evaluation.
package executor

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool selects which bounded pool runs a job.
type Pool int

const (
	Evaluation Pool = iota
	LongRunning
)

func (p Pool) String() string {
	if p == LongRunning {
		return "long-running"
	}
	return "evaluation"
}

// Job is a unit of work. A job that starts after ctx is done must observe
// ctx.Err() itself.
type Job func(ctx context.Context)

// Executor bounds the concurrency of submitted jobs.
type Executor struct {
	evaluation  *semaphore.Weighted
	longRunning *semaphore.Weighted
	wg          sync.WaitGroup
}

// New creates an executor with the given pool sizes. Sizes below one are
// raised to one.
func New(workers, longRunningWorkers int) *Executor {
	return &Executor{
		evaluation:  semaphore.NewWeighted(int64(max(workers, 1))),
		longRunning: semaphore.NewWeighted(int64(max(longRunningWorkers, 1))),
	}
}

// Go runs job on the pool without blocking the caller. If ctx is done
// before a slot frees up the job still runs, unbounded, so that it can
// report the cancellation.
func (e *Executor) Go(ctx context.Context, pool Pool, job Job) {
	sem := e.evaluation
	if pool == LongRunning {
		sem = e.longRunning
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.worker(ctx, sem, pool, job)
	}()
}

// Wait blocks until every submitted job has returned.
func (e *Executor) Wait() {
	e.wg.Wait()
}
