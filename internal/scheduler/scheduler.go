package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/dag"
	"github.com/specialistvlad/bibixgo/internal/executor"
	"github.com/specialistvlad/bibixgo/internal/inmemorystore"
	"github.com/specialistvlad/bibixgo/internal/task"
)

// Evaluator turns one task into a result or a continuation.
type Evaluator interface {
	Evaluate(ctx context.Context, t task.Task) (task.Result, error)
}

// Outcome is the terminal result or the failure of one requested task.
type Outcome struct {
	Result task.Result
	Err    error
}

// Scheduler runs tasks with an Evaluator. Results are memoized for the
// lifetime of the scheduler.
type Scheduler struct {
	eval Evaluator
	exec *executor.Executor
	memo *inmemorystore.Store

	// runMu serializes RunTasks so one owner loop exists at a time.
	runMu sync.Mutex
}

// New creates a scheduler.
func New(eval Evaluator, exec *executor.Executor, memo *inmemorystore.Store) *Scheduler {
	return &Scheduler{eval: eval, exec: exec, memo: memo}
}

// Memo returns the task memo.
func (s *Scheduler) Memo() *inmemorystore.Store {
	return s.memo
}

// RunTasks evaluates the tasks and returns their outcomes in order. A
// failing task fails the tasks that require it; independent tasks still
// run to completion. After ctx is done no new work starts and RunTasks
// returns once the work in flight has finished.
func (s *Scheduler) RunTasks(ctx context.Context, tasks []task.Task) []Outcome {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Scheduling tasks.", "count", len(tasks))

	r := &run{
		s:         s,
		ctx:       ctx,
		events:    make(chan event, 64),
		deps:      dag.New(),
		entries:   map[string]*entry{},
		outcomes:  make([]Outcome, len(tasks)),
		rootsLeft: len(tasks),
	}
	for i, t := range tasks {
		r.request(t, waiter{index: i})
	}

	done := ctx.Done()
	for r.rootsLeft > 0 || r.inflight > 0 {
		select {
		case ev := <-r.events:
			r.inflight--
			r.handle(ev)
		case <-done:
			logger.Info("Build interrupted, waiting for running tasks.", "running", r.inflight)
			r.canceled = true
			done = nil
		}
	}
	logger.Debug("Scheduling finished.", "count", len(tasks))
	return r.outcomes
}

// waiter is a requester of a task: index of a dependency slot of parent,
// or of the requested tasks when parent is empty.
type waiter struct {
	parent string
	index  int
}

type continuation struct {
	then      func([]task.Result) (task.Result, error)
	results   []task.Result
	remaining int
}

type entry struct {
	task    task.Task
	waiters []waiter
	pending *continuation
	done    bool
}

type event struct {
	key    string
	result task.Result
	err    error
}

// run is the state of one RunTasks call. It is owned by the loop
// goroutine.
type run struct {
	s        *Scheduler
	ctx      context.Context
	events   chan event
	inflight int
	canceled bool

	// deps has an edge from a task to each task waiting on it.
	deps    *dag.Graph
	entries map[string]*entry

	outcomes  []Outcome
	rootsLeft int
}

func (r *run) request(t task.Task, w waiter) {
	key := t.Key()

	switch r.s.memo.Status(key) {
	case inmemorystore.Completed:
		result, _ := r.s.memo.Result(key)
		r.deliver(w, result, nil)
		return
	case inmemorystore.Failed:
		r.deliver(w, nil, r.s.memo.Err(key))
		return
	}

	if w.parent != "" {
		r.deps.AddNode(key)
		r.deps.AddNode(w.parent)
		if key == w.parent || r.deps.DependsOn(key, w.parent) {
			parent := r.entries[w.parent]
			r.fail(w.parent, newTaskError(parent.task, fmt.Errorf("%w: %s requires %s", ErrCycle, parent.task, t)))
			return
		}
		if err := r.deps.AddEdge(key, w.parent); err != nil {
			r.fail(w.parent, newTaskError(r.entries[w.parent].task, err))
			return
		}
	}

	if e, ok := r.entries[key]; ok && !e.done {
		e.waiters = append(e.waiters, w)
		return
	}

	e := &entry{task: t, waiters: []waiter{w}}
	r.entries[key] = e
	r.s.memo.SetStatus(key, inmemorystore.Running)
	r.dispatch(key, executor.Evaluation, func(ctx context.Context) (task.Result, error) {
		return r.s.eval.Evaluate(ctx, t)
	})
}

func (r *run) dispatch(key string, pool executor.Pool, fn func(ctx context.Context) (task.Result, error)) {
	e := r.entries[key]
	if r.canceled || r.ctx.Err() != nil {
		r.fail(key, newTaskError(e.task, r.ctx.Err()))
		return
	}
	r.inflight++
	r.s.exec.Go(r.ctx, pool, func(ctx context.Context) {
		result, err := call(ctx, e.task, fn)
		r.events <- event{key: key, result: result, err: err}
	})
}

// call runs fn and turns a panic into an error.
func call(ctx context.Context, t task.Task, fn func(ctx context.Context) (task.Result, error)) (result task.Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			ctxlog.FromContext(ctx).Error("Task panicked.", "task", t.String(), "panic", p, "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

func (r *run) handle(ev event) {
	e := r.entries[ev.key]
	if e.done {
		return
	}
	if ev.err != nil {
		r.fail(ev.key, newTaskError(e.task, ev.err))
		return
	}

	switch result := ev.result.(type) {
	case nil:
		r.fail(ev.key, newTaskError(e.task, errors.New("evaluation returned no result")))
	case *task.WithDeps:
		if len(result.Deps) == 0 {
			r.dispatch(ev.key, executor.Evaluation, func(context.Context) (task.Result, error) {
				return result.Then(nil)
			})
			return
		}
		e.pending = &continuation{
			then:      result.Then,
			results:   make([]task.Result, len(result.Deps)),
			remaining: len(result.Deps),
		}
		for i, dep := range result.Deps {
			if e.done {
				return
			}
			r.request(dep, waiter{parent: ev.key, index: i})
		}
	case *task.LongRunning:
		r.dispatch(ev.key, executor.LongRunning, result.Run)
	default:
		r.complete(ev.key, result)
	}
}

func (r *run) deliver(w waiter, result task.Result, err error) {
	if w.parent == "" {
		r.outcomes[w.index] = Outcome{Result: result, Err: err}
		r.rootsLeft--
		return
	}
	parent := r.entries[w.parent]
	if parent.done {
		return
	}
	if err != nil {
		r.fail(w.parent, upstream(parent.task, err))
		return
	}
	c := parent.pending
	c.results[w.index] = result
	c.remaining--
	if c.remaining > 0 {
		return
	}
	parent.pending = nil
	r.dispatch(w.parent, executor.Evaluation, func(context.Context) (task.Result, error) {
		return c.then(c.results)
	})
}

func (r *run) complete(key string, result task.Result) {
	e := r.entries[key]
	e.done = true
	r.s.memo.Complete(key, result)
	for _, w := range e.waiters {
		r.deliver(w, result, nil)
	}
	e.waiters = nil
}

func (r *run) fail(key string, err *TaskError) {
	e := r.entries[key]
	e.done = true
	e.pending = nil
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.s.memo.Forget(key)
	} else {
		r.s.memo.Fail(key, err)
		if !err.Upstream {
			ctxlog.FromContext(r.ctx).Debug("Task failed.", "task", e.task.String(), "error", err.Err)
		}
	}
	for _, w := range e.waiters {
		r.deliver(w, nil, err)
	}
	e.waiters = nil
}
