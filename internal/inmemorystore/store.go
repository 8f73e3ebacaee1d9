// Package inmemorystore keeps the execution state of build tasks.
//
// # Concurrency Model
//
// The store uses sync.Map because the key space grows while many readers
// check for finished tasks and the scheduler records new states. Each
// task's state is independent, so fine-grained access avoids a global lock.
package inmemorystore

import (
	"sync"

	"github.com/specialistvlad/bibixgo/internal/task"
)

// Status is the lifecycle state of a task.
type Status int

const (
	Pending Status = iota
	Running
	Completed
	Failed
)

var statusNames = map[Status]string{
	Pending:   "pending",
	Running:   "running",
	Completed: "completed",
	Failed:    "failed",
}

func (s Status) String() string { return statusNames[s] }

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed
}

// Store is an in-memory memo of task states keyed by task key.
type Store struct {
	states  sync.Map // key -> Status
	results sync.Map // key -> task.Result
	errors  sync.Map // key -> error
}

// New creates a new, empty store.
func New() *Store {
	return &Store{}
}

// SetStatus updates the state of a task.
func (s *Store) SetStatus(key string, status Status) {
	s.states.Store(key, status)
}

// Status returns the state of a task, Pending if it was never seen.
func (s *Store) Status(key string) Status {
	status, ok := s.states.Load(key)
	if !ok {
		return Pending
	}
	return status.(Status)
}

// Complete records the terminal result of a task.
func (s *Store) Complete(key string, result task.Result) {
	s.results.Store(key, result)
	s.states.Store(key, Completed)
}

// Fail records the error of a task.
func (s *Store) Fail(key string, err error) {
	s.errors.Store(key, err)
	s.states.Store(key, Failed)
}

// Result returns the result of a completed task.
func (s *Store) Result(key string) (task.Result, bool) {
	result, ok := s.results.Load(key)
	if !ok {
		return nil, false
	}
	return result.(task.Result), true
}

// Err returns the error of a failed task.
func (s *Store) Err(key string) error {
	err, ok := s.errors.Load(key)
	if !ok {
		return nil
	}
	return err.(error)
}

// Forget drops a task that did not reach a terminal state, so that a later
// round may start it again.
func (s *Store) Forget(key string) {
	if s.Status(key).Terminal() {
		return
	}
	s.states.Delete(key)
}

// Count returns the number of tasks in the given state.
func (s *Store) Count(status Status) int {
	n := 0
	s.states.Range(func(_, v any) bool {
		if v.(Status) == status {
			n++
		}
		return true
	})
	return n
}
