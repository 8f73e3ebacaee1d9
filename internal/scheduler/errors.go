package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/task"
)

var (
	// ErrUpstreamFailed marks a task that failed because a task it
	// required failed.
	ErrUpstreamFailed = errors.New("required task failed")

	// ErrCycle is returned when a task transitively requires itself.
	ErrCycle = errors.New("task cycle")
)

// TaskError is the failure of a task. Chain runs from the task that
// reported the error back to the task that first failed.
type TaskError struct {
	Chain []task.Task
	Err   error
	// Upstream is set when the first task of the chain did not fail by
	// itself.
	Upstream bool
}

func (e *TaskError) Error() string {
	names := make([]string, len(e.Chain))
	for i, t := range e.Chain {
		names[i] = t.String()
	}
	return fmt.Sprintf("%s: %v", strings.Join(names, " <- "), e.Err)
}

func (e *TaskError) Unwrap() []error {
	if e.Upstream {
		return []error{ErrUpstreamFailed, e.Err}
	}
	return []error{e.Err}
}

// Failed returns the task that failed first.
func (e *TaskError) Failed() task.Task {
	return e.Chain[len(e.Chain)-1]
}

func newTaskError(t task.Task, err error) *TaskError {
	return &TaskError{Chain: []task.Task{t}, Err: err}
}

// upstream extends the chain of a dependency's failure with the task that
// required it.
func upstream(t task.Task, err error) *TaskError {
	var dep *TaskError
	if !errors.As(err, &dep) {
		return &TaskError{Chain: []task.Task{t}, Err: err, Upstream: true}
	}
	chain := make([]task.Task, 0, len(dep.Chain)+1)
	chain = append(chain, t)
	chain = append(chain, dep.Chain...)
	return &TaskError{Chain: chain, Err: dep.Err, Upstream: true}
}
