package evaluator

import (
	"fmt"

	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// EvalError is an evaluation failure inside one project instance.
type EvalError struct {
	Where task.Where
	Msg   string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("project %s: %s", e.Where, e.Msg)
}

func evalErrorf(where task.Where, format string, args ...any) error {
	return &EvalError{Where: where, Msg: fmt.Sprintf(format, args...)}
}

// TypeCastError reports a value that cannot be cast to a type.
type TypeCastError struct {
	Value value.Value
	Type  value.Type
}

func (e *TypeCastError) Error() string {
	return fmt.Sprintf("cannot cast %s to %s", e.Value, e.Type)
}
