package plugin

import (
	"context"
	"fmt"

	"github.com/specialistvlad/bibixgo/internal/value"
)

// Return is the answer of a rule.
type Return interface {
	isReturn()
}

// ValueReturn ends a build rule with its value. A Transient value depends
// on more than the arguments of the rule, such as the current contents of a
// directory, and is not reused by later runs.
type ValueReturn struct {
	Value     value.Value
	Transient bool
}

// FailedReturn ends a rule with an explicit failure.
type FailedReturn struct {
	Err error
}

// DoneReturn ends an action rule.
type DoneReturn struct{}

// EvalAndThen asks the engine to call another rule, named relative to the
// project defining the current rule, and continues with its value.
type EvalAndThen struct {
	Rule   string
	Params map[string]value.Value
	Then   func(value.Value) (Return, error)
}

// GetClassTypeDetails asks for the field layout of classes given by
// canonical name, or by names relative to the rule's project.
type GetClassTypeDetails struct {
	Classes  []value.CName
	Relative [][]string
	Then     func([]ClassDetails) (Return, error)
}

// WithDirectoryLock runs WithLock while holding the named lock of Directory.
type WithDirectoryLock struct {
	Directory string
	WithLock  func() (Return, error)
}

func (ValueReturn) isReturn()         {}
func (FailedReturn) isReturn()        {}
func (DoneReturn) isReturn()          {}
func (EvalAndThen) isReturn()         {}
func (GetClassTypeDetails) isReturn() {}
func (WithDirectoryLock) isReturn()   {}

// ClassDetails describes a data class or a super class.
type ClassDetails interface {
	ClassName() value.CName
}

type ClassField struct {
	Name     string
	Type     value.Type
	Optional bool
}

type DataClassDetails struct {
	Name   value.CName
	Fields []ClassField
}

type SuperClassDetails struct {
	Name value.CName
	Subs []string
}

func (d DataClassDetails) ClassName() value.CName  { return d.Name }
func (d SuperClassDetails) ClassName() value.CName { return d.Name }

// Rule implements a build rule.
type Rule func(ctx context.Context, bc *BuildContext) (Return, error)

// ActionRule implements an action rule.
type ActionRule func(ctx context.Context, ac *ActionContext) (Return, error)

// RuleFailedError is reported when a rule returns FailedReturn or an error.
type RuleFailedError struct {
	Rule string
	Err  error
}

func (e *RuleFailedError) Error() string {
	return fmt.Sprintf("rule %s failed: %v", e.Rule, e.Err)
}

func (e *RuleFailedError) Unwrap() error { return e.Err }

// Value is shorthand for a ValueReturn.
func Value(v value.Value) (Return, error) {
	return ValueReturn{Value: v}, nil
}

// TransientValue is shorthand for a transient ValueReturn.
func TransientValue(v value.Value) (Return, error) {
	return ValueReturn{Value: v, Transient: true}, nil
}

// Done is shorthand for a DoneReturn.
func Done() (Return, error) {
	return DoneReturn{}, nil
}
