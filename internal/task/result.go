package task

import (
	"context"
	"fmt"

	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// Result is the outcome of evaluating a task. Terminal results carry an
// answer; WithDeps and LongRunning suspend the task.
type Result interface {
	isResult()
}

// ValueResult is a computed value. TargetID is set when the value is the
// output of a rule invocation.
type ValueResult struct {
	Value    value.Value
	TargetID string
}

// TypeResult is a computed type.
type TypeResult struct {
	Type value.Type
}

// ImportResult is a resolved import: a project instance.
type ImportResult struct {
	Where
}

// ActionRefResult is a reference to an action.
type ActionRefResult struct {
	Where
	Name nodeid.Name
}

// Param is a rule parameter or class field with its evaluated type.
// Default is empty when there is no default value.
type Param struct {
	Name     string
	Type     value.Type
	Optional bool
	Default  graph.ExprID
}

// Required reports whether a call must supply the parameter.
func (p Param) Required() bool {
	return !p.Optional && p.Default == ""
}

// Impl is how a rule is implemented.
type Impl struct {
	// Module is the plugin package of a native rule, or the stringified
	// value of the implementation target.
	Module string
	Native bool
	// Hash is the object hash of the implementation target value.
	Hash   []byte
	Class  string
	Method string
}

type BuildRuleResult struct {
	Where
	Def        *graph.BuildRuleDef
	CName      value.CName
	Params     []Param
	ReturnType value.Type
	Impl       Impl
}

type ActionRuleResult struct {
	Where
	Def    *graph.ActionRuleDef
	CName  value.CName
	Params []Param
	Impl   Impl
}

type ClassCast struct {
	Type value.Type
	Expr graph.ExprID
}

type DataClassResult struct {
	Where
	Def    *graph.DataClassDef
	CName  value.CName
	Fields []Param
	Casts  []ClassCast
}

// SuperClassResult lists the data classes reachable through the sub types
// of a super class.
type SuperClassResult struct {
	Where
	CName       value.CName
	DataClasses []value.CName
}

// WithDeps suspends a task until every dependency has a terminal result.
// Then receives them in the order of Deps.
type WithDeps struct {
	Deps []Task
	Then func(results []Result) (Result, error)
}

// LongRunning moves blocking work off the scheduling workers.
type LongRunning struct {
	Run func(ctx context.Context) (Result, error)
}

func (ValueResult) isResult()      {}
func (TypeResult) isResult()       {}
func (ImportResult) isResult()     {}
func (ActionRefResult) isResult()  {}
func (BuildRuleResult) isResult()  {}
func (ActionRuleResult) isResult() {}
func (DataClassResult) isResult()  {}
func (SuperClassResult) isResult() {}
func (*WithDeps) isResult()        {}
func (*LongRunning) isResult()     {}

// IsTerminal reports whether r carries an answer.
func IsTerminal(r Result) bool {
	switch r.(type) {
	case *WithDeps, *LongRunning:
		return false
	}
	return true
}

// Value wraps v as a terminal result.
func Value(v value.Value) (Result, error) {
	return ValueResult{Value: v}, nil
}

// Then suspends until deps are done and continues with fn.
func Then(deps []Task, fn func([]Result) (Result, error)) (Result, error) {
	return &WithDeps{Deps: deps, Then: fn}, nil
}

// Then1 is Then for a single dependency.
func Then1(dep Task, fn func(Result) (Result, error)) (Result, error) {
	return &WithDeps{Deps: []Task{dep}, Then: func(rs []Result) (Result, error) { return fn(rs[0]) }}, nil
}

// Map continues r with fn once r is terminal.
func Map(r Result, fn func(Result) (Result, error)) (Result, error) {
	switch c := r.(type) {
	case *WithDeps:
		return &WithDeps{Deps: c.Deps, Then: func(rs []Result) (Result, error) {
			next, err := c.Then(rs)
			if err != nil {
				return nil, err
			}
			return Map(next, fn)
		}}, nil
	case *LongRunning:
		return &LongRunning{Run: func(ctx context.Context) (Result, error) {
			next, err := c.Run(ctx)
			if err != nil {
				return nil, err
			}
			if IsTerminal(next) {
				return fn(next)
			}
			return Map(next, fn)
		}}, nil
	}
	return fn(r)
}

// MapValue is Map for results that must be values.
func MapValue(r Result, fn func(value.Value) (Result, error)) (Result, error) {
	return Map(r, func(done Result) (Result, error) {
		v, ok := done.(ValueResult)
		if !ok {
			return nil, fmt.Errorf("expected a value, got %s", Describe(done))
		}
		return fn(v.Value)
	})
}

// Collect waits until every result in rs is terminal and passes them to fn
// in order.
func Collect(rs []Result, fn func([]Result) (Result, error)) (Result, error) {
	for i, r := range rs {
		if IsTerminal(r) {
			continue
		}
		return Map(r, func(done Result) (Result, error) {
			next := append([]Result(nil), rs...)
			next[i] = done
			return Collect(next, fn)
		})
	}
	return fn(rs)
}

// CollectValues is Collect for results that must all be values.
func CollectValues(rs []Result, fn func([]value.Value) (Result, error)) (Result, error) {
	return Collect(rs, func(done []Result) (Result, error) {
		values := make([]value.Value, len(done))
		for i, r := range done {
			v, ok := r.(ValueResult)
			if !ok {
				return nil, fmt.Errorf("expected a value, got %s", Describe(r))
			}
			values[i] = v.Value
		}
		return fn(values)
	})
}

// Catch passes errors returned by the continuations of r through fn.
// Failures of dependencies are not seen by fn.
func Catch(r Result, fn func(error) error) (Result, error) {
	switch c := r.(type) {
	case *WithDeps:
		return &WithDeps{Deps: c.Deps, Then: func(rs []Result) (Result, error) {
			next, err := c.Then(rs)
			if err != nil {
				return nil, fn(err)
			}
			return Catch(next, fn)
		}}, nil
	case *LongRunning:
		return &LongRunning{Run: func(ctx context.Context) (Result, error) {
			next, err := c.Run(ctx)
			if err != nil {
				return nil, fn(err)
			}
			return Catch(next, fn)
		}}, nil
	}
	return r, nil
}

// Describe names the kind of a result for error messages.
func Describe(r Result) string {
	switch r := r.(type) {
	case ValueResult:
		return "value " + r.Value.String()
	case TypeResult:
		return "type " + r.Type.String()
	case ImportResult:
		return "import of project " + r.Where.String()
	case ActionRefResult:
		return "action " + r.Name.String()
	case BuildRuleResult:
		return "rule " + r.CName.String()
	case ActionRuleResult:
		return "action rule " + r.CName.String()
	case DataClassResult:
		return "class " + r.CName.String()
	case SuperClassResult:
		return "super class " + r.CName.String()
	case *WithDeps:
		return "pending result"
	case *LongRunning:
		return "long running work"
	}
	return fmt.Sprintf("%T", r)
}
