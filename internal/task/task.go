package task

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/objhash"
	"github.com/specialistvlad/bibixgo/internal/project"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// Task is a unit of evaluation. Two tasks with the same key are the same
// computation.
type Task interface {
	Key() string
	String() string
}

// Where addresses one import instance of a project.
type Where struct {
	Project  project.ID
	Instance int
}

func (w Where) String() string {
	return fmt.Sprintf("%d/%d", w.Project, w.Instance)
}

// EvalTarget evaluates a target.
type EvalTarget struct {
	Where
	Name nodeid.Name
}

// EvalVar evaluates a variable, honoring the redefinitions of the instance.
type EvalVar struct {
	Where
	Name nodeid.Name
}

// EvalExpr evaluates an expression node. This is set while evaluating a
// data class cast and Locals inside action bodies.
type EvalExpr struct {
	Where
	Expr   graph.ExprID
	This   *value.ClassInstance
	Locals map[string]value.Value
}

// EvalType evaluates a type node.
type EvalType struct {
	Where
	Type graph.TypeID
}

// EvalName resolves a dotted name from the root scope of a project.
type EvalName struct {
	Where
	Name nodeid.Name
}

// EvalTypeName resolves a dotted type name from the root scope of a
// project.
type EvalTypeName struct {
	Where
	Name nodeid.Name
}

// EvalImport resolves an import statement to a project instance.
type EvalImport struct {
	Where
	Name nodeid.Name
}

// EvalPreloaded resolves the instance of a preloaded plugin referenced
// from a project.
type EvalPreloaded struct {
	Where
	Plugin string
}

type EvalBuildRule struct {
	Where
	Name nodeid.Name
}

type EvalActionRule struct {
	Where
	Name nodeid.Name
}

type EvalDataClass struct {
	Where
	Name nodeid.Name
}

type EvalSuperClass struct {
	Where
	Name nodeid.Name
}

// EvalClassByName resolves a class by its canonical name.
type EvalClassByName struct {
	Class value.CName
}

// InvokeRule runs a build rule with bound arguments. Invocations with the
// same target id share one execution.
type InvokeRule struct {
	TargetID string
	Call     *RuleCall
}

// RuleCall is everything needed to run one rule invocation.
type RuleCall struct {
	Caller Where
	Rule   *BuildRuleResult
	Args   map[string]value.Value
	Data   *objhash.TargetIDData
	// IDData is the encoding of Data.
	IDData []byte
}

// ExecAction runs an action of a project with its command line arguments.
type ExecAction struct {
	Where
	Name nodeid.Name
	Args []string
}

// ExecActionCallExpr evaluates the call of one action statement with the
// locals bound before it.
type ExecActionCallExpr struct {
	Where
	Action nodeid.Name
	Index  int
	Locals map[string]value.Value
}

func (t EvalTarget) Key() string     { return fmt.Sprintf("target:%s:%s", t.Where, t.Name) }
func (t EvalVar) Key() string        { return fmt.Sprintf("var:%s:%s", t.Where, t.Name) }
func (t EvalType) Key() string       { return fmt.Sprintf("type:%s:%s", t.Where, t.Type) }
func (t EvalName) Key() string       { return fmt.Sprintf("name:%s:%s", t.Where, t.Name) }
func (t EvalTypeName) Key() string   { return fmt.Sprintf("typename:%s:%s", t.Where, t.Name) }
func (t EvalImport) Key() string     { return fmt.Sprintf("import:%s:%s", t.Where, t.Name) }
func (t EvalPreloaded) Key() string  { return fmt.Sprintf("preloaded:%s:%s", t.Where, t.Plugin) }
func (t EvalBuildRule) Key() string  { return fmt.Sprintf("rule:%s:%s", t.Where, t.Name) }
func (t EvalActionRule) Key() string { return fmt.Sprintf("actionrule:%s:%s", t.Where, t.Name) }
func (t EvalDataClass) Key() string  { return fmt.Sprintf("class:%s:%s", t.Where, t.Name) }
func (t EvalSuperClass) Key() string { return fmt.Sprintf("superclass:%s:%s", t.Where, t.Name) }
func (t EvalClassByName) Key() string {
	return fmt.Sprintf("classbyname:%s", t.Class)
}
func (t InvokeRule) Key() string { return "invoke:" + t.TargetID }
func (t ExecAction) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "action:%s:%s", t.Where, t.Name)
	for _, a := range t.Args {
		fmt.Fprintf(&b, ":%d:%s", len(a), a)
	}
	return b.String()
}

func (t EvalExpr) Key() string {
	key := fmt.Sprintf("expr:%s:%s", t.Where, t.Expr)
	if t.This != nil {
		key += ":this=" + hex.EncodeToString(value.Encode(*t.This))
	}
	if len(t.Locals) > 0 {
		key += ":locals=" + localsKey(t.Locals)
	}
	return key
}

func (t ExecActionCallExpr) Key() string {
	return fmt.Sprintf("actionstmt:%s:%s:%d:%s", t.Where, t.Action, t.Index, localsKey(t.Locals))
}

func localsKey(locals map[string]value.Value) string {
	names := make([]string, 0, len(locals))
	for name := range locals {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(hex.EncodeToString(value.Encode(locals[name])))
		b.WriteByte(';')
	}
	return b.String()
}

func (t EvalTarget) String() string     { return fmt.Sprintf("target %s in project %s", t.Name, t.Where) }
func (t EvalVar) String() string        { return fmt.Sprintf("var %s in project %s", t.Name, t.Where) }
func (t EvalExpr) String() string       { return fmt.Sprintf("expression %s in project %s", t.Expr, t.Where) }
func (t EvalType) String() string       { return fmt.Sprintf("type %s in project %s", t.Type, t.Where) }
func (t EvalName) String() string       { return fmt.Sprintf("name %s in project %s", t.Name, t.Where) }
func (t EvalTypeName) String() string   { return fmt.Sprintf("type name %s in project %s", t.Name, t.Where) }
func (t EvalImport) String() string     { return fmt.Sprintf("import %s in project %s", t.Name, t.Where) }
func (t EvalPreloaded) String() string  { return fmt.Sprintf("plugin %s from project %s", t.Plugin, t.Where) }
func (t EvalBuildRule) String() string  { return fmt.Sprintf("rule %s in project %s", t.Name, t.Where) }
func (t EvalActionRule) String() string { return fmt.Sprintf("action rule %s in project %s", t.Name, t.Where) }
func (t EvalDataClass) String() string  { return fmt.Sprintf("class %s in project %s", t.Name, t.Where) }
func (t EvalSuperClass) String() string { return fmt.Sprintf("super class %s in project %s", t.Name, t.Where) }
func (t EvalClassByName) String() string {
	return fmt.Sprintf("class %s", t.Class)
}
func (t InvokeRule) String() string {
	return fmt.Sprintf("invocation %s of rule %s", t.TargetID, t.Call.Rule.CName)
}
func (t ExecAction) String() string { return fmt.Sprintf("action %s in project %s", t.Name, t.Where) }
func (t ExecActionCallExpr) String() string {
	return fmt.Sprintf("statement %d of action %s in project %s", t.Index, t.Action, t.Where)
}
