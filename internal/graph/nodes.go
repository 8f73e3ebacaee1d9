package graph

import (
	"github.com/specialistvlad/bibixgo/internal/ast"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// ExprNode is a node of the expression graph.
type ExprNode interface {
	ID() ExprID
}

// TypeNode is a node of the type graph.
type TypeNode interface {
	ID() TypeID
}

type exprBase struct {
	NodeID ExprID
}

func (b exprBase) ID() ExprID { return b.NodeID }

type typeBase struct {
	NodeID TypeID
}

func (b typeBase) ID() TypeID { return b.NodeID }

// Local references to declarations of the same script.

type LocalTargetRef struct {
	exprBase
	Name nodeid.Name
	Def  *ast.TargetDef
}

type LocalBuildRuleRef struct {
	exprBase
	Name nodeid.Name
	Def  *ast.BuildRuleDef
}

type LocalActionRuleRef struct {
	exprBase
	Name nodeid.Name
	Def  *ast.ActionRuleDef
}

// LocalActionRef names an action. It is only callable from another action.
type LocalActionRef struct {
	exprBase
	Name nodeid.Name
	Def  *ast.ActionDef
}

type LocalVarRef struct {
	exprBase
	Name nodeid.Name
	Def  *ast.VarDef
}

type LocalDataClassRef struct {
	exprBase
	Name nodeid.Name
	Def  *ast.DataClassDef
}

type LocalEnumValue struct {
	exprBase
	Enum  nodeid.Name
	Value string
}

// ActionLocalLet refers to a `let` binding, or the arguments name, of the
// enclosing action.
type ActionLocalLet struct {
	exprBase
	Action nodeid.Name
	Name   string
}

// References that leave the script.

// ImportedExprFromPreloaded is a name inside a preloaded plugin.
type ImportedExprFromPreloaded struct {
	exprBase
	Plugin string
	Name   nodeid.Name
}

// ImportedExprFromPrelude is a prelude name followed by optional member
// tokens.
type ImportedExprFromPrelude struct {
	exprBase
	Name      string
	Remaining []string
}

// ImportedExpr is a name inside the project bound by Import.
type ImportedExpr struct {
	exprBase
	Import nodeid.Name
	Name   nodeid.Name
}

// Expressions.

type ValueCast struct {
	exprBase
	Value ExprID
	Type  TypeID
}

// CallExprNode is the value of a call expression. It waits on the call node
// so that the rule invocation happens once per call site.
type CallExprNode struct {
	exprBase
	Call   ExprID
	Callee ExprID
	AST    *ast.CallExpr
}

type NamedExprID struct {
	Name string
	Expr ExprID
}

type CallExprCallNode struct {
	exprBase
	Callee ExprID
	Pos    []ExprID
	Named  []NamedExprID
}

// ParamCoercion casts a call argument to the declared type of the callee's
// parameter. Named is empty for positional arguments.
type ParamCoercion struct {
	exprBase
	Value  ExprID
	Callee ExprID
	Pos    int
	Named  string
}

type MergeNode struct {
	exprBase
	Lhs ExprID
	Rhs ExprID
}

type ListElem struct {
	Value    ExprID
	Ellipsis bool
}

type ListNode struct {
	exprBase
	Elems []ListElem
}

type BooleanNode struct {
	exprBase
	Value bool
}

type NoneNode struct {
	exprBase
}

// StringPart is either literal text or an embedded expression already cast
// to string.
type StringPart struct {
	Text string
	Expr ExprID
}

type StringNode struct {
	exprBase
	Parts []StringPart
}

type MemberAccessNode struct {
	exprBase
	Target  ExprID
	Members []string
}

type ThisRef struct {
	exprBase
}

type TupleNode struct {
	exprBase
	Elems []ExprID
}

type NamedTupleNode struct {
	exprBase
	Elems []NamedExprID
}

// Type nodes.

type BasicTypeNode struct {
	typeBase
	Type value.BasicType
}

type ListTypeNode struct {
	typeBase
	Elem TypeID
}

type SetTypeNode struct {
	typeBase
	Elem TypeID
}

type TupleTypeNode struct {
	typeBase
	Elems []TypeID
}

type NamedTypeID struct {
	Name string
	Type TypeID
}

type NamedTupleTypeNode struct {
	typeBase
	Elems []NamedTypeID
}

type UnionTypeNode struct {
	typeBase
	Elems []TypeID
}

type LocalDataClassTypeRef struct {
	typeBase
	Name nodeid.Name
	Def  *ast.DataClassDef
}

type LocalSuperClassTypeRef struct {
	typeBase
	Name nodeid.Name
	Def  *ast.SuperClassDef
}

type LocalEnumTypeRef struct {
	typeBase
	Name nodeid.Name
	Def  *ast.EnumDef
}

type ImportedTypeFromPreloaded struct {
	typeBase
	Plugin string
	Name   nodeid.Name
}

type ImportedTypeFromPrelude struct {
	typeBase
	Name      string
	Remaining []string
}

type ImportedType struct {
	typeBase
	Import nodeid.Name
	Name   nodeid.Name
}
