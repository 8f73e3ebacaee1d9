package ast

import "fmt"

// Pos is a location in the source text.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is the source range covered by a node.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string {
	return fmt.Sprintf("%s..%s", s.Start, s.End)
}

// Node is implemented by every syntax tree node.
type Node interface {
	ID() int
	Span() Span
}

// Base holds the fields shared by all nodes.
type Base struct {
	NodeID int
	Range  Span
}

func (b *Base) ID() int    { return b.NodeID }
func (b *Base) Span() Span { return b.Range }

// BuildScript is the root of a parsed script.
type BuildScript struct {
	Base
	// PackageName is nil when the script has no package declaration.
	PackageName []string
	Defs        []Def
}

// Def is a top-level or namespace-level definition.
type Def interface {
	Node
	isDef()
}

// Expr is an expression.
type Expr interface {
	Node
	isExpr()
}

// TypeExpr is a type annotation.
type TypeExpr interface {
	Node
	isTypeExpr()
}

// ActionStmt is a statement inside an action body: *LetStmt or *CallExpr.
type ActionStmt interface {
	Node
	isActionStmt()
}

// StringElem is one chunk of a string literal.
type StringElem interface {
	Node
	isStringElem()
}
