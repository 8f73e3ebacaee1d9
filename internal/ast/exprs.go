package ast

// CastExpr is `expr as type`.
type CastExpr struct {
	Base
	Expr   Expr
	CastTo TypeExpr
}

// MergeOp is `lhs + rhs`.
type MergeOp struct {
	Base
	Lhs Expr
	Rhs Expr
}

type CallExpr struct {
	Base
	Name  []string
	Pos   []Expr
	Named []*NamedArg
}

type NamedArg struct {
	Base
	Name  string
	Value Expr
}

type ListExpr struct {
	Base
	Elems []*ListElem
}

// ListElem is a list element; Ellipsis marks `...expr` whose elements are
// spliced into the enclosing list.
type ListElem struct {
	Value    Expr
	Ellipsis bool
}

type TupleExpr struct {
	Base
	Elems []Expr
}

type NamedTupleExpr struct {
	Base
	Elems []*NamedExpr
}

type NamedExpr struct {
	Base
	Name  string
	Value Expr
}

type MemberAccess struct {
	Base
	Target Expr
	Name   string
}

type NameRef struct {
	Base
	Name string
}

type This struct {
	Base
}

type Paren struct {
	Base
	Expr Expr
}

type StringLiteral struct {
	Base
	Elems []StringElem
}

// JustChars is a run of literal characters.
type JustChars struct {
	Base
	Text string
}

// EscapeChar is a backslash escape such as `\n`.
type EscapeChar struct {
	Base
	Code rune
}

// SimpleExpr is `$name` inside a string.
type SimpleExpr struct {
	Base
	Name string
}

// ComplexExpr is `${expr}` inside a string.
type ComplexExpr struct {
	Base
	Expr Expr
}

type BooleanLiteral struct {
	Base
	Value bool
}

type NoneLiteral struct {
	Base
}

func (*CastExpr) isExpr()       {}
func (*MergeOp) isExpr()        {}
func (*CallExpr) isExpr()       {}
func (*ListExpr) isExpr()       {}
func (*TupleExpr) isExpr()      {}
func (*NamedTupleExpr) isExpr() {}
func (*MemberAccess) isExpr()   {}
func (*NameRef) isExpr()        {}
func (*This) isExpr()           {}
func (*Paren) isExpr()          {}
func (*StringLiteral) isExpr()  {}
func (*BooleanLiteral) isExpr() {}
func (*NoneLiteral) isExpr()    {}

func (*JustChars) isStringElem()   {}
func (*EscapeChar) isStringElem()  {}
func (*SimpleExpr) isStringElem()  {}
func (*ComplexExpr) isStringElem() {}

// FirstNonName splits a member access chain into the first expression that is
// not a plain name and the trailing member names. For a pure dotted name such
// as `a.b.c` it returns a nil expression and all tokens.
func (m *MemberAccess) FirstNonName() (Expr, []string) {
	switch target := m.Target.(type) {
	case *MemberAccess:
		first, names := target.FirstNonName()
		return first, append(names, m.Name)
	case *NameRef:
		return nil, []string{target.Name, m.Name}
	default:
		return target, []string{m.Name}
	}
}
