package ast

// NameType is a basic type name or a reference to a class or enum.
type NameType struct {
	Base
	Tokens []string
}

// CollectionType is `list<x>` or `set<x>`.
type CollectionType struct {
	Base
	Name   string
	Params []TypeExpr
}

type TupleType struct {
	Base
	Elems []TypeExpr
}

type NamedTupleType struct {
	Base
	Elems []*NamedType
}

type NamedType struct {
	Base
	Name string
	Type TypeExpr
}

// UnionType is `{a, b}`.
type UnionType struct {
	Base
	Elems []TypeExpr
}

func (*NameType) isTypeExpr()       {}
func (*CollectionType) isTypeExpr() {}
func (*TupleType) isTypeExpr()      {}
func (*NamedTupleType) isTypeExpr() {}
func (*UnionType) isTypeExpr()      {}
