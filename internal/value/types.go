package value

import "strings"

// Type is a script type.
type Type interface {
	String() string
	isType()
}

// BasicType covers the types that have no parameters.
type BasicType int

const (
	AnyType BasicType = iota
	BooleanType
	StringType
	PathType
	FileType
	DirectoryType
	NoneType
	BuildRuleDefType
	ActionRuleDefType
	TypeType
)

var basicTypeNames = map[BasicType]string{
	AnyType:           "any",
	BooleanType:       "boolean",
	StringType:        "string",
	PathType:          "path",
	FileType:          "file",
	DirectoryType:     "directory",
	NoneType:          "none",
	BuildRuleDefType:  "buildrule",
	ActionRuleDefType: "actionrule",
	TypeType:          "type",
}

// BasicTypeByName maps the reserved type names of the script language.
var BasicTypeByName = map[string]BasicType{
	"any":        AnyType,
	"boolean":    BooleanType,
	"string":     StringType,
	"path":       PathType,
	"file":       FileType,
	"directory":  DirectoryType,
	"none":       NoneType,
	"buildrule":  BuildRuleDefType,
	"actionrule": ActionRuleDefType,
	"type":       TypeType,
}

func (t BasicType) String() string { return basicTypeNames[t] }

type ListType struct {
	Elem Type
}

type SetType struct {
	Elem Type
}

type TupleType struct {
	Elems []Type
}

type NamedType struct {
	Name string
	Type Type
}

type NamedTupleType struct {
	Pairs []NamedType
}

type DataClassType struct {
	Package string
	Name    string
}

type SuperClassType struct {
	Package string
	Name    string
}

type EnumType struct {
	Package string
	Name    string
}

type UnionType struct {
	Types []Type
}

func (BasicType) isType()      {}
func (ListType) isType()       {}
func (SetType) isType()        {}
func (TupleType) isType()      {}
func (NamedTupleType) isType() {}
func (DataClassType) isType()  {}
func (SuperClassType) isType() {}
func (EnumType) isType()       {}
func (UnionType) isType()      {}

func (t ListType) String() string { return "list<" + t.Elem.String() + ">" }
func (t SetType) String() string  { return "set<" + t.Elem.String() + ">" }

func (t TupleType) String() string {
	return "(" + joinTypes(t.Elems) + ")"
}

func (t NamedTupleType) String() string {
	parts := make([]string, len(t.Pairs))
	for i, p := range t.Pairs {
		parts[i] = p.Name + ": " + p.Type.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t NamedTupleType) Names() []string {
	names := make([]string, len(t.Pairs))
	for i, p := range t.Pairs {
		names[i] = p.Name
	}
	return names
}

func (t DataClassType) String() string  { return "class " + t.Package + ":" + t.Name }
func (t SuperClassType) String() string { return "super class " + t.Package + ":" + t.Name }
func (t EnumType) String() string       { return "enum " + t.Package + ":" + t.Name }
func (t UnionType) String() string      { return "{" + joinTypes(t.Types) + "}" }

func joinTypes(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// TypeEqual reports structural equality of two types.
func TypeEqual(a, b Type) bool {
	switch a := a.(type) {
	case BasicType:
		b, ok := b.(BasicType)
		return ok && a == b
	case ListType:
		b, ok := b.(ListType)
		return ok && TypeEqual(a.Elem, b.Elem)
	case SetType:
		b, ok := b.(SetType)
		return ok && TypeEqual(a.Elem, b.Elem)
	case TupleType:
		b, ok := b.(TupleType)
		return ok && typesEqual(a.Elems, b.Elems)
	case NamedTupleType:
		b, ok := b.(NamedTupleType)
		if !ok || len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for i := range a.Pairs {
			if a.Pairs[i].Name != b.Pairs[i].Name || !TypeEqual(a.Pairs[i].Type, b.Pairs[i].Type) {
				return false
			}
		}
		return true
	case DataClassType:
		b, ok := b.(DataClassType)
		return ok && a == b
	case SuperClassType:
		b, ok := b.(SuperClassType)
		return ok && a == b
	case EnumType:
		b, ok := b.(EnumType)
		return ok && a == b
	case UnionType:
		b, ok := b.(UnionType)
		return ok && typesEqual(a.Types, b.Types)
	}
	return false
}

func typesEqual(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !TypeEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
