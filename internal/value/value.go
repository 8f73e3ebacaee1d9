// Package value defines the runtime values and types of build scripts.
package value

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Value is a fully evaluated script value.
type Value interface {
	// String returns the canonical debug form of the value.
	String() string
	isValue()
}

type Boolean bool

type String string

// Path, File and Directory hold absolute, cleaned file system paths.
type Path string
type File string
type Directory string

type Enum struct {
	Package string
	Enum    string
	Value   string
}

type List struct {
	Values []Value
}

// Set keeps its elements in first-seen order with duplicates removed.
type Set struct {
	Values []Value
}

type Tuple struct {
	Values []Value
}

type NamedPair struct {
	Name  string
	Value Value
}

type NamedTuple struct {
	Pairs []NamedPair
}

// ClassInstance is an instance of a data class, addressed canonically by
// package and class name. Class is dotted when the class is defined inside
// a namespace.
type ClassInstance struct {
	Package string
	Class   string
	Fields  map[string]Value
}

// NClassInstance is a class instance named relative to the scope of the rule
// that produced it. It is resolved to a ClassInstance during finalization.
type NClassInstance struct {
	NameTokens []string
	Fields     map[string]Value
}

type NoneValue struct{}

// None is the single none value.
var None Value = NoneValue{}

// CName is the canonical name of a definition: its package and its dotted
// name within that package.
type CName struct {
	Package string
	Name    string
}

func (c CName) String() string {
	return c.Package + ":" + c.Name
}

type RuleParam struct {
	Name     string
	Type     Type
	Optional bool
}

type BuildRuleDef struct {
	Name       CName
	Params     []RuleParam
	Impl       CName
	ImplClass  string
	ImplMethod string
}

type ActionRuleDef struct {
	Name       CName
	Params     []RuleParam
	Impl       CName
	ImplClass  string
	ImplMethod string
}

// TypeValue is a type used as a value.
type TypeValue struct {
	Type Type
}

func (Boolean) isValue()        {}
func (String) isValue()         {}
func (Path) isValue()           {}
func (File) isValue()           {}
func (Directory) isValue()      {}
func (Enum) isValue()           {}
func (List) isValue()           {}
func (Set) isValue()            {}
func (Tuple) isValue()          {}
func (NamedTuple) isValue()     {}
func (ClassInstance) isValue()  {}
func (NClassInstance) isValue() {}
func (NoneValue) isValue()      {}
func (BuildRuleDef) isValue()   {}
func (ActionRuleDef) isValue()  {}
func (TypeValue) isValue()      {}

// NewSet builds a set, dropping duplicate elements.
func NewSet(values ...Value) Set {
	out := make([]Value, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		key := string(Encode(v))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return Set{Values: out}
}

func NewList(values ...Value) List {
	return List{Values: values}
}

// NewNamedTuple builds a named tuple from ordered pairs.
func NewNamedTuple(pairs ...NamedPair) NamedTuple {
	return NamedTuple{Pairs: pairs}
}

func (t NamedTuple) Names() []string {
	names := make([]string, len(t.Pairs))
	for i, p := range t.Pairs {
		names[i] = p.Name
	}
	return names
}

func (t NamedTuple) Get(name string) (Value, bool) {
	for _, p := range t.Pairs {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

func (v Boolean) String() string   { return fmt.Sprintf("%t", bool(v)) }
func (v String) String() string    { return fmt.Sprintf("%q", string(v)) }
func (v Path) String() string      { return fmt.Sprintf("path(%s)", string(v)) }
func (v File) String() string      { return fmt.Sprintf("file(%s)", string(v)) }
func (v Directory) String() string { return fmt.Sprintf("dir(%s)", string(v)) }
func (v Enum) String() string      { return fmt.Sprintf("%s:%s(%s)", v.Package, v.Enum, v.Value) }
func (NoneValue) String() string   { return "none" }

func (v List) String() string { return "[" + joinValues(v.Values) + "]" }
func (v Set) String() string  { return "{" + joinValues(v.Values) + "}" }
func (v Tuple) String() string {
	return "(" + joinValues(v.Values) + ")"
}

func (v NamedTuple) String() string {
	parts := make([]string, len(v.Pairs))
	for i, p := range v.Pairs {
		parts[i] = p.Name + ": " + p.Value.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (v ClassInstance) String() string {
	return v.Class + "(" + fieldsString(v.Fields) + ")"
}

func (v NClassInstance) String() string {
	return strings.Join(v.NameTokens, ".") + "(" + fieldsString(v.Fields) + ")"
}

func (v BuildRuleDef) String() string  { return "def " + v.Name.String() }
func (v ActionRuleDef) String() string { return "action def " + v.Name.String() }
func (v TypeValue) String() string     { return v.Type.String() }

func joinValues(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fieldsString(fields map[string]Value) string {
	keys := sortedKeys(fields)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + fields[k].String()
	}
	return strings.Join(parts, ", ")
}

// Stringify renders a value the way it is shown to users: strings and paths
// without decoration, enums by their member name.
func Stringify(v Value) string {
	switch v := v.(type) {
	case Boolean:
		return v.String()
	case String:
		return string(v)
	case Path:
		return filepath.Clean(string(v))
	case File:
		return filepath.Clean(string(v))
	case Directory:
		return filepath.Clean(string(v))
	case Enum:
		return v.Value
	case List:
		return "[" + stringifyAll(v.Values) + "]"
	case Set:
		return "[" + stringifyAll(v.Values) + "]"
	case Tuple:
		return "(" + stringifyAll(v.Values) + ")"
	case NamedTuple:
		parts := make([]string, len(v.Pairs))
		for i, p := range v.Pairs {
			parts[i] = p.Name + "=" + Stringify(p.Value)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return v.String()
}

func stringifyAll(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = Stringify(v)
	}
	return strings.Join(parts, ", ")
}
