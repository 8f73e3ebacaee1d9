package graph

import (
	"github.com/specialistvlad/bibixgo/internal/ast"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
)

// EntryKind classifies a declared name.
type EntryKind int

const (
	ImportEntry EntryKind = iota
	TargetEntry
	ActionEntry
	BuildRuleEntry
	ActionRuleEntry
	DataClassEntry
	SuperClassEntry
	EnumEntry
	VarEntry
)

var entryKindNames = map[EntryKind]string{
	ImportEntry:     "import",
	TargetEntry:     "target",
	ActionEntry:     "action",
	BuildRuleEntry:  "build rule",
	ActionRuleEntry: "action rule",
	DataClassEntry:  "data class",
	SuperClassEntry: "super class",
	EnumEntry:       "enum",
	VarEntry:        "var",
}

func (k EntryKind) String() string { return entryKindNames[k] }

// NameEntry is one declaration. Name is the full dotted name from the root.
type NameEntry struct {
	Kind EntryKind
	Name nodeid.Name
	Def  ast.Def
}

// NameLookupTable holds the names declared in one scope and its nested
// namespaces.
type NameLookupTable struct {
	Names      map[string]*NameEntry
	Namespaces map[string]*NameLookupTable
}

// NewNameLookupTable indexes the declarations of a script. Declaring a name
// twice in the same scope is an error.
func NewNameLookupTable(script *ast.BuildScript) (*NameLookupTable, error) {
	return newTable(nil, script.Defs)
}

func newTable(path []string, defs []ast.Def) (*NameLookupTable, error) {
	t := &NameLookupTable{
		Names:      map[string]*NameEntry{},
		Namespaces: map[string]*NameLookupTable{},
	}
	add := func(name string, kind EntryKind, def ast.Def) error {
		if _, ok := t.Names[name]; ok {
			return &DuplicateNameError{Name: name, Pos: def.Span().Start}
		}
		if _, ok := t.Namespaces[name]; ok {
			return &DuplicateNameError{Name: name, Pos: def.Span().Start}
		}
		t.Names[name] = &NameEntry{Kind: kind, Name: nodeid.NewName(append(append([]string{}, path...), name)...), Def: def}
		return nil
	}
	for _, def := range defs {
		var err error
		switch d := def.(type) {
		case *ast.ImportAll, *ast.ImportFrom:
			name, _ := ast.ImportName(d)
			err = add(name, ImportEntry, d)
		case *ast.NamespaceDef:
			if _, ok := t.Names[d.Name]; ok {
				return nil, &DuplicateNameError{Name: d.Name, Pos: d.Range.Start}
			}
			if _, ok := t.Namespaces[d.Name]; ok {
				return nil, &DuplicateNameError{Name: d.Name, Pos: d.Range.Start}
			}
			inner, innerErr := newTable(append(append([]string{}, path...), d.Name), d.Body)
			if innerErr != nil {
				return nil, innerErr
			}
			t.Namespaces[d.Name] = inner
		case *ast.TargetDef:
			err = add(d.Name, TargetEntry, d)
		case *ast.ActionDef:
			err = add(d.Name, ActionEntry, d)
		case *ast.BuildRuleDef:
			err = add(d.Name, BuildRuleEntry, d)
		case *ast.ActionRuleDef:
			err = add(d.Name, ActionRuleEntry, d)
		case *ast.DataClassDef:
			err = add(d.Name, DataClassEntry, d)
		case *ast.SuperClassDef:
			err = add(d.Name, SuperClassEntry, d)
		case *ast.EnumDef:
			err = add(d.Name, EnumEntry, d)
		case *ast.VarDef:
			err = add(d.Name, VarEntry, d)
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *NameLookupTable) contains(name string) bool {
	if _, ok := t.Names[name]; ok {
		return true
	}
	_, ok := t.Namespaces[name]
	return ok
}

// Lookup resolves tokens inside this table only.
func (t *NameLookupTable) Lookup(tokens []string) LookupResult {
	first := tokens[0]
	if entry, ok := t.Names[first]; ok {
		switch {
		case entry.Kind == ImportEntry:
			return InImport{Import: entry, Remaining: tokens[1:]}
		case len(tokens) == 1:
			return EntryFound{Entry: entry}
		case entry.Kind == EnumEntry && len(tokens) == 2:
			return EnumValueFound{Enum: entry, Value: tokens[1]}
		}
		return NotFound{Tokens: tokens}
	}
	if ns, ok := t.Namespaces[first]; ok {
		if len(tokens) == 1 {
			return NamespaceFound{Name: first}
		}
		return ns.Lookup(tokens[1:])
	}
	return NotFound{Tokens: tokens}
}

// LookupResult is the outcome of a name lookup.
type LookupResult interface {
	isLookupResult()
}

// EntryFound is a declaration of the script itself.
type EntryFound struct {
	Entry *NameEntry
}

type EnumValueFound struct {
	Enum  *NameEntry
	Value string
}

// InImport defers the remaining tokens to the project bound by Import.
type InImport struct {
	Import    *NameEntry
	Remaining []string
}

type NamespaceFound struct {
	Name string
}

type PreloadedPluginName struct {
	Plugin    string
	Remaining []string
}

type PreludeName struct {
	Name      string
	Remaining []string
}

type NotFound struct {
	Tokens []string
}

func (EntryFound) isLookupResult()          {}
func (EnumValueFound) isLookupResult()      {}
func (InImport) isLookupResult()            {}
func (NamespaceFound) isLookupResult()      {}
func (PreloadedPluginName) isLookupResult() {}
func (PreludeName) isLookupResult()         {}
func (NotFound) isLookupResult()            {}

// Scope is one level of the lexical scope chain.
type Scope struct {
	Path   []string
	Table  *NameLookupTable
	Parent *Scope
}

func NewRootScope(table *NameLookupTable) *Scope {
	return &Scope{Table: table}
}

// Enter returns the scope of the nested namespaces. Unknown namespaces stop
// the descent.
func (s *Scope) Enter(namespaces ...string) *Scope {
	cur := s
	for _, ns := range namespaces {
		inner, ok := cur.Table.Namespaces[ns]
		if !ok {
			break
		}
		path := append(append([]string{}, cur.Path...), ns)
		cur = &Scope{Path: path, Table: inner, Parent: cur}
	}
	return cur
}

// Lookup resolves tokens from this scope outward. Declarations in the scope
// chain shadow preloaded plugin names, which shadow prelude names.
func (s *Scope) Lookup(tokens []string, preloaded, prelude map[string]bool) LookupResult {
	return s.LookupExcept(tokens, preloaded, prelude, nil)
}

// LookupExcept is Lookup ignoring the declaration except. An import's
// source is resolved this way so that `import jvm` does not find itself.
func (s *Scope) LookupExcept(tokens []string, preloaded, prelude map[string]bool, except ast.Def) LookupResult {
	first := tokens[0]
	for cur := s; cur != nil; cur = cur.Parent {
		if entry, ok := cur.Table.Names[first]; ok && except != nil && entry.Def == except {
			continue
		}
		if cur.Table.contains(first) {
			return cur.Table.Lookup(tokens)
		}
	}
	if preloaded[first] {
		return PreloadedPluginName{Plugin: first, Remaining: tokens[1:]}
	}
	if prelude[first] {
		return PreludeName{Name: first, Remaining: tokens[1:]}
	}
	return NotFound{Tokens: tokens}
}
