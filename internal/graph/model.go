package graph

import (
	"github.com/specialistvlad/bibixgo/internal/ast"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
)

// ExprGraph holds expression nodes and their "needs the value of" edges.
type ExprGraph struct {
	Nodes map[ExprID]ExprNode
	Edges map[ExprID][]ExprID
	// TypeEdges are edges from expression nodes to the types they need.
	TypeEdges map[ExprID][]TypeID
}

// TypeGraph holds type nodes and their edges.
type TypeGraph struct {
	Nodes map[TypeID]TypeNode
	Edges map[TypeID][]TypeID
}

// ParamDef is a rule parameter or a data class field. Default is empty when
// there is no default value.
type ParamDef struct {
	Name     string
	Optional bool
	Type     TypeID
	Default  ExprID
}

type BuildRuleDef struct {
	Def        *ast.BuildRuleDef
	Name       nodeid.Name
	Params     []ParamDef
	ReturnType TypeID
	// ImplTarget is empty for native rules.
	ImplTarget ExprID
	ImplClass  string
	ImplMethod string
}

type ActionRuleDef struct {
	Def        *ast.ActionRuleDef
	Name       nodeid.Name
	Params     []ParamDef
	ImplTarget ExprID
	ImplClass  string
	ImplMethod string
}

type VarDef struct {
	Def     *ast.VarDef
	Name    nodeid.Name
	Type    TypeID
	Default ExprID
}

// ClassCast is a custom `as T = expr` entry of a data class, evaluated with
// `this` bound to the instance.
type ClassCast struct {
	Type TypeID
	Expr ExprID
}

type DataClassDef struct {
	Def    *ast.DataClassDef
	Name   nodeid.Name
	Fields []ParamDef
	Casts  []ClassCast
}

type SuperClassDef struct {
	Def  *ast.SuperClassDef
	Name nodeid.Name
	Subs []string
}

type EnumDef struct {
	Def    *ast.EnumDef
	Name   nodeid.Name
	Values []string
}

type ImportAllDef struct {
	Def    *ast.ImportAll
	Source ExprID
}

type ImportFromDef struct {
	Def       *ast.ImportFrom
	Source    ExprID
	Importing []string
}

// ActionStmt is one statement of an action body. Let is empty for a bare
// call.
type ActionStmt struct {
	Let  string
	Expr ExprID
}

type ActionDef struct {
	Def      *ast.ActionDef
	Name     nodeid.Name
	ArgsName string
	Stmts    []ActionStmt
}

// BuildGraph is the immutable graph model of one script.
type BuildGraph struct {
	// PackageName is empty when the script declares no package.
	PackageName string

	Targets      map[nodeid.Name]ExprID
	BuildRules   map[nodeid.Name]*BuildRuleDef
	ActionRules  map[nodeid.Name]*ActionRuleDef
	Actions      map[nodeid.Name]*ActionDef
	Vars         map[nodeid.Name]*VarDef
	DataClasses  map[nodeid.Name]*DataClassDef
	SuperClasses map[nodeid.Name]*SuperClassDef
	Enums        map[nodeid.Name]*EnumDef
	ImportAlls   map[nodeid.Name]*ImportAllDef
	ImportFroms  map[nodeid.Name]*ImportFromDef

	// VarRedefs maps an import name to the variables it overrides in the
	// imported project. PreloadedVarRedefs does the same for preloaded
	// plugins, keyed by plugin name.
	VarRedefs          map[nodeid.Name]map[nodeid.Name]ExprID
	PreloadedVarRedefs map[string]map[nodeid.Name]ExprID

	Exprs ExprGraph
	Types TypeGraph

	// Names is the root lookup table of the script.
	Names *NameLookupTable
}

// Expr returns the expression node with the given id.
func (g *BuildGraph) Expr(id ExprID) (ExprNode, bool) {
	n, ok := g.Exprs.Nodes[id]
	return n, ok
}

// Type returns the type node with the given id.
func (g *BuildGraph) Type(id TypeID) (TypeNode, bool) {
	n, ok := g.Types.Nodes[id]
	return n, ok
}

// IsImport reports whether name is bound by an import statement.
func (g *BuildGraph) IsImport(name nodeid.Name) bool {
	if _, ok := g.ImportAlls[name]; ok {
		return true
	}
	_, ok := g.ImportFroms[name]
	return ok
}

// Lookup resolves tokens from the root scope of the script without falling
// back to preloaded plugins or the prelude.
func (g *BuildGraph) Lookup(tokens []string) LookupResult {
	return g.Names.Lookup(tokens)
}

// LookupFrom resolves tokens starting at the namespace scope, walking
// outward to the root.
func (g *BuildGraph) LookupFrom(scope nodeid.Name, tokens []string) LookupResult {
	return NewRootScope(g.Names).Enter(scope.Tokens()...).Lookup(tokens, nil, nil)
}
