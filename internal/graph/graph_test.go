package graph

import (
	"errors"
	"testing"

	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, src string, opts Options) (*BuildGraph, error) {
	t.Helper()
	script, err := parser.Parse(src)
	require.NoError(t, err)
	return Build(script, opts)
}

func mustBuild(t *testing.T, src string, opts Options) *BuildGraph {
	t.Helper()
	g, err := build(t, src, opts)
	require.NoError(t, err)
	return g
}

func TestBuild_TargetsAndNamespaces(t *testing.T) {
	// --- Arrange ---
	src := `
package com.example
a = "x"
b = a
namespace n {
  a = "inner"
  c = a
  d = b
}
`
	// --- Act ---
	g := mustBuild(t, src, Options{})

	// --- Assert ---
	assert.Equal(t, "com.example", g.PackageName)
	require.Contains(t, g.Targets, nodeid.NewName("b"))
	require.Contains(t, g.Targets, nodeid.NewName("n", "c"))

	b, ok := g.Expr(g.Targets[nodeid.NewName("b")])
	require.True(t, ok)
	require.IsType(t, &LocalTargetRef{}, b)
	assert.Equal(t, nodeid.NewName("a"), b.(*LocalTargetRef).Name)

	// Inner declarations shadow outer ones.
	c, _ := g.Expr(g.Targets[nodeid.NewName("n", "c")])
	assert.Equal(t, nodeid.NewName("n", "a"), c.(*LocalTargetRef).Name)

	// Names missing from the namespace fall back to the enclosing scope.
	d, _ := g.Expr(g.Targets[nodeid.NewName("n", "d")])
	assert.Equal(t, nodeid.NewName("b"), d.(*LocalTargetRef).Name)
}

func TestBuild_ResolutionPrecedence(t *testing.T) {
	opts := Options{
		PreloadedPlugins: map[string]bool{"file": true, "glob": true},
		PreludeNames:     map[string]bool{"glob": true, "env": true},
	}

	testCases := []struct {
		name string
		src  string
		want any
	}{
		{"local declaration wins", "glob = \"mine\"\nx = glob", &LocalTargetRef{}},
		{"preloaded plugin beats prelude", "x = glob", &ImportedExprFromPreloaded{}},
		{"prelude name", "x = env", &ImportedExprFromPrelude{}},
		{"import beats everything", "import \"../lib\" as env\nx = env.arch", &ImportedExpr{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := mustBuild(t, tc.src, opts)
			x, ok := g.Expr(g.Targets[nodeid.NewName("x")])
			require.True(t, ok)
			assert.IsType(t, tc.want, x)
		})
	}
}

func TestBuild_ImportedNames(t *testing.T) {
	g := mustBuild(t, "import \"../lib\" as lib\nx = lib.a.b\ny = env.os", Options{
		PreludeNames: map[string]bool{"env": true},
	})

	x, _ := g.Expr(g.Targets[nodeid.NewName("x")])
	imported := x.(*ImportedExpr)
	assert.Equal(t, nodeid.NewName("lib"), imported.Import)
	assert.Equal(t, nodeid.NewName("a", "b"), imported.Name)
	assert.True(t, g.IsImport(nodeid.NewName("lib")))

	y, _ := g.Expr(g.Targets[nodeid.NewName("y")])
	prelude := y.(*ImportedExprFromPrelude)
	assert.Equal(t, "env", prelude.Name)
	assert.Equal(t, []string{"os"}, prelude.Remaining)
}

func TestBuild_ImportOfPreloadedPlugin(t *testing.T) {
	g := mustBuild(t, "import jvm\nx = jvm.lib", Options{
		PreloadedPlugins: map[string]bool{"jvm": true},
	})

	def := g.ImportAlls[nodeid.NewName("jvm")]
	require.NotNil(t, def)
	src, _ := g.Expr(def.Source)
	require.IsType(t, &ImportedExprFromPreloaded{}, src)
	assert.Equal(t, "jvm", src.(*ImportedExprFromPreloaded).Plugin)

	// Inside the script, jvm now names the import.
	x, _ := g.Expr(g.Targets[nodeid.NewName("x")])
	require.IsType(t, &ImportedExpr{}, x)
}

func TestBuild_CallWiresCoercions(t *testing.T) {
	// --- Arrange ---
	src := `
impl = "test.fake"
def r(a: string, b: string = "default"): string = impl:Echo
x = r("hello", b: "world")
`
	// --- Act ---
	g := mustBuild(t, src, Options{})

	// --- Assert ---
	rule := g.BuildRules[nodeid.NewName("r")]
	require.NotNil(t, rule)
	require.Len(t, rule.Params, 2)
	assert.Empty(t, rule.Params[0].Default)
	require.NotEmpty(t, rule.Params[1].Default)
	def, _ := g.Expr(rule.Params[1].Default)
	assert.IsType(t, &ValueCast{}, def)
	assert.Equal(t, "Echo", rule.ImplClass)
	impl, _ := g.Expr(rule.ImplTarget)
	assert.IsType(t, &LocalTargetRef{}, impl)

	x, _ := g.Expr(g.Targets[nodeid.NewName("x")])
	callExpr := x.(*CallExprNode)
	callNode, _ := g.Expr(callExpr.Call)
	call := callNode.(*CallExprCallNode)
	require.Len(t, call.Pos, 1)
	require.Len(t, call.Named, 1)
	assert.Equal(t, "b", call.Named[0].Name)

	pos, _ := g.Expr(call.Pos[0])
	coercion := pos.(*ParamCoercion)
	assert.Equal(t, 0, coercion.Pos)
	assert.Equal(t, callExpr.Callee, coercion.Callee)
	assert.Contains(t, g.Exprs.Edges[callExpr.Call], call.Pos[0])
}

func TestBuild_StringTemplate(t *testing.T) {
	g := mustBuild(t, "name = \"w\"\nx = \"hello $name!\\n\"", Options{})

	x, _ := g.Expr(g.Targets[nodeid.NewName("x")])
	str := x.(*StringNode)
	require.Len(t, str.Parts, 3)
	assert.Equal(t, "hello ", str.Parts[0].Text)
	assert.Equal(t, "!\n", str.Parts[2].Text)

	cast, _ := g.Expr(str.Parts[1].Expr)
	require.IsType(t, &ValueCast{}, cast)
	typ, _ := g.Type(cast.(*ValueCast).Type)
	assert.Equal(t, TypeID("basic:string"), typ.ID())
}

func TestBuild_Types(t *testing.T) {
	src := `
class Pair(a: list<string>, b: set<file>, c: {string, none}, d: (string, path), e: (x: Arch))
enum Arch { x86, arm }
`
	g := mustBuild(t, src, Options{})

	class := g.DataClasses[nodeid.NewName("Pair")]
	require.NotNil(t, class)
	require.Len(t, class.Fields, 5)

	want := []any{&ListTypeNode{}, &SetTypeNode{}, &UnionTypeNode{}, &TupleTypeNode{}, &NamedTupleTypeNode{}}
	for i, field := range class.Fields {
		typ, ok := g.Type(field.Type)
		require.True(t, ok, field.Name)
		assert.IsType(t, want[i], typ, field.Name)
	}

	named, _ := g.Type(class.Fields[4].Type)
	elem, _ := g.Type(named.(*NamedTupleTypeNode).Elems[0].Type)
	assert.IsType(t, &LocalEnumTypeRef{}, elem)
}

func TestBuild_VarRedefs(t *testing.T) {
	src := `
import "../lib" as lib
var lib.version = "2", file.mode = "fast"
x = lib.out
`
	g := mustBuild(t, src, Options{PreloadedPlugins: map[string]bool{"file": true}})

	require.Contains(t, g.VarRedefs, nodeid.NewName("lib"))
	assert.Contains(t, g.VarRedefs[nodeid.NewName("lib")], nodeid.NewName("version"))
	require.Contains(t, g.PreloadedVarRedefs, "file")
	assert.Contains(t, g.PreloadedVarRedefs["file"], nodeid.NewName("mode"))
}

func TestBuild_ActionLocals(t *testing.T) {
	src := `
impl = "test.fake"
action def copy(src: string, dest: string) = impl:Copy
action all(args) {
  let d = args.first
  copy(src: d, dest: "out")
}
`
	g := mustBuild(t, src, Options{})

	action := g.Actions[nodeid.NewName("all")]
	require.NotNil(t, action)
	require.Len(t, action.Stmts, 2)
	assert.Equal(t, "d", action.Stmts[0].Let)

	first, _ := g.Expr(action.Stmts[0].Expr)
	access := first.(*MemberAccessNode)
	assert.Equal(t, []string{"first"}, access.Members)
	target, _ := g.Expr(access.Target)
	assert.Equal(t, "args", target.(*ActionLocalLet).Name)
}

func TestBuild_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		opts  Options
		check func(t *testing.T, err error)
	}{
		{
			name: "duplicate name",
			src:  "a = \"x\"\na = \"y\"",
			check: func(t *testing.T, err error) {
				var dup *DuplicateNameError
				require.True(t, errors.As(err, &dup))
				assert.Equal(t, "a", dup.Name)
			},
		},
		{
			name: "unknown name",
			src:  "a = nope.x",
			check: func(t *testing.T, err error) {
				var nf *NameNotFoundError
				require.True(t, errors.As(err, &nf))
				assert.Equal(t, []string{"nope", "x"}, nf.Tokens)
				assert.Equal(t, 1, nf.Pos.Line)
			},
		},
		{
			name: "namespace is not a value",
			src:  "namespace n { a = \"x\" }\nb = n",
			check: func(t *testing.T, err error) {
				var nf *NameNotFoundError
				require.True(t, errors.As(err, &nf))
			},
		},
		{
			name: "reference cycle",
			src:  "a = b\nb = a",
			check: func(t *testing.T, err error) {
				var cycle *CycleError
				require.True(t, errors.As(err, &cycle))
				assert.Len(t, cycle.Names, 3)
				assert.Equal(t, cycle.Names[0], cycle.Names[2])
				assert.ElementsMatch(t, []string{"a", "b"}, cycle.Names[:2])
			},
		},
		{
			name: "cycle through an expression",
			src:  "a = [b]\nb = \"x${a}\"",
			check: func(t *testing.T, err error) {
				var cycle *CycleError
				require.True(t, errors.As(err, &cycle))
			},
		},
		{
			name: "self reference",
			src:  "a = a",
			check: func(t *testing.T, err error) {
				var cycle *CycleError
				require.True(t, errors.As(err, &cycle))
				assert.Equal(t, []string{"a", "a"}, cycle.Names)
			},
		},
		{
			name: "this outside a class",
			src:  "a = this",
			check: func(t *testing.T, err error) {
				var se *ScriptError
				require.True(t, errors.As(err, &se))
			},
		},
		{
			name: "native outside a plugin",
			src:  "def r(): string = native:R",
			check: func(t *testing.T, err error) {
				var se *ScriptError
				require.True(t, errors.As(err, &se))
				assert.Contains(t, se.Msg, "native")
			},
		},
		{
			name: "redefinition inside a namespace",
			src:  "import \"../lib\" as lib\nnamespace n { var lib.v = \"x\" }",
			check: func(t *testing.T, err error) {
				var se *ScriptError
				require.True(t, errors.As(err, &se))
			},
		},
		{
			name: "redefinition of a local name",
			src:  "a = \"x\"\nvar a.b = \"y\"",
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
		{
			name: "duplicate redefinition",
			src:  "import \"../lib\" as lib\nvar lib.v = \"x\", lib.v = \"y\"",
			check: func(t *testing.T, err error) {
				var se *ScriptError
				require.True(t, errors.As(err, &se))
				assert.Contains(t, se.Msg, "duplicate")
			},
		},
		{
			name: "super class of a target",
			src:  "a = \"x\"\nsuper class S { a }",
			check: func(t *testing.T, err error) {
				var se *ScriptError
				require.True(t, errors.As(err, &se))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := build(t, tc.src, tc.opts)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestBuild_NativeAllowedInPlugins(t *testing.T) {
	g := mustBuild(t, "def r(a: string): string = native:Echo", Options{NativeAllowed: true})

	rule := g.BuildRules[nodeid.NewName("r")]
	require.NotNil(t, rule)
	assert.Empty(t, rule.ImplTarget)
	assert.Equal(t, "Echo", rule.ImplClass)
}
