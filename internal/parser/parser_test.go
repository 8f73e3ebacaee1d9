package parser

import (
	"errors"
	"testing"

	"github.com/specialistvlad/bibixgo/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Package(t *testing.T) {
	script, err := Parse("package com.example.app\nx = \"a\"")
	require.NoError(t, err)
	assert.Equal(t, []string{"com", "example", "app"}, script.PackageName)
	require.Len(t, script.Defs, 1)
	target, ok := script.Defs[0].(*ast.TargetDef)
	require.True(t, ok)
	assert.Equal(t, "x", target.Name)
}

func TestParse_Definitions(t *testing.T) {
	src := `
import jvm
import "../lib" as lib
import git(url: "https://example.com/x.git", ref: "main") as remote
from lib import compile as cc
var lib.version = "2", remote.flag = true
var version: string = "1"
namespace tools { x = "a" }
/* block
   comment */
class Pair(a: string, b?: file = "f") { as string = this.a }
super class Shape { Circle, Square }
enum Arch { x86_64, aarch64 }
def compile(srcs: set<file>, out?: string = "a"): directory = native:Compile
def impl2(x: string): {string, none} = implTarget:my.Class:method
action def copy(src: file, dest: path) = native:Copy
action deploy = copy(src: "a", dest: "b")
action all(args) { let d = compile(srcs: glob("*.c")); copy(src: d, dest: "out") }
`
	script, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, script.Defs, 15)

	t.Run("imports", func(t *testing.T) {
		all := script.Defs[0].(*ast.ImportAll)
		name, ok := ast.ImportName(all)
		assert.True(t, ok)
		assert.Equal(t, "jvm", name)

		byPath := script.Defs[1].(*ast.ImportAll)
		assert.Equal(t, "lib", byPath.Rename)
		assert.IsType(t, &ast.StringLiteral{}, byPath.Source)

		byCall := script.Defs[2].(*ast.ImportAll)
		call := byCall.Source.(*ast.CallExpr)
		assert.Equal(t, []string{"git"}, call.Name)
		require.Len(t, call.Named, 2)
		assert.Equal(t, "ref", call.Named[1].Name)

		from := script.Defs[3].(*ast.ImportFrom)
		assert.Equal(t, []string{"compile"}, from.Importing)
		assert.Equal(t, "cc", from.Rename)
	})

	t.Run("vars", func(t *testing.T) {
		redefs := script.Defs[4].(*ast.VarRedefs)
		require.Len(t, redefs.Redefs, 2)
		assert.Equal(t, []string{"lib", "version"}, redefs.Redefs[0].NameTokens)
		assert.Equal(t, []string{"remote", "flag"}, redefs.Redefs[1].NameTokens)

		v := script.Defs[5].(*ast.VarDef)
		assert.Equal(t, "version", v.Name)
		assert.Equal(t, []string{"string"}, v.Type.(*ast.NameType).Tokens)
		assert.NotNil(t, v.Default)
	})

	t.Run("namespace", func(t *testing.T) {
		ns := script.Defs[6].(*ast.NamespaceDef)
		assert.Equal(t, "tools", ns.Name)
		require.Len(t, ns.Body, 1)
	})

	t.Run("classes and enums", func(t *testing.T) {
		class := script.Defs[7].(*ast.DataClassDef)
		assert.Equal(t, "Pair", class.Name)
		require.Len(t, class.Fields, 2)
		assert.True(t, class.Fields[1].Optional)
		assert.NotNil(t, class.Fields[1].Default)
		require.Len(t, class.Casts, 1)
		access := class.Casts[0].Expr.(*ast.MemberAccess)
		assert.IsType(t, &ast.This{}, access.Target)

		super := script.Defs[8].(*ast.SuperClassDef)
		assert.Equal(t, []string{"Circle", "Square"}, super.Subs)

		enum := script.Defs[9].(*ast.EnumDef)
		assert.Equal(t, []string{"x86_64", "aarch64"}, enum.Values)
	})

	t.Run("rules", func(t *testing.T) {
		rule := script.Defs[10].(*ast.BuildRuleDef)
		assert.Equal(t, "compile", rule.Name)
		assert.Equal(t, []string{"native"}, rule.Impl.TargetName)
		assert.Equal(t, []string{"Compile"}, rule.Impl.ClassName)
		assert.Empty(t, rule.Impl.MethodName)
		coll := rule.Params[0].Type.(*ast.CollectionType)
		assert.Equal(t, "set", coll.Name)

		rule2 := script.Defs[11].(*ast.BuildRuleDef)
		assert.Equal(t, []string{"my", "Class"}, rule2.Impl.ClassName)
		assert.Equal(t, "method", rule2.Impl.MethodName)
		assert.Len(t, rule2.ReturnType.(*ast.UnionType).Elems, 2)

		actionRule := script.Defs[12].(*ast.ActionRuleDef)
		assert.Equal(t, "copy", actionRule.Name)
	})

	t.Run("actions", func(t *testing.T) {
		deploy := script.Defs[13].(*ast.ActionDef)
		assert.Equal(t, "deploy", deploy.Name)
		all := script.Defs[14].(*ast.ActionDef)
		assert.Equal(t, "all", all.Name)
	})
}

func TestParse_ActionBodies(t *testing.T) {
	script, err := Parse(`
action deploy = copy(src: "a", dest: "b")
action all(args) { let d = compile(srcs: glob("*.c")); copy(src: d, dest: "out") }
`)
	require.NoError(t, err)
	require.Len(t, script.Defs, 2)

	deploy := script.Defs[0].(*ast.ActionDef)
	require.Len(t, deploy.Body, 1)
	assert.Empty(t, deploy.ArgsName)

	all := script.Defs[1].(*ast.ActionDef)
	assert.Equal(t, "args", all.ArgsName)
	require.Len(t, all.Body, 2)
	let := all.Body[0].(*ast.LetStmt)
	assert.Equal(t, "d", let.Name)
	assert.IsType(t, &ast.CallExpr{}, all.Body[1])
}

func TestParseExpr_Precedence(t *testing.T) {
	e, err := ParseExpr(`a + b.c as set<string>`)
	require.NoError(t, err)
	cast, ok := e.(*ast.CastExpr)
	require.True(t, ok)
	merge, ok := cast.Expr.(*ast.MergeOp)
	require.True(t, ok)
	assert.IsType(t, &ast.NameRef{}, merge.Lhs)
	assert.IsType(t, &ast.MemberAccess{}, merge.Rhs)
}

func TestParseExpr_Primaries(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want any
	}{
		{"paren", `(a)`, &ast.Paren{}},
		{"tuple", `(a, "b")`, &ast.TupleExpr{}},
		{"named tuple", `(name: "a", n: true)`, &ast.NamedTupleExpr{}},
		{"list", `["a", ...xs]`, &ast.ListExpr{}},
		{"none", `none`, &ast.NoneLiteral{}},
		{"bool", `false`, &ast.BooleanLiteral{}},
		{"call", `a.b.c(x, y: z)`, &ast.CallExpr{}},
		{"member of call", `f().out`, &ast.MemberAccess{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := ParseExpr(tc.src)
			require.NoError(t, err)
			assert.IsType(t, tc.want, e)
		})
	}
}

func TestParseExpr_CallAndList(t *testing.T) {
	e, err := ParseExpr(`a.b.c(x, y: z)`)
	require.NoError(t, err)
	call := e.(*ast.CallExpr)
	assert.Equal(t, []string{"a", "b", "c"}, call.Name)
	assert.Len(t, call.Pos, 1)
	assert.Len(t, call.Named, 1)

	e, err = ParseExpr(`["a", ...xs,]`)
	require.NoError(t, err)
	list := e.(*ast.ListExpr)
	require.Len(t, list.Elems, 2)
	assert.False(t, list.Elems[0].Ellipsis)
	assert.True(t, list.Elems[1].Ellipsis)
}

func TestParseExpr_StringTemplates(t *testing.T) {
	e, err := ParseExpr(`"pre\n$x/${tools.y + "q}"}!"`)
	require.NoError(t, err)
	lit := e.(*ast.StringLiteral)
	require.Len(t, lit.Elems, 6)

	assert.Equal(t, "pre", lit.Elems[0].(*ast.JustChars).Text)
	assert.Equal(t, '\n', lit.Elems[1].(*ast.EscapeChar).Code)
	assert.Equal(t, "x", lit.Elems[2].(*ast.SimpleExpr).Name)
	assert.Equal(t, "/", lit.Elems[3].(*ast.JustChars).Text)
	complexElem := lit.Elems[4].(*ast.ComplexExpr)
	merge := complexElem.Expr.(*ast.MergeOp)
	assert.IsType(t, &ast.MemberAccess{}, merge.Lhs)
	inner := merge.Rhs.(*ast.StringLiteral)
	assert.Equal(t, "q}", inner.Elems[0].(*ast.JustChars).Text)
	assert.Equal(t, "!", lit.Elems[5].(*ast.JustChars).Text)
}

func TestParse_NodeIDsAreUniqueAndStable(t *testing.T) {
	src := `x = "a$b${c}" + [d, (e, f)]
namespace n { y = g(h: i) as string }`
	collect := func() map[int]bool {
		script, err := Parse(src)
		require.NoError(t, err)
		seen := map[int]bool{}
		ast.Walk(script, func(n ast.Node) {
			require.False(t, seen[n.ID()], "duplicate node id %d", n.ID())
			seen[n.ID()] = true
		})
		return seen
	}
	first := collect()
	second := collect()
	assert.Equal(t, first, second)
	assert.Greater(t, len(first), 10)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		line int
	}{
		{"unterminated string", "x = \"abc", 1},
		{"missing value", "x =\n", 2},
		{"bad character", "x = a\ny = #", 2},
		{"positional after named", "x = f(a: b, c)", 1},
		{"unqualified redef", "var x = 1", 1},
		{"unknown escape", `x = "\q"`, 1},
		{"unterminated template", `x = "${a"`, 1},
		{"action statement not a call", "action a { b }", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
			var syntaxErr *Error
			require.True(t, errors.As(err, &syntaxErr), "got %T: %v", err, err)
			assert.Equal(t, tc.line, syntaxErr.Pos.Line)
		})
	}
}
