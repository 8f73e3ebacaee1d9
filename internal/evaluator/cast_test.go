package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

var mainWhere = task.Where{Project: 1}

func strs(ss ...string) []value.Value {
	out := make([]value.Value, len(ss))
	for i, s := range ss {
		out[i] = value.String(s)
	}
	return out
}

func TestCastDirect(t *testing.T) {
	testCases := []struct {
		name  string
		input value.Value
		typ   value.Type
		want  value.Value
	}{
		{name: "none passes any type", input: value.None, typ: value.BooleanType, want: value.None},
		{name: "any keeps value", input: value.Boolean(true), typ: value.AnyType, want: value.Boolean(true)},
		{name: "boolean to string", input: value.Boolean(false), typ: value.StringType, want: value.String("false")},
		{name: "list to set drops duplicates", input: value.NewList(strs("a", "b", "a")...), typ: value.SetType{Elem: value.StringType}, want: value.NewSet(strs("a", "b")...)},
		{name: "set to list", input: value.NewSet(strs("a")...), typ: value.ListType{Elem: value.StringType}, want: value.NewList(strs("a")...)},
		{
			name:  "tuple to named tuple",
			input: value.Tuple{Values: []value.Value{value.String("x"), value.Boolean(true)}},
			typ:   value.NamedTupleType{Pairs: []value.NamedType{{Name: "name", Type: value.StringType}, {Name: "flag", Type: value.BooleanType}}},
			want: value.NewNamedTuple(
				value.NamedPair{Name: "name", Value: value.String("x")},
				value.NamedPair{Name: "flag", Value: value.Boolean(true)},
			),
		},
		{
			name:  "named tuple to tuple",
			input: value.NewNamedTuple(value.NamedPair{Name: "a", Value: value.Boolean(true)}),
			typ:   value.TupleType{Elems: []value.Type{value.StringType}},
			want:  value.Tuple{Values: []value.Value{value.String("true")}},
		},
		{
			name:  "union prefers member the value already has",
			input: value.Boolean(true),
			typ:   value.UnionType{Types: []value.Type{value.StringType, value.BooleanType}},
			want:  value.Boolean(true),
		},
		{
			name:  "union falls back to conversion",
			input: value.Boolean(true),
			typ:   value.UnionType{Types: []value.Type{value.ListType{Elem: value.StringType}, value.StringType}},
			want:  value.String("true"),
		},
		{
			name:  "class instance of the same class",
			input: value.ClassInstance{Package: "p", Class: "C", Fields: map[string]value.Value{}},
			typ:   value.DataClassType{Package: "p", Name: "C"},
			want:  value.ClassInstance{Package: "p", Class: "C", Fields: map[string]value.Value{}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			e := &Evaluator{}

			// --- Act ---
			got, ok := e.castDirect(mainWhere, tc.input, tc.typ)

			// --- Assert ---
			require.True(t, ok)
			assert.True(t, value.Equal(tc.want, got), "got %s", got)
		})
	}
}

func TestCast_Rejects(t *testing.T) {
	testCases := []struct {
		name  string
		input value.Value
		typ   value.Type
	}{
		{name: "string to boolean", input: value.String("true"), typ: value.BooleanType},
		{name: "boolean to list", input: value.Boolean(true), typ: value.ListType{Elem: value.StringType}},
		{name: "tuple length mismatch", input: value.Tuple{Values: strs("a", "b")}, typ: value.TupleType{Elems: []value.Type{value.StringType}}},
		{
			name:  "named tuple with other names",
			input: value.NewNamedTuple(value.NamedPair{Name: "a", Value: value.String("x")}),
			typ:   value.NamedTupleType{Pairs: []value.NamedType{{Name: "b", Type: value.StringType}}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			e := &Evaluator{}

			// --- Act ---
			_, err := e.cast(mainWhere, tc.input, tc.typ)

			// --- Assert ---
			var castErr *TypeCastError
			require.ErrorAs(t, err, &castErr)
			assert.Contains(t, err.Error(), "cannot cast")
		})
	}
}

func TestMerge(t *testing.T) {
	testCases := []struct {
		name     string
		lhs, rhs value.Value
		want     value.Value
		wantErr  bool
	}{
		{name: "strings concatenate", lhs: value.String("a"), rhs: value.String("b"), want: value.String("ab")},
		{name: "list appends", lhs: value.NewList(strs("a")...), rhs: value.NewSet(strs("b")...), want: value.NewList(strs("a", "b")...)},
		{name: "set unions", lhs: value.NewSet(strs("a", "b")...), rhs: value.NewList(strs("b", "c")...), want: value.NewSet(strs("a", "b", "c")...)},
		{name: "string and list", lhs: value.String("a"), rhs: value.NewList(strs("b")...), wantErr: true},
		{name: "booleans", lhs: value.Boolean(true), rhs: value.Boolean(false), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			got, err := merge(mainWhere, tc.lhs, tc.rhs)

			// --- Assert ---
			if tc.wantErr {
				var evalErr *EvalError
				require.ErrorAs(t, err, &evalErr)
				assert.Contains(t, err.Error(), "cannot merge")
				return
			}
			require.NoError(t, err)
			assert.True(t, value.Equal(tc.want, got), "got %s", got)
		})
	}
}

func TestAccessMembers(t *testing.T) {
	inner := value.NewNamedTuple(value.NamedPair{Name: "path", Value: value.String("out")})
	box := value.ClassInstance{Package: "p", Class: "Box", Fields: map[string]value.Value{"inner": inner}}

	testCases := []struct {
		name    string
		members []string
		want    value.Value
		wantErr string
	}{
		{name: "class field", members: []string{"inner"}, want: inner},
		{name: "nested named tuple element", members: []string{"inner", "path"}, want: value.String("out")},
		{name: "missing field", members: []string{"outer"}, wantErr: "has no field outer"},
		{name: "missing element", members: []string{"inner", "size"}, wantErr: "has no element size"},
		{name: "member of a string", members: []string{"inner", "path", "len"}, wantErr: "cannot access len"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			got, err := accessMembers(mainWhere, box, tc.members)

			// --- Assert ---
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, value.Equal(tc.want, got), "got %s", got)
		})
	}
}
