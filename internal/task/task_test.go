package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// resolve plays the scheduler: it answers every dependency with answer and
// runs long-running work inline until the result is terminal.
func resolve(t *testing.T, r Result, err error, answer func(Task) Result) (Result, error) {
	t.Helper()
	for err == nil && !IsTerminal(r) {
		switch c := r.(type) {
		case *WithDeps:
			rs := make([]Result, len(c.Deps))
			for i, d := range c.Deps {
				rs[i] = answer(d)
			}
			r, err = c.Then(rs)
		case *LongRunning:
			r, err = c.Run(context.Background())
		}
	}
	return r, err
}

func str(s string) Result { return ValueResult{Value: value.String(s)} }

func TestMap(t *testing.T) {
	upper := func(r Result) (Result, error) {
		return Value(value.String(value.Stringify(r.(ValueResult).Value) + "!"))
	}

	testCases := []struct {
		name  string
		input func() (Result, error)
	}{
		{name: "terminal", input: func() (Result, error) { return str("a"), nil }},
		{name: "suspended", input: func() (Result, error) {
			return Then1(EvalTarget{Name: "x"}, func(Result) (Result, error) { return str("a"), nil })
		}},
		{name: "long running", input: func() (Result, error) {
			return &LongRunning{Run: func(context.Context) (Result, error) { return str("a"), nil }}, nil
		}},
		{name: "long running then suspended", input: func() (Result, error) {
			return &LongRunning{Run: func(context.Context) (Result, error) {
				return Then1(EvalTarget{Name: "x"}, func(Result) (Result, error) { return str("a"), nil })
			}}, nil
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			in, err := tc.input()
			require.NoError(t, err)

			// --- Act ---
			r, err := Map(in, upper)
			r, err = resolve(t, r, err, func(Task) Result { return str("ignored") })

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, str("a!"), r)
		})
	}
}

func TestCollect_KeepsOrder(t *testing.T) {
	// --- Arrange ---
	rs := []Result{
		str("first"),
		&WithDeps{Deps: []Task{EvalTarget{Name: "second"}}, Then: func(rs []Result) (Result, error) { return rs[0], nil }},
		&LongRunning{Run: func(context.Context) (Result, error) { return str("third"), nil }},
	}

	// --- Act ---
	r, err := CollectValues(rs, func(vs []value.Value) (Result, error) {
		return Value(value.NewList(vs...))
	})
	r, err = resolve(t, r, err, func(d Task) Result { return str(d.(EvalTarget).Name.String()) })

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, ValueResult{Value: value.NewList(value.String("first"), value.String("second"), value.String("third"))}, r)
}

func TestCollectValues_RejectsNonValues(t *testing.T) {
	// --- Act ---
	_, err := CollectValues([]Result{str("a"), TypeResult{Type: value.StringType}}, func([]value.Value) (Result, error) {
		return Value(value.None)
	})

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a value")
}

func TestCatch(t *testing.T) {
	boom := errors.New("boom")
	var seen []error
	record := func(err error) error {
		seen = append(seen, err)
		return errors.Join(errors.New("caught"), err)
	}

	// --- Arrange ---
	r := &WithDeps{Deps: []Task{EvalTarget{Name: "x"}}, Then: func([]Result) (Result, error) {
		return &LongRunning{Run: func(context.Context) (Result, error) { return nil, boom }}, nil
	}}

	// --- Act ---
	caught, err := Catch(r, record)
	_, err = resolve(t, caught, err, func(Task) Result { return str("x") })

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "caught")
	assert.Equal(t, []error{boom}, seen)
}

func TestKeys_Distinguish(t *testing.T) {
	main := Where{Project: 1}
	other := Where{Project: 1, Instance: 1}
	name := nodeid.NewName("a", "b")

	tasks := []Task{
		EvalTarget{Where: main, Name: name},
		EvalTarget{Where: other, Name: name},
		EvalVar{Where: main, Name: name},
		EvalName{Where: main, Name: name},
		EvalExpr{Where: main, Expr: "e"},
		EvalExpr{Where: main, Expr: "e", Locals: map[string]value.Value{"v": value.String("1")}},
		EvalExpr{Where: main, Expr: "e", Locals: map[string]value.Value{"v": value.String("2")}},
		EvalExpr{Where: main, Expr: "e", This: &value.ClassInstance{Class: "C"}},
		ExecAction{Where: main, Name: name},
		ExecAction{Where: main, Name: name, Args: []string{"x"}},
		ExecAction{Where: main, Name: name, Args: []string{""}},
		ExecAction{Where: main, Name: name, Args: []string{"a\x00b"}},
		ExecAction{Where: main, Name: name, Args: []string{"a", "b"}},
		ExecAction{Where: main, Name: name, Args: []string{"a:1:b"}},
		ExecAction{Where: main, Name: name, Args: []string{"a", "1:b"}},
		InvokeRule{TargetID: "00ff"},
	}

	// --- Act ---
	keys := map[string]Task{}
	for _, task := range tasks {
		key := task.Key()

		// --- Assert ---
		prev, dup := keys[key]
		assert.False(t, dup, "%s and %s share key %q", prev, task, key)
		keys[key] = task
	}
}

func TestKeys_StableForEqualLocals(t *testing.T) {
	// --- Arrange ---
	a := EvalExpr{Expr: "e", Locals: map[string]value.Value{"x": value.String("1"), "y": value.Boolean(true)}}
	b := EvalExpr{Expr: "e", Locals: map[string]value.Value{"y": value.Boolean(true), "x": value.String("1")}}

	// --- Act & Assert ---
	assert.Equal(t, a.Key(), b.Key())
}
