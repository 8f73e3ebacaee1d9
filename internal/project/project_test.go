package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGraph(t *testing.T, src string) *graph.BuildGraph {
	t.Helper()
	script, err := parser.Parse(src)
	require.NoError(t, err)
	g, err := graph.Build(script, graph.Options{NativeAllowed: true})
	require.NoError(t, err)
	return g
}

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newMultiGraph(t *testing.T) *MultiGraph {
	t.Helper()
	loc, err := NewLocation(t.TempDir(), "")
	require.NoError(t, err)
	m, err := New(
		mustGraph(t, `x = "main"`),
		loc,
		mustGraph(t, "package com.example.prelude\ny = \"prelude\""),
		map[string]*graph.BuildGraph{
			"zeta":  mustGraph(t, "package com.example.zeta"),
			"alpha": mustGraph(t, "package com.example.alpha"),
		},
		[]string{"alpha", "zeta"},
	)
	require.NoError(t, err)
	return m
}

func TestNew_AssignsStableIDs(t *testing.T) {
	m := newMultiGraph(t)

	assert.Equal(t, MainProject, m.Main().Kind)
	prelude, ok := m.Get(PreludeID)
	require.True(t, ok)
	assert.Equal(t, PreludeProject, prelude.Kind)

	alpha, ok := m.Plugin("alpha")
	require.True(t, ok)
	assert.Equal(t, ID(3), alpha)
	zeta, _ := m.Plugin("zeta")
	assert.Equal(t, ID(4), zeta)

	id, ok := m.ByPackage("com.example.zeta")
	require.True(t, ok)
	assert.Equal(t, zeta, id)

	id, ok = m.ByPackage("")
	require.True(t, ok)
	assert.Equal(t, MainID, id)
}

func TestNew_DuplicatePackage(t *testing.T) {
	loc, err := NewLocation(t.TempDir(), "")
	require.NoError(t, err)
	_, err = New(
		mustGraph(t, "package com.example"),
		loc,
		nil,
		map[string]*graph.BuildGraph{"p": mustGraph(t, "package com.example")},
		[]string{"p"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package com.example is declared by both")
}

func TestLoad_SharesConcurrentLoads(t *testing.T) {
	// --- Arrange ---
	m := newMultiGraph(t)
	ctx := testContext()
	loc, err := NewLocation(t.TempDir(), "lib.bbx")
	require.NoError(t, err)

	var calls atomic.Int32
	load := func(ctx context.Context, l Location) (*graph.BuildGraph, error) {
		calls.Add(1)
		return mustGraph(t, "package com.example.lib"), nil
	}

	// --- Act ---
	var wg sync.WaitGroup
	ids := make([]ID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.Load(ctx, loc, load)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	// --- Assert ---
	assert.Equal(t, int32(1), calls.Load())
	for _, id := range ids {
		assert.Equal(t, ID(5), id)
	}
	p := m.MustGet(ID(5))
	assert.Equal(t, ExternalProject, p.Kind)
	assert.Equal(t, loc.Root, p.BaseDirectory())
}

func TestLoad_Error(t *testing.T) {
	m := newMultiGraph(t)
	loc, err := NewLocation(t.TempDir(), "")
	require.NoError(t, err)
	boom := errors.New("boom")

	_, err = m.Load(testContext(), loc, func(context.Context, Location) (*graph.BuildGraph, error) {
		return nil, boom
	})

	require.ErrorIs(t, err, boom)
	_, ok := m.ByLocation(loc)
	assert.False(t, ok)
}

func TestInstance_ReusesIdenticalRedefs(t *testing.T) {
	m := newMultiGraph(t)
	v := nodeid.NewName("v")
	a := Redefs{v: {Project: MainID, Expr: "e1"}}
	aAgain := Redefs{v: {Project: MainID, Expr: "e1"}}
	b := Redefs{v: {Project: MainID, Expr: "e2"}}

	testCases := []struct {
		name   string
		redefs Redefs
		want   int
	}{
		{"no redefs is the base instance", nil, 0},
		{"first redefs", a, 1},
		{"identical redefs reuse", aAgain, 1},
		{"different redefs", b, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Instance(ID(5), tc.redefs))
		})
	}

	assert.Equal(t, b, m.InstanceRedefs(ID(5), 2))
	assert.Nil(t, m.InstanceRedefs(ID(5), 0))
	// Instances are numbered per project.
	assert.Equal(t, 1, m.Instance(ID(6), b))
}
