package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Graph is a directed graph of string ids. An edge from a to b means b
// depends on a. All methods are safe for concurrent use.
type Graph struct {
	mu sync.RWMutex
	// deps[id] is the set of ids that id depends on.
	deps map[string]map[string]struct{}
	// dependents[id] is the set of ids depending on id.
	dependents map[string]map[string]struct{}
}

// CycleError reports a cycle as the ids along it in edge direction, with the
// first id repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving node '%s': %s", e.Path[0], strings.Join(e.Path, " -> "))
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		deps:       map[string]map[string]struct{}{},
		dependents: map[string]map[string]struct{}{},
	}
}

// AddNode adds id. Adding an existing id is a no-op.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.deps[id]; ok {
		return
	}
	g.deps[id] = map[string]struct{}{}
	g.dependents[id] = map[string]struct{}{}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.deps)
}

// AddEdge records that to depends on from. Both nodes must exist.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", from, from)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.deps[from]; !ok {
		return fmt.Errorf("source node not found: %s", from)
	}
	if _, ok := g.deps[to]; !ok {
		return fmt.Errorf("destination node not found: %s", to)
	}
	g.deps[to][from] = struct{}{}
	g.dependents[from][to] = struct{}{}
	return nil
}

// DependsOn reports whether id transitively depends on target.
func (g *Graph) DependsOn(id, target string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.deps[id]; !ok {
		return false
	}
	seen := map[string]bool{id: true}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dep := range g.deps[cur] {
			if dep == target {
				return true
			}
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// DetectCycles returns a *CycleError for the first cycle found, or nil.
// Nodes are visited in id order so the reported cycle is deterministic.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	done := map[string]bool{}
	onStack := map[string]bool{}
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		if done[id] {
			return nil
		}
		if onStack[id] {
			start := slices.Index(stack, id)
			path := append(slices.Clone(stack[start:]), id)
			return &CycleError{Path: path}
		}
		onStack[id] = true
		stack = append(stack, id)
		for _, next := range sortedKeys(g.dependents[id]) {
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, id)
		done[id] = true
		return nil
	}

	for _, id := range sortedKeys(g.deps) {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
