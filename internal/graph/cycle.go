package graph

import (
	"errors"
	"sort"

	"github.com/specialistvlad/bibixgo/internal/dag"
)

// checkCycles rejects scripts whose targets or variables reach themselves
// through their own value expressions.
func checkCycles(g *BuildGraph) error {
	d := dag.New()
	names := map[string]string{}
	for id := range g.Exprs.Nodes {
		d.AddNode(string(id))
	}

	// ref depends on the expression of the declaration it names.
	refTargets := map[ExprID]ExprID{}
	for id, n := range g.Exprs.Nodes {
		switch ref := n.(type) {
		case *LocalTargetRef:
			names[string(id)] = ref.Name.String()
			if v, ok := g.Targets[ref.Name]; ok {
				refTargets[id] = v
			}
		case *LocalVarRef:
			names[string(id)] = ref.Name.String()
			if v, ok := g.Vars[ref.Name]; ok && v.Default != "" {
				refTargets[id] = v.Default
			}
		}
	}

	addEdge := func(node, dep ExprID) error {
		if node == dep {
			name := names[string(node)]
			if name == "" {
				name = string(node)
			}
			return &CycleError{Names: []string{name, name}}
		}
		return d.AddEdge(string(dep), string(node))
	}
	for _, id := range sortedExprIDs(g.Exprs.Edges) {
		for _, dep := range g.Exprs.Edges[id] {
			if err := addEdge(id, dep); err != nil {
				return err
			}
		}
	}
	for ref, v := range refTargets {
		if err := addEdge(ref, v); err != nil {
			return err
		}
	}

	err := d.DetectCycles()
	if err == nil {
		return nil
	}
	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		return err
	}
	return &CycleError{Names: cycleNames(cycle.Path, names)}
}

// cycleNames reduces a cycle of expression ids to the declarations on it,
// ordered so that each name refers to the next.
func cycleNames(path []string, names map[string]string) []string {
	var out []string
	for i := len(path) - 1; i >= 0; i-- {
		name, ok := names[path[i]]
		if !ok {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == name {
			continue
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return path
	}
	if out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

func sortedExprIDs(m map[ExprID][]ExprID) []ExprID {
	ids := make([]ExprID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
