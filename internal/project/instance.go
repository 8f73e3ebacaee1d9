package project

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
)

// GlobalExpr addresses an expression node of a specific project instance.
type GlobalExpr struct {
	Project  ID
	Instance int
	Expr     graph.ExprID
}

// Redefs maps variable names of an imported project to the expressions
// overriding them.
type Redefs map[nodeid.Name]GlobalExpr

func (r Redefs) key() string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, string(name))
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		e := r[nodeid.Name(name)]
		fmt.Fprintf(&b, "%s=%d/%d/%s;", name, e.Project, e.Instance, e.Expr)
	}
	return b.String()
}

// instances holds the import instances of every project. Instance 0 of a
// project has no redefinitions.
type instances struct {
	mu     sync.Mutex
	byKey  map[ID]map[string]int
	redefs map[ID][]Redefs
}

func newInstances() *instances {
	return &instances{byKey: map[ID]map[string]int{}, redefs: map[ID][]Redefs{}}
}

// Instance returns the import instance of project with the given
// redefinitions, creating it on first use. Identical redefinitions share an
// instance.
func (m *MultiGraph) Instance(project ID, redefs Redefs) int {
	if len(redefs) == 0 {
		return 0
	}
	in := m.instances
	in.mu.Lock()
	defer in.mu.Unlock()
	key := redefs.key()
	if in.byKey[project] == nil {
		in.byKey[project] = map[string]int{}
		in.redefs[project] = []Redefs{nil}
	}
	if id, ok := in.byKey[project][key]; ok {
		return id
	}
	id := len(in.redefs[project])
	in.byKey[project][key] = id
	in.redefs[project] = append(in.redefs[project], redefs)
	return id
}

// InstanceRedefs returns the redefinitions of an import instance.
func (m *MultiGraph) InstanceRedefs(project ID, instance int) Redefs {
	in := m.instances
	in.mu.Lock()
	defer in.mu.Unlock()
	list := in.redefs[project]
	if instance <= 0 || instance >= len(list) {
		return nil
	}
	return list[instance]
}
