package project

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/graph"
	"golang.org/x/sync/singleflight"
)

// Loader builds the graph of the project at a location.
type Loader func(ctx context.Context, loc Location) (*graph.BuildGraph, error)

// MultiGraph holds every project of a run. Each logical map has its own
// lock so unrelated lookups do not serialize.
type MultiGraph struct {
	projectsMu sync.RWMutex
	projects   map[ID]*Project
	byLocation map[Location]ID
	byPackage  map[string]ID
	plugins    map[string]ID
	nextID     ID

	loads singleflight.Group

	instances *instances
}

// New registers the main project, the prelude and the preloaded plugins.
// pluginOrder fixes the ids of the plugins.
func New(main *graph.BuildGraph, mainLoc Location, prelude *graph.BuildGraph, plugins map[string]*graph.BuildGraph, pluginOrder []string) (*MultiGraph, error) {
	m := &MultiGraph{
		projects:   map[ID]*Project{},
		byLocation: map[Location]ID{},
		byPackage:  map[string]ID{},
		plugins:    map[string]ID{},
		instances:  newInstances(),
	}
	if err := m.add(&Project{ID: MainID, Kind: MainProject, Graph: main, Location: mainLoc}); err != nil {
		return nil, err
	}
	if prelude != nil {
		if err := m.add(&Project{ID: PreludeID, Kind: PreludeProject, Graph: prelude}); err != nil {
			return nil, err
		}
	}
	m.nextID = firstPluginID
	for _, name := range pluginOrder {
		g, ok := plugins[name]
		if !ok {
			return nil, fmt.Errorf("plugin %s has no graph", name)
		}
		p := &Project{ID: m.nextID, Kind: PluginProject, Graph: g, Name: name}
		if err := m.add(p); err != nil {
			return nil, err
		}
		m.plugins[name] = p.ID
		m.nextID++
	}
	return m, nil
}

// add must be called with projectsMu held or before m is shared.
func (m *MultiGraph) add(p *Project) error {
	if pkg := p.Graph.PackageName; pkg != "" {
		if other, ok := m.byPackage[pkg]; ok {
			return fmt.Errorf("package %s is declared by both %s and %s", pkg, m.describe(other), m.describeProject(p))
		}
		m.byPackage[pkg] = p.ID
	}
	m.projects[p.ID] = p
	if p.Location.Root != "" {
		m.byLocation[p.Location] = p.ID
	}
	return nil
}

func (m *MultiGraph) describe(id ID) string {
	return m.describeProject(m.projects[id])
}

func (m *MultiGraph) describeProject(p *Project) string {
	switch p.Kind {
	case PreludeProject:
		return "the prelude"
	case PluginProject:
		return "plugin " + p.Name
	}
	return p.Location.String()
}

// Get returns the project with the given id.
func (m *MultiGraph) Get(id ID) (*Project, bool) {
	m.projectsMu.RLock()
	defer m.projectsMu.RUnlock()
	p, ok := m.projects[id]
	return p, ok
}

// MustGet is like Get but panics for unknown ids, which only arise from
// programming errors.
func (m *MultiGraph) MustGet(id ID) *Project {
	p, ok := m.Get(id)
	if !ok {
		panic(fmt.Sprintf("project: unknown project id %d", id))
	}
	return p
}

func (m *MultiGraph) Main() *Project { return m.MustGet(MainID) }

// Plugin returns the id of a preloaded plugin.
func (m *MultiGraph) Plugin(name string) (ID, bool) {
	m.projectsMu.RLock()
	defer m.projectsMu.RUnlock()
	id, ok := m.plugins[name]
	return id, ok
}

// ByPackage returns the project declaring pkg. The empty package names the
// main project.
func (m *MultiGraph) ByPackage(pkg string) (ID, bool) {
	if pkg == "" {
		return MainID, true
	}
	m.projectsMu.RLock()
	defer m.projectsMu.RUnlock()
	id, ok := m.byPackage[pkg]
	return id, ok
}

// ByLocation returns the project loaded from loc.
func (m *MultiGraph) ByLocation(loc Location) (ID, bool) {
	m.projectsMu.RLock()
	defer m.projectsMu.RUnlock()
	id, ok := m.byLocation[loc]
	return id, ok
}

// Load returns the project at loc, loading it with load the first time.
// Concurrent loads of the same location share one call to load.
func (m *MultiGraph) Load(ctx context.Context, loc Location, load Loader) (ID, error) {
	if id, ok := m.ByLocation(loc); ok {
		return id, nil
	}
	v, err, _ := m.loads.Do(loc.String(), func() (any, error) {
		if id, ok := m.ByLocation(loc); ok {
			return id, nil
		}
		g, err := load(ctx, loc)
		if err != nil {
			return ID(0), err
		}
		m.projectsMu.Lock()
		defer m.projectsMu.Unlock()
		p := &Project{ID: m.nextID, Kind: ExternalProject, Graph: g, Location: loc}
		if err := m.add(p); err != nil {
			return ID(0), err
		}
		m.nextID++
		ctxlog.FromContext(ctx).Debug("Loaded external project.", "project", p.ID, "location", loc.String(), "package", g.PackageName)
		return p.ID, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load project %s: %w", loc, err)
	}
	return v.(ID), nil
}
