package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/parser"
)

// Loaded holds the graphs of the registered plugin scripts.
type Loaded struct {
	Prelude *graph.BuildGraph
	Plugins map[string]*graph.BuildGraph
	// PluginOrder lists plugin names sorted, fixing their project ids.
	PluginOrder []string
}

// PreludeNames returns the names the prelude exports.
func (l *Loaded) PreludeNames() map[string]bool {
	names := map[string]bool{}
	if l.Prelude == nil {
		return names
	}
	for name := range l.Prelude.Names.Names {
		names[name] = true
	}
	for name := range l.Prelude.Names.Namespaces {
		names[name] = true
	}
	return names
}

// PluginNames returns the names of the preloaded plugins.
func (l *Loaded) PluginNames() map[string]bool {
	names := make(map[string]bool, len(l.PluginOrder))
	for _, name := range l.PluginOrder {
		names[name] = true
	}
	return names
}

// Load parses and builds every registered plugin script.
func (r *Registry) Load(ctx context.Context) (*Loaded, error) {
	logger := ctxlog.FromContext(ctx)
	loaded := &Loaded{Plugins: map[string]*graph.BuildGraph{}}

	if r.Prelude != nil {
		g, err := buildPluginScript(r.Prelude, graph.Options{NativeAllowed: true})
		if err != nil {
			return nil, err
		}
		loaded.Prelude = g
		logger.Debug("Loaded prelude.", "name", r.Prelude.Name, "package", g.PackageName)
	}

	opts := graph.Options{NativeAllowed: true, PreludeNames: loaded.PreludeNames()}
	for name, p := range r.Plugins {
		g, err := buildPluginScript(p, opts)
		if err != nil {
			return nil, err
		}
		loaded.Plugins[name] = g
		loaded.PluginOrder = append(loaded.PluginOrder, name)
		logger.Debug("Loaded plugin.", "name", name, "package", g.PackageName)
	}
	sort.Strings(loaded.PluginOrder)

	logger.Info("Registry loaded successfully.", "plugins_loaded", len(loaded.Plugins))
	return loaded, nil
}

func buildPluginScript(p *Plugin, opts graph.Options) (*graph.BuildGraph, error) {
	script, err := parser.Parse(p.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plugin %s: %w", p.Name, err)
	}
	g, err := graph.Build(script, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build plugin %s: %w", p.Name, err)
	}
	if g.PackageName == "" {
		return nil, fmt.Errorf("plugin %s declares no package", p.Name)
	}
	return g, nil
}
