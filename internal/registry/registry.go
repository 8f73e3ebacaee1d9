package registry

import (
	"fmt"
	"log/slog"

	"github.com/specialistvlad/bibixgo/internal/plugin"
)

// Module is the interface that all rule plugin modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Capability addresses one rule implementation. Module is the package name
// of the plugin script for native rules, or the stringified value of the
// implementation target for rules implemented elsewhere.
type Capability struct {
	Module string
	Class  string
	Method string
}

func (c Capability) String() string {
	return fmt.Sprintf("%s:%s:%s", c.Module, c.Class, c.Method)
}

// Default method names used when a rule reference omits the method.
const (
	DefaultBuildMethod  = "build"
	DefaultActionMethod = "run"
)

// Plugin is a script whose native rules are provided by compiled-in code.
type Plugin struct {
	// Name is the name scripts use to refer to the plugin without an import.
	Name string
	// Script is the source text of the plugin.
	Script string
}

// Registry holds all the registered plugins and rule implementations for a
// single application instance.
type Registry struct {
	Prelude     *Plugin
	Plugins     map[string]*Plugin
	Rules       map[Capability]plugin.Rule
	ActionRules map[Capability]plugin.ActionRule
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		Plugins:     make(map[string]*Plugin),
		Rules:       make(map[Capability]plugin.Rule),
		ActionRules: make(map[Capability]plugin.ActionRule),
	}
}

// RegisterPrelude registers the plugin whose names are visible in every
// script.
func (r *Registry) RegisterPrelude(p *Plugin) {
	if r.Prelude != nil {
		panic(fmt.Sprintf("prelude already registered as '%s'", r.Prelude.Name))
	}
	slog.Debug("Registering prelude.", "name", p.Name)
	r.Prelude = p
}

// RegisterPlugin registers a preloaded plugin.
func (r *Registry) RegisterPlugin(p *Plugin) {
	if _, exists := r.Plugins[p.Name]; exists {
		panic(fmt.Sprintf("plugin with name '%s' already registered", p.Name))
	}
	slog.Debug("Registering plugin.", "name", p.Name)
	r.Plugins[p.Name] = p
}

// RegisterRule registers the Go function implementing a build rule.
func (r *Registry) RegisterRule(c Capability, fn plugin.Rule) {
	if c.Method == "" {
		c.Method = DefaultBuildMethod
	}
	if _, exists := r.Rules[c]; exists {
		panic(fmt.Sprintf("rule '%s' already registered", c))
	}
	slog.Debug("Registering rule.", "capability", c.String())
	r.Rules[c] = fn
}

// RegisterActionRule registers the Go function implementing an action rule.
func (r *Registry) RegisterActionRule(c Capability, fn plugin.ActionRule) {
	if c.Method == "" {
		c.Method = DefaultActionMethod
	}
	if _, exists := r.ActionRules[c]; exists {
		panic(fmt.Sprintf("action rule '%s' already registered", c))
	}
	slog.Debug("Registering action rule.", "capability", c.String())
	r.ActionRules[c] = fn
}

// Rule returns the build rule registered for c. An empty method means the
// default one.
func (r *Registry) Rule(c Capability) (plugin.Rule, bool) {
	if c.Method == "" {
		c.Method = DefaultBuildMethod
	}
	fn, ok := r.Rules[c]
	return fn, ok
}

// ActionRule returns the action rule registered for c.
func (r *Registry) ActionRule(c Capability) (plugin.ActionRule, bool) {
	if c.Method == "" {
		c.Method = DefaultActionMethod
	}
	fn, ok := r.ActionRules[c]
	return fn, ok
}
