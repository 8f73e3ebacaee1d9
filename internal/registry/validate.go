package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/graph"
)

// Validate performs a strict parity check between plugin scripts and Go
// code: every native rule a script declares must be registered, and every
// registered rule in a plugin's package must be declared by its script.
func (r *Registry) Validate(ctx context.Context, loaded *Loaded) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	graphs := map[string]*graph.BuildGraph{}
	if loaded.Prelude != nil {
		graphs[r.Prelude.Name] = loaded.Prelude
	}
	for name, g := range loaded.Plugins {
		graphs[name] = g
	}

	declared := map[Capability]bool{}
	packages := map[string]bool{}
	for name, g := range graphs {
		packages[g.PackageName] = true
		for ruleName, rule := range g.BuildRules {
			if rule.ImplTarget != "" {
				continue
			}
			c := Capability{Module: g.PackageName, Class: rule.ImplClass, Method: methodOr(rule.ImplMethod, DefaultBuildMethod)}
			declared[c] = true
			if _, ok := r.Rules[c]; !ok {
				errs = append(errs, fmt.Sprintf("plugin '%s': rule '%s' is implemented by '%s' which is not registered", name, ruleName, c))
			}
		}
		for ruleName, rule := range g.ActionRules {
			if rule.ImplTarget != "" {
				continue
			}
			c := Capability{Module: g.PackageName, Class: rule.ImplClass, Method: methodOr(rule.ImplMethod, DefaultActionMethod)}
			declared[c] = true
			if _, ok := r.ActionRules[c]; !ok {
				errs = append(errs, fmt.Sprintf("plugin '%s': action rule '%s' is implemented by '%s' which is not registered", name, ruleName, c))
			}
		}
	}

	for c := range r.Rules {
		if packages[c.Module] && !declared[c] {
			errs = append(errs, fmt.Sprintf("rule '%s' is registered but no plugin script declares it", c))
		}
	}
	for c := range r.ActionRules {
		if packages[c.Module] && !declared[c] {
			errs = append(errs, fmt.Sprintf("action rule '%s' is registered but no plugin script declares it", c))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validated.", "rules", len(r.Rules), "action_rules", len(r.ActionRules))
	return nil
}

func methodOr(method, dflt string) string {
	if method == "" {
		return dflt
	}
	return method
}
