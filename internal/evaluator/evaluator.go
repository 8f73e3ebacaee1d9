package evaluator

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/objhash"
	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/project"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/repo"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// Evaluator evaluates the tasks of one build.
type Evaluator struct {
	graphs   *project.MultiGraph
	registry *registry.Registry
	repo     *repo.Repo
	files    *objhash.FileHashStore
	load     project.Loader
	env      plugin.BuildEnv
	// preludePackage is the package of the prelude, empty without one.
	preludePackage string
}

// Config holds the collaborators of an Evaluator.
type Config struct {
	Graphs   *project.MultiGraph
	Registry *registry.Registry
	Repo     *repo.Repo
	Files    *objhash.FileHashStore
	// Load builds the graph of an external project on first import.
	Load project.Loader
}

// New creates an evaluator.
func New(cfg Config) *Evaluator {
	e := &Evaluator{
		graphs:   cfg.Graphs,
		registry: cfg.Registry,
		repo:     cfg.Repo,
		files:    cfg.Files,
		load:     cfg.Load,
		env:      plugin.BuildEnv{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}
	if p, ok := cfg.Graphs.Get(project.PreludeID); ok {
		e.preludePackage = p.Graph.PackageName
	}
	return e
}

// Evaluate implements scheduler.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, t task.Task) (task.Result, error) {
	switch t := t.(type) {
	case task.EvalTarget:
		return e.evalTarget(t)
	case task.EvalVar:
		return e.evalVar(t)
	case task.EvalExpr:
		return e.evalExpr(t)
	case task.EvalType:
		return e.evalType(t)
	case task.EvalName:
		return e.evalName(t.Where, t.Name.Tokens())
	case task.EvalTypeName:
		return e.evalTypeName(t.Where, t.Name.Tokens())
	case task.EvalImport:
		return e.evalImport(t)
	case task.EvalPreloaded:
		return e.evalPreloaded(t.Where, t.Plugin)
	case task.EvalBuildRule:
		return e.evalBuildRule(t)
	case task.EvalActionRule:
		return e.evalActionRule(t)
	case task.EvalDataClass:
		return e.evalDataClass(t)
	case task.EvalSuperClass:
		return e.evalSuperClass(t)
	case task.EvalClassByName:
		return e.evalClassByName(t.Class)
	case task.InvokeRule:
		return e.invokeRule(ctx, t)
	case task.ExecAction:
		return e.execAction(t)
	case task.ExecActionCallExpr:
		return e.execActionCallExpr(t)
	}
	return nil, fmt.Errorf("unsupported task %T", t)
}

func (e *Evaluator) project(where task.Where) *project.Project {
	return e.graphs.MustGet(where.Project)
}

func (e *Evaluator) graph(where task.Where) *graph.BuildGraph {
	return e.project(where).Graph
}

// baseDirectory returns the directory relative paths of a project resolve
// against. Compiled-in projects resolve against the main project.
func (e *Evaluator) baseDirectory(where task.Where) string {
	if dir := e.project(where).BaseDirectory(); dir != "" {
		return dir
	}
	return e.mainBase()
}

func (e *Evaluator) mainBase() string {
	return e.graphs.Main().BaseDirectory()
}

// cname returns the canonical name of a definition of a project.
func (e *Evaluator) cname(where task.Where, name fmt.Stringer) (value.CName, error) {
	p := e.project(where)
	if p.Graph.PackageName == "" && p.ID != project.MainID {
		return value.CName{}, evalErrorf(where, "%s is defined in a project without a package and cannot be referenced from other projects", name)
	}
	return value.CName{Package: p.Graph.PackageName, Name: name.String()}, nil
}

// sourceID identifies a project across runs.
func (e *Evaluator) sourceID(id project.ID) objhash.SourceID {
	p := e.graphs.MustGet(id)
	switch p.Kind {
	case project.MainProject:
		return objhash.SourceID{Kind: objhash.MainSource}
	case project.PreludeProject:
		return objhash.SourceID{Kind: objhash.PreludeSource}
	case project.PluginProject:
		return objhash.SourceID{Kind: objhash.PreloadedSource, Name: p.Name}
	}
	root := p.Location.Root
	if rel, err := filepath.Rel(e.mainBase(), root); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		root = filepath.ToSlash(filepath.Join("$main", rel))
	}
	return objhash.SourceID{Kind: objhash.ExternalSource, Root: root, Script: p.Location.Script}
}

// asValue converts a terminal result used as a value.
func asValue(where task.Where, r task.Result) (value.Value, error) {
	switch r := r.(type) {
	case task.ValueResult:
		return r.Value, nil
	case task.TypeResult:
		return value.TypeValue{Type: r.Type}, nil
	case task.BuildRuleResult:
		return value.BuildRuleDef{
			Name:       r.CName,
			Params:     ruleParams(r.Params),
			Impl:       value.CName{Package: r.Impl.Module, Name: r.Impl.Class},
			ImplClass:  r.Impl.Class,
			ImplMethod: r.Impl.Method,
		}, nil
	case task.ActionRuleResult:
		return value.ActionRuleDef{
			Name:       r.CName,
			Params:     ruleParams(r.Params),
			Impl:       value.CName{Package: r.Impl.Module, Name: r.Impl.Class},
			ImplClass:  r.Impl.Class,
			ImplMethod: r.Impl.Method,
		}, nil
	case task.DataClassResult:
		return value.TypeValue{Type: value.DataClassType{Package: r.CName.Package, Name: r.CName.Name}}, nil
	case task.SuperClassResult:
		return value.TypeValue{Type: value.SuperClassType{Package: r.CName.Package, Name: r.CName.Name}}, nil
	}
	return nil, evalErrorf(where, "%s cannot be used as a value", task.Describe(r))
}

func ruleParams(params []task.Param) []value.RuleParam {
	out := make([]value.RuleParam, len(params))
	for i, p := range params {
		out[i] = value.RuleParam{Name: p.Name, Type: p.Type, Optional: !p.Required()}
	}
	return out
}

// thenValue continues with the value of a single dependency.
func thenValue(where task.Where, dep task.Task, fn func(value.Value) (task.Result, error)) (task.Result, error) {
	return task.Then1(dep, func(r task.Result) (task.Result, error) {
		v, err := asValue(where, r)
		if err != nil {
			return nil, err
		}
		return fn(v)
	})
}
