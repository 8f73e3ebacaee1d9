package evaluator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/project"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// evalName resolves tokens from the root scope of a project.
func (e *Evaluator) evalName(where task.Where, tokens []string) (task.Result, error) {
	if len(tokens) == 0 {
		return task.ImportResult{Where: where}, nil
	}
	return e.resolved(where, tokens, e.graph(where).Lookup(tokens))
}

// evalNameFrom resolves tokens lexically from a namespace of a project.
func (e *Evaluator) evalNameFrom(where task.Where, scope nodeid.Name, tokens []string) (task.Result, error) {
	return e.resolved(where, tokens, e.graph(where).LookupFrom(scope, tokens))
}

// resolved turns a lookup result into the task answering it.
func (e *Evaluator) resolved(where task.Where, tokens []string, res graph.LookupResult) (task.Result, error) {
	g := e.graph(where)
	switch res := res.(type) {
	case graph.EntryFound:
		name := res.Entry.Name
		switch res.Entry.Kind {
		case graph.TargetEntry:
			return task.Then1(task.EvalTarget{Where: where, Name: name}, passThrough)
		case graph.VarEntry:
			return task.Then1(task.EvalVar{Where: where, Name: name}, passThrough)
		case graph.BuildRuleEntry:
			return task.Then1(task.EvalBuildRule{Where: where, Name: name}, passThrough)
		case graph.ActionRuleEntry:
			return task.Then1(task.EvalActionRule{Where: where, Name: name}, passThrough)
		case graph.DataClassEntry:
			return task.Then1(task.EvalDataClass{Where: where, Name: name}, passThrough)
		case graph.SuperClassEntry:
			return task.Then1(task.EvalSuperClass{Where: where, Name: name}, passThrough)
		case graph.ActionEntry:
			return task.ActionRefResult{Where: where, Name: name}, nil
		}
		return nil, evalErrorf(where, "%s %s cannot be used as a value", res.Entry.Kind, name)

	case graph.EnumValueFound:
		return enumValue(where, g, res.Enum.Name, res.Value)

	case graph.InImport:
		return task.Then1(task.EvalImport{Where: where, Name: res.Import.Name}, func(r task.Result) (task.Result, error) {
			return e.member(where, r, res.Remaining)
		})

	case graph.NamespaceFound:
		return nil, evalErrorf(where, "namespace %s cannot be used as a value", res.Name)
	}
	return nil, &graph.NameNotFoundError{Tokens: tokens}
}

// member resolves the remaining tokens of a name inside the result of an
// import.
func (e *Evaluator) member(where task.Where, r task.Result, remaining []string) (task.Result, error) {
	if len(remaining) == 0 {
		return r, nil
	}
	switch r := r.(type) {
	case task.ImportResult:
		return e.evalName(r.Where, remaining)
	case task.ValueResult:
		v, err := accessMembers(where, r.Value, remaining)
		if err != nil {
			return nil, err
		}
		return task.Value(v)
	}
	return nil, evalErrorf(where, "%s has no member %s", task.Describe(r), nodeid.NewName(remaining...))
}

func passThrough(r task.Result) (task.Result, error) { return r, nil }

func enumValue(where task.Where, g *graph.BuildGraph, enum nodeid.Name, member string) (task.Result, error) {
	def, ok := g.Enums[enum]
	if !ok {
		return nil, evalErrorf(where, "unknown enum %s", enum)
	}
	for _, v := range def.Values {
		if v == member {
			return task.Value(value.Enum{Package: g.PackageName, Enum: enum.String(), Value: member})
		}
	}
	return nil, evalErrorf(where, "enum %s has no value %s", enum, member)
}

// evalTypeName resolves a dotted type name from the root scope of a
// project.
func (e *Evaluator) evalTypeName(where task.Where, tokens []string) (task.Result, error) {
	g := e.graph(where)
	switch res := g.Lookup(tokens).(type) {
	case graph.EntryFound:
		name := res.Entry.Name
		switch res.Entry.Kind {
		case graph.DataClassEntry:
			return task.TypeResult{Type: value.DataClassType{Package: g.PackageName, Name: name.String()}}, nil
		case graph.SuperClassEntry:
			return task.TypeResult{Type: value.SuperClassType{Package: g.PackageName, Name: name.String()}}, nil
		case graph.EnumEntry:
			return task.TypeResult{Type: value.EnumType{Package: g.PackageName, Name: name.String()}}, nil
		}
		return nil, evalErrorf(where, "%s %s is not a type", res.Entry.Kind, name)
	case graph.InImport:
		return task.Then1(task.EvalImport{Where: where, Name: res.Import.Name}, func(r task.Result) (task.Result, error) {
			imported, ok := r.(task.ImportResult)
			if !ok {
				if len(res.Remaining) == 0 {
					if _, isType := r.(task.TypeResult); isType {
						return r, nil
					}
					if c, isClass := r.(task.DataClassResult); isClass {
						return task.TypeResult{Type: value.DataClassType{Package: c.CName.Package, Name: c.CName.Name}}, nil
					}
				}
				return nil, evalErrorf(where, "%s is not a type", nodeid.NewName(tokens...))
			}
			return task.Then1(task.EvalTypeName{Where: imported.Where, Name: nodeid.NewName(res.Remaining...)}, passThrough)
		})
	}
	return nil, &graph.NameNotFoundError{Tokens: tokens}
}

// evalPreloaded resolves the instance of a preloaded plugin seen from a
// project. Variable redefinitions the project declares for the plugin
// select the instance.
func (e *Evaluator) evalPreloaded(where task.Where, plugin string) (task.Result, error) {
	id, ok := e.graphs.Plugin(plugin)
	if !ok {
		return nil, evalErrorf(where, "unknown plugin %s", plugin)
	}
	redefs := project.Redefs{}
	for name, expr := range e.graph(where).PreloadedVarRedefs[plugin] {
		redefs[name] = project.GlobalExpr{Project: where.Project, Instance: where.Instance, Expr: expr}
	}
	return task.ImportResult{Where: task.Where{Project: id, Instance: e.graphs.Instance(id, redefs)}}, nil
}

// evalImport resolves an import statement. Import-all statements yield the
// imported project instance; import-from statements yield the imported
// name.
func (e *Evaluator) evalImport(t task.EvalImport) (task.Result, error) {
	g := e.graph(t.Where)
	var source graph.ExprID
	var importing []string
	if def, ok := g.ImportAlls[t.Name]; ok {
		source = def.Source
	} else if def, ok := g.ImportFroms[t.Name]; ok {
		source, importing = def.Source, def.Importing
	} else {
		return nil, evalErrorf(t.Where, "unknown import %s", t.Name)
	}

	return task.Then1(task.EvalExpr{Where: t.Where, Expr: source}, func(r task.Result) (task.Result, error) {
		resolved, err := e.importedProject(t.Where, r)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", t.Name, err)
		}
		return task.Map(resolved, func(r task.Result) (task.Result, error) {
			base := r.(task.ImportResult).Where
			instance := e.instanceWithRedefs(t.Where, t.Name, base)
			if importing == nil {
				return task.ImportResult{Where: instance}, nil
			}
			return task.Then1(task.EvalName{Where: instance, Name: nodeid.NewName(importing...)}, passThrough)
		})
	})
}

// instanceWithRedefs applies the variable redefinitions declared for an
// import on top of those of the instance it resolved to.
func (e *Evaluator) instanceWithRedefs(where task.Where, importName nodeid.Name, base task.Where) task.Where {
	own := e.graph(where).VarRedefs[importName]
	if len(own) == 0 {
		return base
	}
	redefs := project.Redefs{}
	for name, expr := range e.graphs.InstanceRedefs(base.Project, base.Instance) {
		redefs[name] = expr
	}
	for name, expr := range own {
		redefs[name] = project.GlobalExpr{Project: where.Project, Instance: where.Instance, Expr: expr}
	}
	return task.Where{Project: base.Project, Instance: e.graphs.Instance(base.Project, redefs)}
}

// importedProject turns the value of an import source into a project. The
// result is an ImportResult, possibly after loading the project.
func (e *Evaluator) importedProject(where task.Where, r task.Result) (task.Result, error) {
	switch r := r.(type) {
	case task.ImportResult:
		return r, nil
	case task.ValueResult:
		loc, err := e.importLocation(where, r.Value)
		if err != nil {
			return nil, err
		}
		return &task.LongRunning{Run: func(ctx context.Context) (task.Result, error) {
			id, err := e.graphs.Load(ctx, loc, e.load)
			if err != nil {
				return nil, err
			}
			return task.ImportResult{Where: task.Where{Project: id}}, nil
		}}, nil
	}
	return nil, errors.New(task.Describe(r) + " is not a project")
}

// bibixProjectClass is the prelude class describing a project on disk.
const bibixProjectClass = "BibixProject"

func (e *Evaluator) importLocation(where task.Where, v value.Value) (project.Location, error) {
	base := e.baseDirectory(where)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	switch v := v.(type) {
	case value.String:
		return project.NewLocation(resolve(string(v)), "")
	case value.Path:
		return project.NewLocation(resolve(string(v)), "")
	case value.Directory:
		return project.NewLocation(resolve(string(v)), "")
	case value.ClassInstance:
		if v.Package != e.preludePackage || v.Class != bibixProjectClass {
			break
		}
		root, ok := v.Fields["projectRoot"]
		if !ok {
			return project.Location{}, errors.New("project has no projectRoot")
		}
		script := ""
		if s, ok := v.Fields["scriptName"].(value.String); ok {
			script = string(s)
		}
		return project.NewLocation(resolve(value.Stringify(root)), script)
	}
	return project.Location{}, fmt.Errorf("%s is not a project location", v)
}
