package evaluator

import (
	"context"
	"sort"

	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/objhash"
	"github.com/specialistvlad/bibixgo/internal/project"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

func (e *Evaluator) evalTarget(t task.EvalTarget) (task.Result, error) {
	expr, ok := e.graph(t.Where).Targets[t.Name]
	if !ok {
		return nil, evalErrorf(t.Where, "unknown target %s", t.Name)
	}
	return task.Then1(task.EvalExpr{Where: t.Where, Expr: expr}, func(r task.Result) (task.Result, error) {
		v, err := asValue(t.Where, r)
		if err != nil {
			return nil, err
		}
		out := task.ValueResult{Value: v}
		if vr, ok := r.(task.ValueResult); ok {
			out.TargetID = vr.TargetID
		}
		if t.Where != (task.Where{Project: project.MainID}) || out.TargetID == "" {
			return out, nil
		}
		// Outputs of main targets get a stable link named after the target.
		return &task.LongRunning{Run: func(ctx context.Context) (task.Result, error) {
			if err := e.repo.LinkOutputName(ctx, t.Name.String(), out.TargetID); err != nil {
				return nil, err
			}
			return out, nil
		}}, nil
	})
}

// evalVar evaluates a variable. A redefinition of the instance wins over the
// default value and is evaluated where it was written.
func (e *Evaluator) evalVar(t task.EvalVar) (task.Result, error) {
	def, ok := e.graph(t.Where).Vars[t.Name]
	if !ok {
		return nil, evalErrorf(t.Where, "unknown variable %s", t.Name)
	}
	valueWhere := t.Where
	var source task.Task
	if redef, ok := e.graphs.InstanceRedefs(t.Where.Project, t.Where.Instance)[t.Name]; ok {
		valueWhere = task.Where{Project: redef.Project, Instance: redef.Instance}
		source = task.EvalExpr{Where: valueWhere, Expr: redef.Expr}
	} else if def.Default != "" {
		source = task.EvalExpr{Where: t.Where, Expr: def.Default}
	} else {
		return nil, evalErrorf(t.Where, "variable %s has no value", t.Name)
	}

	deps := []task.Task{source, task.EvalType{Where: t.Where, Type: def.Type}}
	return task.Then(deps, func(rs []task.Result) (task.Result, error) {
		v, err := asValue(valueWhere, rs[0])
		if err != nil {
			return nil, err
		}
		return e.cast(valueWhere, v, rs[1].(task.TypeResult).Type)
	})
}

// paramTypes appends the type tasks of params to deps.
func paramTypes(where task.Where, deps []task.Task, params []graph.ParamDef) []task.Task {
	for _, p := range params {
		deps = append(deps, task.EvalType{Where: where, Type: p.Type})
	}
	return deps
}

func evaluatedParams(defs []graph.ParamDef, rs []task.Result) []task.Param {
	params := make([]task.Param, len(defs))
	for i, p := range defs {
		params[i] = task.Param{
			Name:     p.Name,
			Type:     rs[i].(task.TypeResult).Type,
			Optional: p.Optional,
			Default:  p.Default,
		}
	}
	return params
}

// implOf describes the implementation of a rule. rs holds the value of the
// implementation target when the rule is not native.
func (e *Evaluator) implOf(where task.Where, target graph.ExprID, class, method, dflt string, impl task.Result) (task.Impl, error) {
	if method == "" {
		method = dflt
	}
	if target == "" {
		return task.Impl{Module: e.graph(where).PackageName, Native: true, Class: class, Method: method}, nil
	}
	v, err := asValue(where, impl)
	if err != nil {
		return task.Impl{}, err
	}
	return task.Impl{Module: value.Stringify(v), Hash: objhash.ValueHash(v), Class: class, Method: method}, nil
}

func (e *Evaluator) evalBuildRule(t task.EvalBuildRule) (task.Result, error) {
	def, ok := e.graph(t.Where).BuildRules[t.Name]
	if !ok {
		return nil, evalErrorf(t.Where, "unknown rule %s", t.Name)
	}
	cname, err := e.cname(t.Where, t.Name)
	if err != nil {
		return nil, err
	}
	deps := paramTypes(t.Where, nil, def.Params)
	deps = append(deps, task.EvalType{Where: t.Where, Type: def.ReturnType})
	if def.ImplTarget != "" {
		deps = append(deps, task.EvalExpr{Where: t.Where, Expr: def.ImplTarget})
	}
	n := len(def.Params)
	return task.Then(deps, func(rs []task.Result) (task.Result, error) {
		var implResult task.Result
		if def.ImplTarget != "" {
			implResult = rs[n+1]
		}
		impl, err := e.implOf(t.Where, def.ImplTarget, def.ImplClass, def.ImplMethod, registry.DefaultBuildMethod, implResult)
		if err != nil {
			return nil, err
		}
		return task.BuildRuleResult{
			Where:      t.Where,
			Def:        def,
			CName:      cname,
			Params:     evaluatedParams(def.Params, rs[:n]),
			ReturnType: rs[n].(task.TypeResult).Type,
			Impl:       impl,
		}, nil
	})
}

func (e *Evaluator) evalActionRule(t task.EvalActionRule) (task.Result, error) {
	def, ok := e.graph(t.Where).ActionRules[t.Name]
	if !ok {
		return nil, evalErrorf(t.Where, "unknown action rule %s", t.Name)
	}
	cname, err := e.cname(t.Where, t.Name)
	if err != nil {
		return nil, err
	}
	deps := paramTypes(t.Where, nil, def.Params)
	if def.ImplTarget != "" {
		deps = append(deps, task.EvalExpr{Where: t.Where, Expr: def.ImplTarget})
	}
	n := len(def.Params)
	return task.Then(deps, func(rs []task.Result) (task.Result, error) {
		var implResult task.Result
		if def.ImplTarget != "" {
			implResult = rs[n]
		}
		impl, err := e.implOf(t.Where, def.ImplTarget, def.ImplClass, def.ImplMethod, registry.DefaultActionMethod, implResult)
		if err != nil {
			return nil, err
		}
		return task.ActionRuleResult{
			Where:  t.Where,
			Def:    def,
			CName:  cname,
			Params: evaluatedParams(def.Params, rs[:n]),
			Impl:   impl,
		}, nil
	})
}

func (e *Evaluator) evalDataClass(t task.EvalDataClass) (task.Result, error) {
	def, ok := e.graph(t.Where).DataClasses[t.Name]
	if !ok {
		return nil, evalErrorf(t.Where, "unknown class %s", t.Name)
	}
	cname, err := e.cname(t.Where, t.Name)
	if err != nil {
		return nil, err
	}
	deps := paramTypes(t.Where, nil, def.Fields)
	for _, c := range def.Casts {
		deps = append(deps, task.EvalType{Where: t.Where, Type: c.Type})
	}
	n := len(def.Fields)
	return task.Then(deps, func(rs []task.Result) (task.Result, error) {
		casts := make([]task.ClassCast, len(def.Casts))
		for i, c := range def.Casts {
			casts[i] = task.ClassCast{Type: rs[n+i].(task.TypeResult).Type, Expr: c.Expr}
		}
		return task.DataClassResult{
			Where:  t.Where,
			Def:    def,
			CName:  cname,
			Fields: evaluatedParams(def.Fields, rs[:n]),
			Casts:  casts,
		}, nil
	})
}

// evalSuperClass collects the data classes reachable from a super class.
// Sub types are names in the namespace of the super class.
func (e *Evaluator) evalSuperClass(t task.EvalSuperClass) (task.Result, error) {
	g := e.graph(t.Where)
	def, ok := g.SuperClasses[t.Name]
	if !ok {
		return nil, evalErrorf(t.Where, "unknown super class %s", t.Name)
	}
	cname, err := e.cname(t.Where, t.Name)
	if err != nil {
		return nil, err
	}
	var direct []value.CName
	var deps []task.Task
	for _, sub := range def.Subs {
		name := t.Name.Namespace().Append(sub)
		if _, ok := g.DataClasses[name]; ok {
			direct = append(direct, value.CName{Package: g.PackageName, Name: name.String()})
			continue
		}
		if _, ok := g.SuperClasses[name]; ok {
			deps = append(deps, task.EvalSuperClass{Where: t.Where, Name: name})
			continue
		}
		return nil, evalErrorf(t.Where, "sub type %s of super class %s is not a class", sub, t.Name)
	}
	return task.Then(deps, func(rs []task.Result) (task.Result, error) {
		seen := map[value.CName]bool{}
		var all []value.CName
		add := func(c value.CName) {
			if !seen[c] {
				seen[c] = true
				all = append(all, c)
			}
		}
		for _, c := range direct {
			add(c)
		}
		for _, r := range rs {
			for _, c := range r.(task.SuperClassResult).DataClasses {
				add(c)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })
		return task.SuperClassResult{Where: t.Where, CName: cname, DataClasses: all}, nil
	})
}

// evalClassByName finds a data class or super class by canonical name. An
// empty package names the main project.
func (e *Evaluator) evalClassByName(c value.CName) (task.Result, error) {
	id, ok := e.graphs.ByPackage(c.Package)
	if !ok {
		return nil, evalErrorf(task.Where{Project: project.MainID}, "unknown package %q of class %s", c.Package, c)
	}
	where := task.Where{Project: id}
	g := e.graph(where)
	name := nodeid.Name(c.Name)
	if _, ok := g.DataClasses[name]; ok {
		return task.Then1(task.EvalDataClass{Where: where, Name: name}, passThrough)
	}
	if _, ok := g.SuperClasses[name]; ok {
		return task.Then1(task.EvalSuperClass{Where: where, Name: name}, passThrough)
	}
	return nil, evalErrorf(where, "unknown class %s", c)
}
