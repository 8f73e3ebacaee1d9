package evaluator

import (
	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/objhash"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// callee evaluates the callee of a call. Rule definitions passed around as
// values are resolved back to their rules.
func (e *Evaluator) callee(t task.EvalExpr, id graph.ExprID) (task.Result, error) {
	return task.Then1(sub(t, id), func(r task.Result) (task.Result, error) {
		vr, ok := r.(task.ValueResult)
		if !ok {
			return r, nil
		}
		var cname value.CName
		var def func(task.Where, nodeid.Name) task.Task
		switch v := vr.Value.(type) {
		case value.BuildRuleDef:
			cname = v.Name
			def = func(w task.Where, n nodeid.Name) task.Task { return task.EvalBuildRule{Where: w, Name: n} }
		case value.ActionRuleDef:
			cname = v.Name
			def = func(w task.Where, n nodeid.Name) task.Task { return task.EvalActionRule{Where: w, Name: n} }
		default:
			return r, nil
		}
		pid, ok := e.graphs.ByPackage(cname.Package)
		if !ok {
			return nil, evalErrorf(t.Where, "unknown package %q of rule %s", cname.Package, cname)
		}
		return task.Then1(def(task.Where{Project: pid}, nodeid.Name(cname.Name)), passThrough)
	})
}

func (e *Evaluator) evalCall(t task.EvalExpr, n *graph.CallExprCallNode) (task.Result, error) {
	where := t.Where
	calleeResult, err := e.callee(t, n.Callee)
	if err != nil {
		return nil, err
	}
	return task.Map(calleeResult, func(callee task.Result) (task.Result, error) {
		ids := append([]graph.ExprID(nil), n.Pos...)
		for _, arg := range n.Named {
			ids = append(ids, arg.Expr)
		}
		return e.values(t, ids, func(vs []value.Value) (task.Result, error) {
			pos := vs[:len(n.Pos)]
			named := make(map[string]value.Value, len(n.Named))
			for i, arg := range n.Named {
				named[arg.Name] = vs[len(n.Pos)+i]
			}

			switch c := callee.(type) {
			case task.BuildRuleResult:
				return e.organizeParams(where, c.CName.String(), c.Params, c.Where, pos, named, func(args map[string]value.Value) (task.Result, error) {
					return e.callRule(where, c, args)
				})
			case task.DataClassResult:
				return e.organizeParams(where, c.CName.String(), c.Fields, c.Where, pos, named, func(args map[string]value.Value) (task.Result, error) {
					return task.Value(value.ClassInstance{Package: c.CName.Package, Class: c.CName.Name, Fields: args})
				})
			case task.ActionRuleResult:
				return nil, evalErrorf(where, "action rule %s can only be called from an action", c.CName)
			}
			return nil, evalErrorf(where, "%s is not callable", task.Describe(callee))
		})
	})
}

// callRule identifies a rule invocation and waits for it. The value carries
// the target id of the invocation.
func (e *Evaluator) callRule(caller task.Where, rule task.BuildRuleResult, args map[string]value.Value) (task.Result, error) {
	data := &objhash.TargetIDData{
		CallerSource: e.sourceID(caller.Project),
		RuleSource:   e.sourceID(rule.Where.Project),
		RuleName:     rule.CName.String(),
		ImplHash:     rule.Impl.Hash,
		ImplClass:    rule.Impl.Class,
		ImplMethod:   rule.Impl.Method,
		Args:         args,
	}
	idData, id := objhash.TargetID(data, e.mainBase())
	invoke := task.InvokeRule{
		TargetID: id,
		Call:     &task.RuleCall{Caller: caller, Rule: &rule, Args: args, Data: data, IDData: idData},
	}
	return task.Then1(invoke, func(r task.Result) (task.Result, error) {
		vr, ok := r.(task.ValueResult)
		if !ok {
			return nil, evalErrorf(caller, "rule %s did not produce a value", rule.CName)
		}
		vr.TargetID = id
		return vr, nil
	})
}

// evalCoercion casts a call argument to the type of the parameter it binds
// to. Arguments that match no parameter are left for organizeParams to
// report.
func (e *Evaluator) evalCoercion(t task.EvalExpr, n *graph.ParamCoercion) (task.Result, error) {
	calleeResult, err := e.callee(t, n.Callee)
	if err != nil {
		return nil, err
	}
	return task.Map(calleeResult, func(callee task.Result) (task.Result, error) {
		params, ok := paramsOf(callee)
		if !ok {
			return nil, evalErrorf(t.Where, "%s is not callable", task.Describe(callee))
		}
		var param *task.Param
		if n.Named == "" {
			if n.Pos >= 0 && n.Pos < len(params) {
				param = &params[n.Pos]
			}
		} else {
			for i := range params {
				if params[i].Name == n.Named {
					param = &params[i]
				}
			}
		}
		return thenValue(t.Where, sub(t, n.Value), func(v value.Value) (task.Result, error) {
			if param == nil {
				return task.Value(v)
			}
			return e.cast(t.Where, v, param.Type)
		})
	})
}
