package evaluator

import (
	"context"
	"fmt"
	"maps"

	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// execAction runs the statements of an action in order. The arguments name
// of the action is bound to the command line arguments as a list of
// strings.
func (e *Evaluator) execAction(t task.ExecAction) (task.Result, error) {
	def, ok := e.graph(t.Where).Actions[t.Name]
	if !ok {
		return nil, evalErrorf(t.Where, "unknown action %s", t.Name)
	}
	locals := map[string]value.Value{}
	if def.ArgsName != "" {
		args := make([]value.Value, len(t.Args))
		for i, a := range t.Args {
			args[i] = value.String(a)
		}
		locals[def.ArgsName] = value.NewList(args...)
	}
	return e.runStatements(t.Where, def, 0, locals)
}

func (e *Evaluator) runStatements(where task.Where, def *graph.ActionDef, index int, locals map[string]value.Value) (task.Result, error) {
	if index == len(def.Stmts) {
		return task.Value(value.None)
	}
	stmt := def.Stmts[index]
	next := task.ExecActionCallExpr{Where: where, Action: def.Name, Index: index, Locals: locals}
	return task.Then1(next, func(r task.Result) (task.Result, error) {
		if stmt.Let == "" {
			return e.runStatements(where, def, index+1, locals)
		}
		v, err := asValue(where, r)
		if err != nil {
			return nil, err
		}
		bound := maps.Clone(locals)
		bound[stmt.Let] = v
		return e.runStatements(where, def, index+1, bound)
	})
}

// execActionCallExpr evaluates one statement. Calls of action rules run the
// rule; calls of other actions run them; anything else is an expression.
func (e *Evaluator) execActionCallExpr(t task.ExecActionCallExpr) (task.Result, error) {
	g := e.graph(t.Where)
	def, ok := g.Actions[t.Action]
	if !ok || t.Index >= len(def.Stmts) {
		return nil, evalErrorf(t.Where, "unknown statement %d of action %s", t.Index, t.Action)
	}
	scope := task.EvalExpr{Where: t.Where, Locals: t.Locals}
	stmtExpr := sub(scope, def.Stmts[t.Index].Expr)

	node, _ := g.Expr(stmtExpr.Expr)
	callNode, ok := node.(*graph.CallExprNode)
	if !ok {
		return task.Then1(stmtExpr, passThrough)
	}
	callN, _ := g.Expr(callNode.Call)
	call, ok := callN.(*graph.CallExprCallNode)
	if !ok {
		return task.Then1(stmtExpr, passThrough)
	}

	calleeResult, err := e.callee(scope, call.Callee)
	if err != nil {
		return nil, err
	}
	return task.Map(calleeResult, func(callee task.Result) (task.Result, error) {
		switch c := callee.(type) {
		case task.ActionRuleResult:
			ids := append([]graph.ExprID(nil), call.Pos...)
			for _, arg := range call.Named {
				ids = append(ids, arg.Expr)
			}
			return e.values(scope, ids, func(vs []value.Value) (task.Result, error) {
				named := make(map[string]value.Value, len(call.Named))
				for i, arg := range call.Named {
					named[arg.Name] = vs[len(call.Pos)+i]
				}
				return e.organizeParams(t.Where, c.CName.String(), c.Params, c.Where, vs[:len(call.Pos)], named, func(args map[string]value.Value) (task.Result, error) {
					return e.runActionRule(t, c, args), nil
				})
			})
		case task.ActionRefResult:
			return e.values(scope, call.Pos, func(vs []value.Value) (task.Result, error) {
				if len(call.Named) > 0 {
					return nil, evalErrorf(t.Where, "action %s takes no named arguments", c.Name)
				}
				args := make([]string, len(vs))
				for i, v := range vs {
					args[i] = value.Stringify(v)
				}
				return task.Then1(task.ExecAction{Where: c.Where, Name: c.Name, Args: args}, passThrough)
			})
		}
		return task.Then1(stmtExpr, passThrough)
	})
}

func (e *Evaluator) runActionRule(t task.ExecActionCallExpr, rule task.ActionRuleResult, args map[string]value.Value) task.Result {
	return &task.LongRunning{Run: func(ctx context.Context) (task.Result, error) {
		capability := registry.Capability{Module: rule.Impl.Module, Class: rule.Impl.Class, Method: rule.Impl.Method}
		fn, ok := e.registry.ActionRule(capability)
		if !ok {
			return nil, fmt.Errorf("no implementation registered for action rule %s (%s)", rule.CName, capability)
		}
		ac := &plugin.ActionContext{
			Env:               e.env,
			MainBaseDirectory: e.mainBase(),
			Arguments:         args,
			Logger:            e.repo.ProgressLogger(ctx, "action:"+t.Action.String()),
		}
		ret, err := safeCall(func() (plugin.Return, error) { return fn(ctx, ac) })
		if err != nil {
			return nil, &plugin.RuleFailedError{Rule: rule.CName.String(), Err: err}
		}
		switch ret := ret.(type) {
		case plugin.DoneReturn:
			return task.Value(value.None)
		case plugin.ValueReturn:
			return task.Value(ret.Value)
		case plugin.FailedReturn:
			return nil, &plugin.RuleFailedError{Rule: rule.CName.String(), Err: ret.Err}
		}
		return nil, &plugin.RuleFailedError{Rule: rule.CName.String(), Err: fmt.Errorf("unsupported return %T from an action rule", ret)}
	}}
}
