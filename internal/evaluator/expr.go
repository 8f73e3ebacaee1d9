package evaluator

import (
	"strings"

	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/project"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// sub is the task evaluating another node in the same context as t.
func sub(t task.EvalExpr, id graph.ExprID) task.EvalExpr {
	return task.EvalExpr{Where: t.Where, Expr: id, This: t.This, Locals: t.Locals}
}

var preludeWhere = task.Where{Project: project.PreludeID}

func (e *Evaluator) evalExpr(t task.EvalExpr) (task.Result, error) {
	where := t.Where
	g := e.graph(where)
	node, ok := g.Expr(t.Expr)
	if !ok {
		return nil, evalErrorf(where, "unknown expression %s", t.Expr)
	}

	switch n := node.(type) {
	case *graph.LocalTargetRef:
		return task.Then1(task.EvalTarget{Where: where, Name: n.Name}, passThrough)
	case *graph.LocalBuildRuleRef:
		return task.Then1(task.EvalBuildRule{Where: where, Name: n.Name}, passThrough)
	case *graph.LocalActionRuleRef:
		return task.Then1(task.EvalActionRule{Where: where, Name: n.Name}, passThrough)
	case *graph.LocalVarRef:
		return task.Then1(task.EvalVar{Where: where, Name: n.Name}, passThrough)
	case *graph.LocalActionRef:
		return task.ActionRefResult{Where: where, Name: n.Name}, nil
	case *graph.LocalDataClassRef:
		return task.Then1(task.EvalDataClass{Where: where, Name: n.Name}, passThrough)
	case *graph.LocalEnumValue:
		return enumValue(where, g, n.Enum, n.Value)

	case *graph.ActionLocalLet:
		v, ok := t.Locals[n.Name]
		if !ok {
			return nil, evalErrorf(where, "%s is not bound in action %s", n.Name, n.Action)
		}
		return task.Value(v)

	case *graph.ImportedExprFromPreloaded:
		r, err := e.evalPreloaded(where, n.Plugin)
		if err != nil {
			return nil, err
		}
		return e.member(where, r, n.Name.Tokens())

	case *graph.ImportedExprFromPrelude:
		return e.evalName(preludeWhere, append([]string{n.Name}, n.Remaining...))

	case *graph.ImportedExpr:
		return task.Then1(task.EvalImport{Where: where, Name: n.Import}, func(r task.Result) (task.Result, error) {
			return e.member(where, r, n.Name.Tokens())
		})

	case *graph.ValueCast:
		deps := []task.Task{sub(t, n.Value), task.EvalType{Where: where, Type: n.Type}}
		return task.Then(deps, func(rs []task.Result) (task.Result, error) {
			v, err := asValue(where, rs[0])
			if err != nil {
				return nil, err
			}
			return e.cast(where, v, rs[1].(task.TypeResult).Type)
		})

	case *graph.CallExprNode:
		return task.Then1(sub(t, n.Call), passThrough)
	case *graph.CallExprCallNode:
		return e.evalCall(t, n)
	case *graph.ParamCoercion:
		return e.evalCoercion(t, n)

	case *graph.MergeNode:
		return e.values(t, []graph.ExprID{n.Lhs, n.Rhs}, func(vs []value.Value) (task.Result, error) {
			v, err := merge(where, vs[0], vs[1])
			if err != nil {
				return nil, err
			}
			return task.Value(v)
		})

	case *graph.ListNode:
		ids := make([]graph.ExprID, len(n.Elems))
		for i, elem := range n.Elems {
			ids[i] = elem.Value
		}
		return e.values(t, ids, func(vs []value.Value) (task.Result, error) {
			var out []value.Value
			for i, v := range vs {
				if !n.Elems[i].Ellipsis {
					out = append(out, v)
					continue
				}
				elems, ok := collectionElems(v)
				if !ok {
					return nil, evalErrorf(where, "cannot spread %s into a list", v)
				}
				out = append(out, elems...)
			}
			return task.Value(value.NewList(out...))
		})

	case *graph.BooleanNode:
		return task.Value(value.Boolean(n.Value))
	case *graph.NoneNode:
		return task.Value(value.None)

	case *graph.StringNode:
		var ids []graph.ExprID
		for _, p := range n.Parts {
			if p.Expr != "" {
				ids = append(ids, p.Expr)
			}
		}
		return e.values(t, ids, func(vs []value.Value) (task.Result, error) {
			var b strings.Builder
			next := 0
			for _, p := range n.Parts {
				if p.Expr == "" {
					b.WriteString(p.Text)
					continue
				}
				b.WriteString(value.Stringify(vs[next]))
				next++
			}
			return task.Value(value.String(b.String()))
		})

	case *graph.MemberAccessNode:
		return e.values(t, []graph.ExprID{n.Target}, func(vs []value.Value) (task.Result, error) {
			v, err := accessMembers(where, vs[0], n.Members)
			if err != nil {
				return nil, err
			}
			return task.Value(v)
		})

	case *graph.ThisRef:
		if t.This == nil {
			return nil, evalErrorf(where, "'this' used outside of a class cast")
		}
		return task.Value(*t.This)

	case *graph.TupleNode:
		return e.values(t, n.Elems, func(vs []value.Value) (task.Result, error) {
			return task.Value(value.Tuple{Values: vs})
		})

	case *graph.NamedTupleNode:
		ids := make([]graph.ExprID, len(n.Elems))
		for i, elem := range n.Elems {
			ids[i] = elem.Expr
		}
		return e.values(t, ids, func(vs []value.Value) (task.Result, error) {
			pairs := make([]value.NamedPair, len(vs))
			for i, v := range vs {
				pairs[i] = value.NamedPair{Name: n.Elems[i].Name, Value: v}
			}
			return task.Value(value.NewNamedTuple(pairs...))
		})
	}
	return nil, evalErrorf(where, "unsupported expression node %T", node)
}

// values evaluates the nodes concurrently and continues with their values.
func (e *Evaluator) values(t task.EvalExpr, ids []graph.ExprID, fn func([]value.Value) (task.Result, error)) (task.Result, error) {
	deps := make([]task.Task, len(ids))
	for i, id := range ids {
		deps[i] = sub(t, id)
	}
	return task.Then(deps, func(rs []task.Result) (task.Result, error) {
		vs := make([]value.Value, len(rs))
		for i, r := range rs {
			v, err := asValue(t.Where, r)
			if err != nil {
				return nil, err
			}
			vs[i] = v
		}
		return fn(vs)
	})
}

func collectionElems(v value.Value) ([]value.Value, bool) {
	switch v := v.(type) {
	case value.List:
		return v.Values, true
	case value.Set:
		return v.Values, true
	case value.Tuple:
		return v.Values, true
	}
	return nil, false
}

// merge implements the + operator.
func merge(where task.Where, lhs, rhs value.Value) (value.Value, error) {
	switch l := lhs.(type) {
	case value.String:
		if r, ok := rhs.(value.String); ok {
			return l + r, nil
		}
	case value.List:
		if elems, ok := collectionElems(rhs); ok {
			out := make([]value.Value, 0, len(l.Values)+len(elems))
			out = append(out, l.Values...)
			return value.NewList(append(out, elems...)...), nil
		}
	case value.Set:
		if elems, ok := collectionElems(rhs); ok {
			out := make([]value.Value, 0, len(l.Values)+len(elems))
			out = append(out, l.Values...)
			return value.NewSet(append(out, elems...)...), nil
		}
	}
	return nil, evalErrorf(where, "cannot merge %s and %s", lhs, rhs)
}

func accessMembers(where task.Where, v value.Value, members []string) (value.Value, error) {
	cur := v
	for _, m := range members {
		switch c := cur.(type) {
		case value.ClassInstance:
			f, ok := c.Fields[m]
			if !ok {
				return nil, evalErrorf(where, "class %s has no field %s", c.Class, m)
			}
			cur = f
		case value.NamedTuple:
			f, ok := c.Get(m)
			if !ok {
				return nil, evalErrorf(where, "named tuple %s has no element %s", c, m)
			}
			cur = f
		default:
			return nil, evalErrorf(where, "cannot access %s of %s", m, cur)
		}
	}
	return cur, nil
}
