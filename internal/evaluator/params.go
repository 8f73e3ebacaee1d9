package evaluator

import (
	"sort"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// organizeParams binds positional and named arguments to params and fills
// the rest from defaults, evaluated in defaultsWhere. Optional parameters
// without a default become none.
func (e *Evaluator) organizeParams(
	where task.Where,
	callee string,
	params []task.Param,
	defaultsWhere task.Where,
	pos []value.Value,
	named map[string]value.Value,
	then func(map[string]value.Value) (task.Result, error),
) (task.Result, error) {
	if len(pos) > len(params) {
		return nil, evalErrorf(where, "%s takes %d parameters but %d were given", callee, len(params), len(pos))
	}
	args := make(map[string]value.Value, len(params))
	for i, v := range pos {
		args[params[i].Name] = v
	}

	remaining := map[string]bool{}
	for _, p := range params[len(pos):] {
		remaining[p.Name] = true
	}
	var unknown []string
	for name, v := range named {
		if _, dup := args[name]; dup {
			return nil, evalErrorf(where, "parameter %s of %s is given more than once", name, callee)
		}
		if !remaining[name] {
			unknown = append(unknown, name)
			continue
		}
		args[name] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, evalErrorf(where, "unknown parameters of %s: %s", callee, strings.Join(unknown, ", "))
	}

	var missing, defaulted []string
	var deps []task.Task
	for _, p := range params[len(pos):] {
		if _, ok := args[p.Name]; ok {
			continue
		}
		switch {
		case p.Default != "":
			defaulted = append(defaulted, p.Name)
			deps = append(deps, task.EvalExpr{Where: defaultsWhere, Expr: p.Default})
		case p.Optional:
			args[p.Name] = value.None
		default:
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return nil, evalErrorf(where, "required parameters of %s are not specified: %s", callee, strings.Join(missing, ", "))
	}
	if len(deps) == 0 {
		return then(args)
	}
	return task.Then(deps, func(rs []task.Result) (task.Result, error) {
		for i, r := range rs {
			v, err := asValue(defaultsWhere, r)
			if err != nil {
				return nil, err
			}
			args[defaulted[i]] = v
		}
		return then(args)
	})
}

// paramsOf returns the parameters of something callable.
func paramsOf(r task.Result) ([]task.Param, bool) {
	switch r := r.(type) {
	case task.BuildRuleResult:
		return r.Params, true
	case task.ActionRuleResult:
		return r.Params, true
	case task.DataClassResult:
		return r.Fields, true
	}
	return nil, false
}
