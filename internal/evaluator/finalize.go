package evaluator

import (
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// finalize turns the raw value of a rule into a canonical one. Class
// instances named relative to scope are resolved, and the fields of every
// class instance are checked and cast against the class definition.
func (e *Evaluator) finalize(where task.Where, scope nodeid.Name, v value.Value) (task.Result, error) {
	switch v := v.(type) {
	case value.NClassInstance:
		class, err := e.evalNameFrom(where, scope, v.NameTokens)
		if err != nil {
			return nil, err
		}
		return task.Map(class, func(r task.Result) (task.Result, error) {
			dc, ok := r.(task.DataClassResult)
			if !ok {
				return nil, evalErrorf(where, "%s is not a data class", nodeid.NewName(v.NameTokens...))
			}
			return e.finalizeFields(where, scope, dc, v.Fields)
		})
	case value.ClassInstance:
		return task.Then1(task.EvalClassByName{Class: value.CName{Package: v.Package, Name: v.Class}}, func(r task.Result) (task.Result, error) {
			dc, ok := r.(task.DataClassResult)
			if !ok {
				return nil, evalErrorf(where, "%s:%s is not a data class", v.Package, v.Class)
			}
			return e.finalizeFields(where, scope, dc, v.Fields)
		})
	case value.List:
		return e.finalizeAll(where, scope, v.Values, func(vs []value.Value) value.Value { return value.NewList(vs...) })
	case value.Set:
		return e.finalizeAll(where, scope, v.Values, func(vs []value.Value) value.Value { return value.NewSet(vs...) })
	case value.Tuple:
		return e.finalizeAll(where, scope, v.Values, func(vs []value.Value) value.Value { return value.Tuple{Values: vs} })
	case value.NamedTuple:
		values := make([]value.Value, len(v.Pairs))
		for i, p := range v.Pairs {
			values[i] = p.Value
		}
		return e.finalizeAll(where, scope, values, func(vs []value.Value) value.Value {
			pairs := make([]value.NamedPair, len(vs))
			for i, p := range v.Pairs {
				pairs[i] = value.NamedPair{Name: p.Name, Value: vs[i]}
			}
			return value.NewNamedTuple(pairs...)
		})
	}
	return task.Value(v)
}

func (e *Evaluator) finalizeAll(where task.Where, scope nodeid.Name, vs []value.Value, build func([]value.Value) value.Value) (task.Result, error) {
	rs := make([]task.Result, len(vs))
	for i, v := range vs {
		r, err := e.finalize(where, scope, v)
		if err != nil {
			return nil, err
		}
		rs[i] = r
	}
	return task.CollectValues(rs, func(out []value.Value) (task.Result, error) {
		return task.Value(build(out))
	})
}

// finalizeFields builds the canonical instance of dc from raw fields.
// Missing fields take their defaults, extra fields are an error.
func (e *Evaluator) finalizeFields(where task.Where, scope nodeid.Name, dc task.DataClassResult, raw map[string]value.Value) (task.Result, error) {
	names := make([]string, 0, len(raw))
	rs := make([]task.Result, 0, len(raw))
	for name, v := range raw {
		r, err := e.finalize(where, scope, v)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		rs = append(rs, r)
	}
	return task.CollectValues(rs, func(vs []value.Value) (task.Result, error) {
		fields := make(map[string]value.Value, len(vs))
		for i, v := range vs {
			fields[names[i]] = v
		}
		return e.organizeParams(where, dc.CName.String(), dc.Fields, dc.Where, nil, fields, func(args map[string]value.Value) (task.Result, error) {
			values := make([]value.Value, len(dc.Fields))
			types := make([]value.Type, len(dc.Fields))
			for i, f := range dc.Fields {
				values[i] = args[f.Name]
				types[i] = f.Type
			}
			return e.castElems(where, values, types, func(out []value.Value) value.Value {
				cast := make(map[string]value.Value, len(out))
				for i, f := range dc.Fields {
					cast[f.Name] = out[i]
				}
				return value.ClassInstance{Package: dc.CName.Package, Class: dc.CName.Name, Fields: cast}
			})
		})
	})
}
