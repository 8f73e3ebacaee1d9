package evaluator

import (
	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

func (e *Evaluator) evalType(t task.EvalType) (task.Result, error) {
	where := t.Where
	g := e.graph(where)
	node, ok := g.Type(t.Type)
	if !ok {
		return nil, evalErrorf(where, "unknown type %s", t.Type)
	}

	switch n := node.(type) {
	case *graph.BasicTypeNode:
		return task.TypeResult{Type: n.Type}, nil
	case *graph.ListTypeNode:
		return e.types(where, []graph.TypeID{n.Elem}, func(ts []value.Type) value.Type {
			return value.ListType{Elem: ts[0]}
		})
	case *graph.SetTypeNode:
		return e.types(where, []graph.TypeID{n.Elem}, func(ts []value.Type) value.Type {
			return value.SetType{Elem: ts[0]}
		})
	case *graph.TupleTypeNode:
		return e.types(where, n.Elems, func(ts []value.Type) value.Type {
			return value.TupleType{Elems: ts}
		})
	case *graph.NamedTupleTypeNode:
		ids := make([]graph.TypeID, len(n.Elems))
		for i, elem := range n.Elems {
			ids[i] = elem.Type
		}
		return e.types(where, ids, func(ts []value.Type) value.Type {
			pairs := make([]value.NamedType, len(ts))
			for i, typ := range ts {
				pairs[i] = value.NamedType{Name: n.Elems[i].Name, Type: typ}
			}
			return value.NamedTupleType{Pairs: pairs}
		})
	case *graph.UnionTypeNode:
		return e.types(where, n.Elems, func(ts []value.Type) value.Type {
			return value.UnionType{Types: ts}
		})

	case *graph.LocalDataClassTypeRef:
		return task.TypeResult{Type: value.DataClassType{Package: g.PackageName, Name: n.Name.String()}}, nil
	case *graph.LocalSuperClassTypeRef:
		return task.TypeResult{Type: value.SuperClassType{Package: g.PackageName, Name: n.Name.String()}}, nil
	case *graph.LocalEnumTypeRef:
		return task.TypeResult{Type: value.EnumType{Package: g.PackageName, Name: n.Name.String()}}, nil

	case *graph.ImportedTypeFromPreloaded:
		r, err := e.evalPreloaded(where, n.Plugin)
		if err != nil {
			return nil, err
		}
		return e.typeIn(r.(task.ImportResult).Where, n.Name)
	case *graph.ImportedTypeFromPrelude:
		return e.evalTypeName(preludeWhere, append([]string{n.Name}, n.Remaining...))
	case *graph.ImportedType:
		return task.Then1(task.EvalImport{Where: where, Name: n.Import}, func(r task.Result) (task.Result, error) {
			switch r := r.(type) {
			case task.ImportResult:
				return e.typeIn(r.Where, n.Name)
			case task.TypeResult:
				if len(n.Name.Tokens()) == 0 {
					return r, nil
				}
			case task.DataClassResult:
				if len(n.Name.Tokens()) == 0 {
					return task.TypeResult{Type: value.DataClassType{Package: r.CName.Package, Name: r.CName.Name}}, nil
				}
			case task.SuperClassResult:
				if len(n.Name.Tokens()) == 0 {
					return task.TypeResult{Type: value.SuperClassType{Package: r.CName.Package, Name: r.CName.Name}}, nil
				}
			}
			return nil, evalErrorf(where, "%s is not a type", n.Import.Append(n.Name.Tokens()...))
		})
	}
	return nil, evalErrorf(where, "unsupported type node %T", node)
}

func (e *Evaluator) typeIn(where task.Where, name nodeid.Name) (task.Result, error) {
	return task.Then1(task.EvalTypeName{Where: where, Name: name}, passThrough)
}

// types evaluates the type nodes and combines them with build.
func (e *Evaluator) types(where task.Where, ids []graph.TypeID, build func([]value.Type) value.Type) (task.Result, error) {
	deps := make([]task.Task, len(ids))
	for i, id := range ids {
		deps[i] = task.EvalType{Where: where, Type: id}
	}
	return task.Then(deps, func(rs []task.Result) (task.Result, error) {
		ts := make([]value.Type, len(rs))
		for i, r := range rs {
			ts[i] = r.(task.TypeResult).Type
		}
		return task.TypeResult{Type: build(ts)}, nil
	})
}
