package evaluator

import (
	"path/filepath"

	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// cast converts v to typ. Casts that need class definitions, such as super
// class membership or the `as` casts of a data class, suspend on the class.
// Relative paths resolve against the base directory of where.
func (e *Evaluator) cast(where task.Where, v value.Value, typ value.Type) (task.Result, error) {
	if out, ok := e.castDirect(where, v, typ); ok {
		return task.Value(out)
	}

	switch typ := typ.(type) {
	case value.ListType:
		if elems, ok := collectionElems(v); ok {
			return e.castElems(where, elems, repeatType(typ.Elem, len(elems)), func(vs []value.Value) value.Value {
				return value.NewList(vs...)
			})
		}
	case value.SetType:
		if elems, ok := collectionElems(v); ok {
			return e.castElems(where, elems, repeatType(typ.Elem, len(elems)), func(vs []value.Value) value.Value {
				return value.NewSet(vs...)
			})
		}
	case value.TupleType:
		if elems, ok := tupleElems(v); ok && len(elems) == len(typ.Elems) {
			return e.castElems(where, elems, typ.Elems, func(vs []value.Value) value.Value {
				return value.Tuple{Values: vs}
			})
		}
	case value.NamedTupleType:
		if elems, ok := namedTupleElems(v, typ); ok {
			types := make([]value.Type, len(typ.Pairs))
			for i, p := range typ.Pairs {
				types[i] = p.Type
			}
			return e.castElems(where, elems, types, func(vs []value.Value) value.Value {
				return namedTuple(typ, vs)
			})
		}
	case value.SuperClassType:
		if ci, ok := v.(value.ClassInstance); ok {
			super := value.CName{Package: typ.Package, Name: typ.Name}
			return task.Then1(task.EvalClassByName{Class: super}, func(r task.Result) (task.Result, error) {
				sr, ok := r.(task.SuperClassResult)
				if !ok {
					return nil, evalErrorf(where, "%s is not a super class", super)
				}
				for _, c := range sr.DataClasses {
					if c.Package == ci.Package && c.Name == ci.Class {
						return task.Value(ci)
					}
				}
				return e.customCast(where, ci, typ)
			})
		}
	}
	return e.customCast(where, v, typ)
}

// castDirect performs the casts that need nothing but the value.
func (e *Evaluator) castDirect(where task.Where, v value.Value, typ value.Type) (value.Value, bool) {
	if _, ok := v.(value.NoneValue); ok {
		return v, true
	}
	switch typ := typ.(type) {
	case value.BasicType:
		return e.castBasic(where, v, typ)
	case value.ListType:
		if elems, ok := collectionElems(v); ok {
			if out, ok := e.castAllDirect(where, elems, repeatType(typ.Elem, len(elems))); ok {
				return value.NewList(out...), true
			}
		}
	case value.SetType:
		if elems, ok := collectionElems(v); ok {
			if out, ok := e.castAllDirect(where, elems, repeatType(typ.Elem, len(elems))); ok {
				return value.NewSet(out...), true
			}
		}
	case value.TupleType:
		if elems, ok := tupleElems(v); ok && len(elems) == len(typ.Elems) {
			if out, ok := e.castAllDirect(where, elems, typ.Elems); ok {
				return value.Tuple{Values: out}, true
			}
		}
	case value.NamedTupleType:
		if elems, ok := namedTupleElems(v, typ); ok {
			types := make([]value.Type, len(typ.Pairs))
			for i, p := range typ.Pairs {
				types[i] = p.Type
			}
			if out, ok := e.castAllDirect(where, elems, types); ok {
				return namedTuple(typ, out), true
			}
		}
	case value.DataClassType:
		if ci, ok := v.(value.ClassInstance); ok && ci.Package == typ.Package && ci.Class == typ.Name {
			return v, true
		}
	case value.EnumType:
		return e.castEnum(v, typ)
	case value.UnionType:
		// A member the value already has wins over conversions.
		for _, member := range typ.Types {
			if hasType(v, member) {
				return v, true
			}
		}
		for _, member := range typ.Types {
			if out, ok := e.castDirect(where, v, member); ok {
				return out, true
			}
		}
	}
	return nil, false
}

func (e *Evaluator) castBasic(where task.Where, v value.Value, typ value.BasicType) (value.Value, bool) {
	switch typ {
	case value.AnyType:
		return v, true
	case value.BooleanType:
		b, ok := v.(value.Boolean)
		return b, ok
	case value.StringType:
		switch v := v.(type) {
		case value.String:
			return v, true
		case value.ClassInstance, value.NClassInstance, value.BuildRuleDef, value.ActionRuleDef:
			return nil, false
		}
		return value.String(value.Stringify(v)), true
	case value.PathType:
		if p, ok := e.pathOf(where, v); ok {
			return value.Path(p), true
		}
	case value.FileType:
		if _, ok := v.(value.Directory); ok {
			return nil, false
		}
		if p, ok := e.pathOf(where, v); ok {
			return value.File(p), true
		}
	case value.DirectoryType:
		if _, ok := v.(value.File); ok {
			return nil, false
		}
		if p, ok := e.pathOf(where, v); ok {
			return value.Directory(p), true
		}
	case value.BuildRuleDefType:
		r, ok := v.(value.BuildRuleDef)
		return r, ok
	case value.ActionRuleDefType:
		r, ok := v.(value.ActionRuleDef)
		return r, ok
	case value.TypeType:
		t, ok := v.(value.TypeValue)
		return t, ok
	}
	return nil, false
}

// pathOf returns the absolute path named by a string or path value.
func (e *Evaluator) pathOf(where task.Where, v value.Value) (string, bool) {
	var p string
	switch v := v.(type) {
	case value.String:
		p = string(v)
	case value.Path:
		p = string(v)
	case value.File:
		p = string(v)
	case value.Directory:
		p = string(v)
	default:
		return "", false
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(e.baseDirectory(where), p)
	}
	return filepath.Clean(p), true
}

func (e *Evaluator) castEnum(v value.Value, typ value.EnumType) (value.Value, bool) {
	var member string
	switch v := v.(type) {
	case value.Enum:
		if v.Package == typ.Package && v.Enum == typ.Name {
			return v, true
		}
		return nil, false
	case value.String:
		member = string(v)
	default:
		return nil, false
	}
	id, ok := e.graphs.ByPackage(typ.Package)
	if !ok {
		return nil, false
	}
	def, ok := e.graphs.MustGet(id).Graph.Enums[nodeid.Name(typ.Name)]
	if !ok {
		return nil, false
	}
	for _, m := range def.Values {
		if m == member {
			return value.Enum{Package: typ.Package, Enum: typ.Name, Value: member}, true
		}
	}
	return nil, false
}

// customCast applies an `as` cast declared by the class of v. The cast
// expression runs with `this` bound to v and its value is cast again.
func (e *Evaluator) customCast(where task.Where, v value.Value, typ value.Type) (task.Result, error) {
	ci, ok := v.(value.ClassInstance)
	if !ok {
		return nil, &TypeCastError{Value: v, Type: typ}
	}
	class := value.CName{Package: ci.Package, Name: ci.Class}
	return task.Then1(task.EvalClassByName{Class: class}, func(r task.Result) (task.Result, error) {
		dc, ok := r.(task.DataClassResult)
		if !ok {
			return nil, &TypeCastError{Value: v, Type: typ}
		}
		for _, c := range dc.Casts {
			if !castMatches(c.Type, typ) {
				continue
			}
			this := ci
			return thenValue(dc.Where, task.EvalExpr{Where: dc.Where, Expr: c.Expr, This: &this}, func(out value.Value) (task.Result, error) {
				if _, ok := out.(value.ClassInstance); ok && value.Equal(out, v) {
					return nil, &TypeCastError{Value: v, Type: typ}
				}
				return e.cast(dc.Where, out, typ)
			})
		}
		return nil, &TypeCastError{Value: v, Type: typ}
	})
}

func castMatches(declared, wanted value.Type) bool {
	if value.TypeEqual(declared, wanted) {
		return true
	}
	if u, ok := wanted.(value.UnionType); ok {
		for _, member := range u.Types {
			if value.TypeEqual(declared, member) {
				return true
			}
		}
	}
	return false
}

func (e *Evaluator) castAllDirect(where task.Where, vs []value.Value, types []value.Type) ([]value.Value, bool) {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		c, ok := e.castDirect(where, v, types[i])
		if !ok {
			return nil, false
		}
		out[i] = c
	}
	return out, true
}

// castElems casts every element with cast and rebuilds the collection once
// all of them are done.
func (e *Evaluator) castElems(where task.Where, vs []value.Value, types []value.Type, build func([]value.Value) value.Value) (task.Result, error) {
	rs := make([]task.Result, len(vs))
	for i, v := range vs {
		r, err := e.cast(where, v, types[i])
		if err != nil {
			return nil, err
		}
		rs[i] = r
	}
	return task.CollectValues(rs, func(out []value.Value) (task.Result, error) {
		return task.Value(build(out))
	})
}

// hasType reports whether v is of typ without any conversion.
func hasType(v value.Value, typ value.Type) bool {
	switch typ := typ.(type) {
	case value.BasicType:
		switch typ {
		case value.BooleanType:
			_, ok := v.(value.Boolean)
			return ok
		case value.StringType:
			_, ok := v.(value.String)
			return ok
		case value.PathType:
			_, ok := v.(value.Path)
			return ok
		case value.FileType:
			_, ok := v.(value.File)
			return ok
		case value.DirectoryType:
			_, ok := v.(value.Directory)
			return ok
		case value.NoneType:
			_, ok := v.(value.NoneValue)
			return ok
		}
	case value.DataClassType:
		ci, ok := v.(value.ClassInstance)
		return ok && ci.Package == typ.Package && ci.Class == typ.Name
	case value.EnumType:
		en, ok := v.(value.Enum)
		return ok && en.Package == typ.Package && en.Enum == typ.Name
	}
	return false
}

func repeatType(t value.Type, n int) []value.Type {
	types := make([]value.Type, n)
	for i := range types {
		types[i] = t
	}
	return types
}

func tupleElems(v value.Value) ([]value.Value, bool) {
	switch v := v.(type) {
	case value.Tuple:
		return v.Values, true
	case value.NamedTuple:
		out := make([]value.Value, len(v.Pairs))
		for i, p := range v.Pairs {
			out[i] = p.Value
		}
		return out, true
	}
	return nil, false
}

// namedTupleElems returns the elements of v in the order of typ. A named
// tuple must have the same names, a plain tuple the same length.
func namedTupleElems(v value.Value, typ value.NamedTupleType) ([]value.Value, bool) {
	switch v := v.(type) {
	case value.Tuple:
		if len(v.Values) == len(typ.Pairs) {
			return v.Values, true
		}
	case value.NamedTuple:
		if len(v.Pairs) != len(typ.Pairs) {
			return nil, false
		}
		out := make([]value.Value, len(typ.Pairs))
		for i, p := range typ.Pairs {
			if v.Pairs[i].Name != p.Name {
				return nil, false
			}
			out[i] = v.Pairs[i].Value
		}
		return out, true
	}
	return nil, false
}

func namedTuple(typ value.NamedTupleType, vs []value.Value) value.Value {
	pairs := make([]value.NamedPair, len(vs))
	for i, v := range vs {
		pairs[i] = value.NamedPair{Name: typ.Pairs[i].Name, Value: v}
	}
	return value.NewNamedTuple(pairs...)
}
