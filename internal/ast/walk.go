package ast

// Walk calls fn for n and every node below it, parents first.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch n := n.(type) {
	case *BuildScript:
		for _, d := range n.Defs {
			Walk(d, fn)
		}
	case *ImportAll:
		Walk(n.Source, fn)
	case *ImportFrom:
		Walk(n.Source, fn)
	case *NamespaceDef:
		for _, d := range n.Body {
			Walk(d, fn)
		}
	case *TargetDef:
		Walk(n.Value, fn)
	case *VarDef:
		walkType(n.Type, fn)
		walkExpr(n.Default, fn)
	case *VarRedefs:
		for _, r := range n.Redefs {
			Walk(r, fn)
		}
	case *VarRedef:
		Walk(n.Value, fn)
	case *BuildRuleDef:
		walkParams(n.Params, fn)
		walkType(n.ReturnType, fn)
		Walk(n.Impl, fn)
	case *ActionRuleDef:
		walkParams(n.Params, fn)
		Walk(n.Impl, fn)
	case *ParamDef:
		walkType(n.Type, fn)
		walkExpr(n.Default, fn)
	case *DataClassDef:
		walkParams(n.Fields, fn)
		for _, c := range n.Casts {
			Walk(c, fn)
		}
	case *ClassCastDef:
		Walk(n.CastTo, fn)
		Walk(n.Expr, fn)
	case *ActionDef:
		for _, s := range n.Body {
			Walk(s, fn)
		}
	case *LetStmt:
		Walk(n.Expr, fn)
	case *CastExpr:
		Walk(n.Expr, fn)
		Walk(n.CastTo, fn)
	case *MergeOp:
		Walk(n.Lhs, fn)
		Walk(n.Rhs, fn)
	case *CallExpr:
		for _, e := range n.Pos {
			Walk(e, fn)
		}
		for _, a := range n.Named {
			Walk(a, fn)
		}
	case *NamedArg:
		Walk(n.Value, fn)
	case *ListExpr:
		for _, e := range n.Elems {
			Walk(e.Value, fn)
		}
	case *TupleExpr:
		for _, e := range n.Elems {
			Walk(e, fn)
		}
	case *NamedTupleExpr:
		for _, e := range n.Elems {
			Walk(e, fn)
		}
	case *NamedExpr:
		Walk(n.Value, fn)
	case *MemberAccess:
		Walk(n.Target, fn)
	case *Paren:
		Walk(n.Expr, fn)
	case *StringLiteral:
		for _, e := range n.Elems {
			Walk(e, fn)
		}
	case *ComplexExpr:
		Walk(n.Expr, fn)
	case *CollectionType:
		for _, t := range n.Params {
			Walk(t, fn)
		}
	case *TupleType:
		for _, t := range n.Elems {
			Walk(t, fn)
		}
	case *NamedTupleType:
		for _, t := range n.Elems {
			Walk(t, fn)
		}
	case *NamedType:
		Walk(n.Type, fn)
	case *UnionType:
		for _, t := range n.Elems {
			Walk(t, fn)
		}
	}
}

func walkParams(params []*ParamDef, fn func(Node)) {
	for _, p := range params {
		Walk(p, fn)
	}
}

// walkType and walkExpr skip typed nil interface values of optional fields.
func walkType(t TypeExpr, fn func(Node)) {
	if t != nil {
		Walk(t, fn)
	}
}

func walkExpr(e Expr, fn func(Node)) {
	if e != nil {
		Walk(e, fn)
	}
}
