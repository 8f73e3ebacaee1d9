package graph

import (
	"fmt"
	"reflect"

	"github.com/specialistvlad/bibixgo/internal/ast"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// Options configure graph construction.
type Options struct {
	// PreloadedPlugins are the names of plugins visible without an import.
	PreloadedPlugins map[string]bool
	// PreludeNames are the names exported by the prelude.
	PreludeNames map[string]bool
	// NativeAllowed permits `native:Class` rule implementations. Only plugin
	// scripts backed by compiled-in rules may use it.
	NativeAllowed bool
}

// Build constructs the graph model of a parsed script. Construction fails
// fast on duplicate names, unresolvable names and reference cycles.
func Build(script *ast.BuildScript, opts Options) (*BuildGraph, error) {
	table, err := NewNameLookupTable(script)
	if err != nil {
		return nil, err
	}
	g := &BuildGraph{
		PackageName:        joinTokens(script.PackageName),
		Targets:            map[nodeid.Name]ExprID{},
		BuildRules:         map[nodeid.Name]*BuildRuleDef{},
		ActionRules:        map[nodeid.Name]*ActionRuleDef{},
		Actions:            map[nodeid.Name]*ActionDef{},
		Vars:               map[nodeid.Name]*VarDef{},
		DataClasses:        map[nodeid.Name]*DataClassDef{},
		SuperClasses:       map[nodeid.Name]*SuperClassDef{},
		Enums:              map[nodeid.Name]*EnumDef{},
		ImportAlls:         map[nodeid.Name]*ImportAllDef{},
		ImportFroms:        map[nodeid.Name]*ImportFromDef{},
		VarRedefs:          map[nodeid.Name]map[nodeid.Name]ExprID{},
		PreloadedVarRedefs: map[string]map[nodeid.Name]ExprID{},
		Exprs: ExprGraph{
			Nodes:     map[ExprID]ExprNode{},
			Edges:     map[ExprID][]ExprID{},
			TypeEdges: map[ExprID][]TypeID{},
		},
		Types: TypeGraph{
			Nodes: map[TypeID]TypeNode{},
			Edges: map[TypeID][]TypeID{},
		},
		Names: table,
	}
	b := &builder{g: g, opts: opts}
	if err := b.addDefs(script.Defs, &buildContext{scope: NewRootScope(table)}, true); err != nil {
		return nil, err
	}
	if err := checkCycles(g); err != nil {
		return nil, err
	}
	return g, nil
}

type builder struct {
	g    *BuildGraph
	opts Options
}

type buildContext struct {
	scope       *Scope
	thisAllowed bool
	// action and lets are set inside action bodies.
	action nodeid.Name
	lets   map[string]bool
	// actionID is the syntax id of the enclosing action.
	actionID int
	// importing is the import whose source is being added.
	importing ast.Def
}

func (c *buildContext) name(name string) nodeid.Name {
	return nodeid.NewName(append(append([]string{}, c.scope.Path...), name)...)
}

func (c *buildContext) inner(ns string) *buildContext {
	next := *c
	next.scope = c.scope.Enter(ns)
	return &next
}

func (c *buildContext) importSource(def ast.Def) *buildContext {
	next := *c
	next.importing = def
	return &next
}

func (b *builder) addDefs(defs []ast.Def, ctx *buildContext, isRoot bool) error {
	for _, def := range defs {
		if err := b.addDef(def, ctx, isRoot); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addDef(def ast.Def, ctx *buildContext, isRoot bool) error {
	switch d := def.(type) {
	case *ast.ImportAll:
		name, _ := ast.ImportName(d)
		src, err := b.addExpr(d.Source, ctx.importSource(d))
		if err != nil {
			return err
		}
		b.g.ImportAlls[ctx.name(name)] = &ImportAllDef{Def: d, Source: src}

	case *ast.ImportFrom:
		name, _ := ast.ImportName(d)
		src, err := b.addExpr(d.Source, ctx.importSource(d))
		if err != nil {
			return err
		}
		b.g.ImportFroms[ctx.name(name)] = &ImportFromDef{Def: d, Source: src, Importing: d.Importing}

	case *ast.NamespaceDef:
		return b.addDefs(d.Body, ctx.inner(d.Name), false)

	case *ast.TargetDef:
		v, err := b.addExpr(d.Value, ctx)
		if err != nil {
			return err
		}
		b.g.Targets[ctx.name(d.Name)] = v

	case *ast.VarDef:
		if d.Type == nil {
			return scriptErrorf(d, "variable %s has no type", d.Name)
		}
		t, err := b.addType(d.Type, ctx)
		if err != nil {
			return err
		}
		var dflt ExprID
		if d.Default != nil {
			if dflt, err = b.addExpr(d.Default, ctx); err != nil {
				return err
			}
		}
		b.g.Vars[ctx.name(d.Name)] = &VarDef{Def: d, Name: ctx.name(d.Name), Type: t, Default: dflt}

	case *ast.VarRedefs:
		if !isRoot {
			return scriptErrorf(d, "variable redefinitions are only allowed at the root of a script")
		}
		for _, redef := range d.Redefs {
			if err := b.addVarRedef(redef, ctx); err != nil {
				return err
			}
		}

	case *ast.BuildRuleDef:
		params, err := b.addParams(d.Params, ctx)
		if err != nil {
			return err
		}
		ret, err := b.addType(d.ReturnType, ctx)
		if err != nil {
			return err
		}
		impl, err := b.addImplTarget(d.Impl, ctx)
		if err != nil {
			return err
		}
		b.g.BuildRules[ctx.name(d.Name)] = &BuildRuleDef{
			Def:        d,
			Name:       ctx.name(d.Name),
			Params:     params,
			ReturnType: ret,
			ImplTarget: impl,
			ImplClass:  joinTokens(d.Impl.ClassName),
			ImplMethod: d.Impl.MethodName,
		}

	case *ast.ActionRuleDef:
		params, err := b.addParams(d.Params, ctx)
		if err != nil {
			return err
		}
		impl, err := b.addImplTarget(d.Impl, ctx)
		if err != nil {
			return err
		}
		b.g.ActionRules[ctx.name(d.Name)] = &ActionRuleDef{
			Def:        d,
			Name:       ctx.name(d.Name),
			Params:     params,
			ImplTarget: impl,
			ImplClass:  joinTokens(d.Impl.ClassName),
			ImplMethod: d.Impl.MethodName,
		}

	case *ast.DataClassDef:
		fields, err := b.addParams(d.Fields, ctx)
		if err != nil {
			return err
		}
		class := &DataClassDef{Def: d, Name: ctx.name(d.Name), Fields: fields}
		thisCtx := *ctx
		thisCtx.thisAllowed = true
		for _, c := range d.Casts {
			t, err := b.addType(c.CastTo, ctx)
			if err != nil {
				return err
			}
			e, err := b.addExpr(c.Expr, &thisCtx)
			if err != nil {
				return err
			}
			class.Casts = append(class.Casts, ClassCast{Type: t, Expr: e})
		}
		b.g.DataClasses[class.Name] = class

	case *ast.SuperClassDef:
		if len(d.Subs) == 0 {
			return scriptErrorf(d, "super class %s has no sub types", d.Name)
		}
		for _, sub := range d.Subs {
			entry, ok := ctx.scope.Table.Names[sub]
			if !ok {
				return &NameNotFoundError{Tokens: []string{sub}, Pos: d.Range.Start}
			}
			if entry.Kind != DataClassEntry && entry.Kind != SuperClassEntry {
				return scriptErrorf(d, "sub type %s of super class %s is a %s, not a class", sub, d.Name, entry.Kind)
			}
		}
		b.g.SuperClasses[ctx.name(d.Name)] = &SuperClassDef{Def: d, Name: ctx.name(d.Name), Subs: d.Subs}

	case *ast.EnumDef:
		b.g.Enums[ctx.name(d.Name)] = &EnumDef{Def: d, Name: ctx.name(d.Name), Values: d.Values}

	case *ast.ActionDef:
		return b.addAction(d, ctx)

	default:
		return fmt.Errorf("unsupported definition %T", def)
	}
	return nil
}

func (b *builder) addVarRedef(redef *ast.VarRedef, ctx *buildContext) error {
	var redefs map[nodeid.Name]ExprID
	var varName nodeid.Name
	switch res := ctx.scope.Lookup(redef.NameTokens, b.opts.PreloadedPlugins, b.opts.PreludeNames).(type) {
	case InImport:
		if len(res.Remaining) == 0 {
			return scriptErrorf(redef, "variable redefinition must name a variable inside %s", res.Import.Name)
		}
		if b.g.VarRedefs[res.Import.Name] == nil {
			b.g.VarRedefs[res.Import.Name] = map[nodeid.Name]ExprID{}
		}
		redefs = b.g.VarRedefs[res.Import.Name]
		varName = nodeid.NewName(res.Remaining...)
	case PreloadedPluginName:
		if len(res.Remaining) == 0 {
			return scriptErrorf(redef, "variable redefinition must name a variable inside %s", res.Plugin)
		}
		if b.g.PreloadedVarRedefs[res.Plugin] == nil {
			b.g.PreloadedVarRedefs[res.Plugin] = map[nodeid.Name]ExprID{}
		}
		redefs = b.g.PreloadedVarRedefs[res.Plugin]
		varName = nodeid.NewName(res.Remaining...)
	case NotFound:
		return &NameNotFoundError{Tokens: redef.NameTokens, Pos: redef.Range.Start}
	default:
		return scriptErrorf(redef, "%s does not name a variable of an imported project", joinTokens(redef.NameTokens))
	}
	if _, dup := redefs[varName]; dup {
		return scriptErrorf(redef, "duplicate variable redefinition: %s", joinTokens(redef.NameTokens))
	}
	v, err := b.addExpr(redef.Value, ctx)
	if err != nil {
		return err
	}
	redefs[varName] = v
	return nil
}

func (b *builder) addParams(params []*ast.ParamDef, ctx *buildContext) ([]ParamDef, error) {
	out := make([]ParamDef, 0, len(params))
	seen := map[string]bool{}
	for _, p := range params {
		if seen[p.Name] {
			return nil, &DuplicateNameError{Name: p.Name, Pos: p.Range.Start}
		}
		seen[p.Name] = true
		if p.Type == nil {
			return nil, scriptErrorf(p, "parameter %s has no type", p.Name)
		}
		t, err := b.addType(p.Type, ctx)
		if err != nil {
			return nil, err
		}
		param := ParamDef{Name: p.Name, Optional: p.Optional, Type: t}
		if p.Default != nil {
			// Defaults are cast to the declared type when evaluated.
			raw, err := b.addExpr(p.Default, ctx)
			if err != nil {
				return nil, err
			}
			param.Default, err = b.addNode(&ValueCast{
				exprBase: exprBase{NodeID: ExprID(fmt.Sprintf("default:%d", p.ID()))},
				Value:    raw,
				Type:     t,
			})
			if err != nil {
				return nil, err
			}
			b.addEdge(param.Default, raw)
			b.addTypeEdge(param.Default, t)
		}
		out = append(out, param)
	}
	return out, nil
}

func (b *builder) addImplTarget(impl *ast.MethodRef, ctx *buildContext) (ExprID, error) {
	if len(impl.TargetName) == 1 && impl.TargetName[0] == "native" {
		if !b.opts.NativeAllowed {
			return "", scriptErrorf(impl, "native rule implementations are only allowed in plugins")
		}
		return "", nil
	}
	return b.lookupExprName(impl.TargetName, ctx, impl)
}

func (b *builder) addAction(d *ast.ActionDef, ctx *buildContext) error {
	action := &ActionDef{Def: d, Name: ctx.name(d.Name), ArgsName: d.ArgsName}
	actCtx := *ctx
	actCtx.action = action.Name
	actCtx.actionID = d.ID()
	actCtx.lets = map[string]bool{}
	if d.ArgsName != "" {
		actCtx.lets[d.ArgsName] = true
	}
	for _, stmt := range d.Body {
		switch s := stmt.(type) {
		case *ast.LetStmt:
			e, err := b.addExpr(s.Expr, &actCtx)
			if err != nil {
				return err
			}
			if actCtx.lets[s.Name] {
				return &DuplicateNameError{Name: s.Name, Pos: s.Range.Start}
			}
			actCtx.lets[s.Name] = true
			action.Stmts = append(action.Stmts, ActionStmt{Let: s.Name, Expr: e})
		case *ast.CallExpr:
			e, err := b.addExpr(s, &actCtx)
			if err != nil {
				return err
			}
			action.Stmts = append(action.Stmts, ActionStmt{Expr: e})
		}
	}
	b.g.Actions[action.Name] = action
	return nil
}

func (b *builder) addNode(n ExprNode) (ExprID, error) {
	if existing, ok := b.g.Exprs.Nodes[n.ID()]; ok {
		if !reflect.DeepEqual(existing, n) {
			return "", fmt.Errorf("conflicting expression nodes for id %s", n.ID())
		}
		return n.ID(), nil
	}
	b.g.Exprs.Nodes[n.ID()] = n
	return n.ID(), nil
}

func (b *builder) addEdge(from, to ExprID) {
	for _, e := range b.g.Exprs.Edges[from] {
		if e == to {
			return
		}
	}
	b.g.Exprs.Edges[from] = append(b.g.Exprs.Edges[from], to)
}

func (b *builder) addTypeEdge(from ExprID, to TypeID) {
	for _, e := range b.g.Exprs.TypeEdges[from] {
		if e == to {
			return
		}
	}
	b.g.Exprs.TypeEdges[from] = append(b.g.Exprs.TypeEdges[from], to)
}

func (b *builder) addTypeNode(n TypeNode) (TypeID, error) {
	if existing, ok := b.g.Types.Nodes[n.ID()]; ok {
		if !reflect.DeepEqual(existing, n) {
			return "", fmt.Errorf("conflicting type nodes for id %s", n.ID())
		}
		return n.ID(), nil
	}
	b.g.Types.Nodes[n.ID()] = n
	return n.ID(), nil
}

func (b *builder) addTypeGraphEdge(from, to TypeID) {
	for _, e := range b.g.Types.Edges[from] {
		if e == to {
			return
		}
	}
	b.g.Types.Edges[from] = append(b.g.Types.Edges[from], to)
}

// lookupExprName turns a dotted name into a reference node.
func (b *builder) lookupExprName(tokens []string, ctx *buildContext, at ast.Node) (ExprID, error) {
	if ctx.lets != nil && ctx.lets[tokens[0]] {
		let, err := b.addNode(&ActionLocalLet{
			exprBase: exprBase{NodeID: ExprID(fmt.Sprintf("let:%d:%s", ctx.actionID, tokens[0]))},
			Action:   ctx.action,
			Name:     tokens[0],
		})
		if err != nil || len(tokens) == 1 {
			return let, err
		}
		access, err := b.addNode(&MemberAccessNode{
			exprBase: exprBase{NodeID: ExprID(fmt.Sprintf("letmember:%d:%s", ctx.actionID, joinTokens(tokens)))},
			Target:   let,
			Members:  tokens[1:],
		})
		if err != nil {
			return "", err
		}
		b.addEdge(access, let)
		return access, nil
	}

	var n ExprNode
	switch res := ctx.scope.LookupExcept(tokens, b.opts.PreloadedPlugins, b.opts.PreludeNames, ctx.importing).(type) {
	case EnumValueFound:
		n = &LocalEnumValue{
			exprBase: exprBase{NodeID: ExprID(fmt.Sprintf("enumvalue:%d:%s", res.Enum.Def.ID(), res.Value))},
			Enum:     res.Enum.Name,
			Value:    res.Value,
		}
	case EntryFound:
		entry := res.Entry
		switch def := entry.Def.(type) {
		case *ast.TargetDef:
			n = &LocalTargetRef{exprBase: exprBase{NodeID: refID("target", def.ID())}, Name: entry.Name, Def: def}
		case *ast.BuildRuleDef:
			n = &LocalBuildRuleRef{exprBase: exprBase{NodeID: refID("rule", def.ID())}, Name: entry.Name, Def: def}
		case *ast.ActionRuleDef:
			n = &LocalActionRuleRef{exprBase: exprBase{NodeID: refID("actionrule", def.ID())}, Name: entry.Name, Def: def}
		case *ast.ActionDef:
			n = &LocalActionRef{exprBase: exprBase{NodeID: refID("action", def.ID())}, Name: entry.Name, Def: def}
		case *ast.VarDef:
			n = &LocalVarRef{exprBase: exprBase{NodeID: refID("var", def.ID())}, Name: entry.Name, Def: def}
		case *ast.DataClassDef:
			n = &LocalDataClassRef{exprBase: exprBase{NodeID: refID("class", def.ID())}, Name: entry.Name, Def: def}
		default:
			return "", scriptErrorf(at, "%s %s cannot be used as a value", entry.Kind, entry.Name)
		}
	case InImport:
		name := nodeid.NewName(res.Remaining...)
		n = &ImportedExpr{
			exprBase: exprBase{NodeID: ExprID(importedID("imported", res.Import.Name.String(), name))},
			Import:   res.Import.Name,
			Name:     name,
		}
	case PreloadedPluginName:
		name := nodeid.NewName(res.Remaining...)
		n = &ImportedExprFromPreloaded{
			exprBase: exprBase{NodeID: ExprID(importedID("preloaded", res.Plugin, name))},
			Plugin:   res.Plugin,
			Name:     name,
		}
	case PreludeName:
		n = &ImportedExprFromPrelude{
			exprBase:  exprBase{NodeID: ExprID(importedID("prelude", res.Name, nodeid.NewName(res.Remaining...)))},
			Name:      res.Name,
			Remaining: res.Remaining,
		}
	default:
		return "", &NameNotFoundError{Tokens: tokens, Pos: at.Span().Start}
	}
	return b.addNode(n)
}

func (b *builder) addExpr(expr ast.Expr, ctx *buildContext) (ExprID, error) {
	id := astExprID(expr.ID())
	switch e := expr.(type) {
	case *ast.CastExpr:
		v, err := b.addExpr(e.Expr, ctx)
		if err != nil {
			return "", err
		}
		t, err := b.addType(e.CastTo, ctx)
		if err != nil {
			return "", err
		}
		node, err := b.addNode(&ValueCast{exprBase: exprBase{NodeID: id}, Value: v, Type: t})
		if err != nil {
			return "", err
		}
		b.addEdge(node, v)
		b.addTypeEdge(node, t)
		return node, nil

	case *ast.MergeOp:
		lhs, err := b.addExpr(e.Lhs, ctx)
		if err != nil {
			return "", err
		}
		rhs, err := b.addExpr(e.Rhs, ctx)
		if err != nil {
			return "", err
		}
		node, err := b.addNode(&MergeNode{exprBase: exprBase{NodeID: id}, Lhs: lhs, Rhs: rhs})
		if err != nil {
			return "", err
		}
		b.addEdge(node, lhs)
		b.addEdge(node, rhs)
		return node, nil

	case *ast.CallExpr:
		return b.addCall(e, ctx)

	case *ast.ListExpr:
		list := &ListNode{exprBase: exprBase{NodeID: id}}
		for _, elem := range e.Elems {
			v, err := b.addExpr(elem.Value, ctx)
			if err != nil {
				return "", err
			}
			list.Elems = append(list.Elems, ListElem{Value: v, Ellipsis: elem.Ellipsis})
		}
		node, err := b.addNode(list)
		if err != nil {
			return "", err
		}
		for _, elem := range list.Elems {
			b.addEdge(node, elem.Value)
		}
		return node, nil

	case *ast.BooleanLiteral:
		return b.addNode(&BooleanNode{exprBase: exprBase{NodeID: id}, Value: e.Value})

	case *ast.NoneLiteral:
		return b.addNode(&NoneNode{exprBase: exprBase{NodeID: id}})

	case *ast.StringLiteral:
		return b.addString(e, ctx)

	case *ast.MemberAccess:
		first, members := e.FirstNonName()
		if first == nil {
			return b.lookupExprName(members, ctx, e)
		}
		target, err := b.addExpr(first, ctx)
		if err != nil {
			return "", err
		}
		node, err := b.addNode(&MemberAccessNode{exprBase: exprBase{NodeID: id}, Target: target, Members: members})
		if err != nil {
			return "", err
		}
		b.addEdge(node, target)
		return node, nil

	case *ast.NameRef:
		return b.lookupExprName([]string{e.Name}, ctx, e)

	case *ast.Paren:
		return b.addExpr(e.Expr, ctx)

	case *ast.This:
		if !ctx.thisAllowed {
			return "", scriptErrorf(e, "'this' is only allowed in class cast definitions")
		}
		return b.addNode(&ThisRef{exprBase: exprBase{NodeID: id}})

	case *ast.TupleExpr:
		tuple := &TupleNode{exprBase: exprBase{NodeID: id}}
		for _, elem := range e.Elems {
			v, err := b.addExpr(elem, ctx)
			if err != nil {
				return "", err
			}
			tuple.Elems = append(tuple.Elems, v)
		}
		node, err := b.addNode(tuple)
		if err != nil {
			return "", err
		}
		for _, elem := range tuple.Elems {
			b.addEdge(node, elem)
		}
		return node, nil

	case *ast.NamedTupleExpr:
		tuple := &NamedTupleNode{exprBase: exprBase{NodeID: id}}
		seen := map[string]bool{}
		for _, elem := range e.Elems {
			if seen[elem.Name] {
				return "", &DuplicateNameError{Name: elem.Name, Pos: elem.Range.Start}
			}
			seen[elem.Name] = true
			v, err := b.addExpr(elem.Value, ctx)
			if err != nil {
				return "", err
			}
			tuple.Elems = append(tuple.Elems, NamedExprID{Name: elem.Name, Expr: v})
		}
		node, err := b.addNode(tuple)
		if err != nil {
			return "", err
		}
		for _, elem := range tuple.Elems {
			b.addEdge(node, elem.Expr)
		}
		return node, nil
	}
	return "", fmt.Errorf("unsupported expression %T", expr)
}

// addCall wires a call expression as three layers: one coercion node per
// argument, the call node that binds arguments and invokes the callee, and
// the expression node carrying the call's value.
func (b *builder) addCall(e *ast.CallExpr, ctx *buildContext) (ExprID, error) {
	callee, err := b.lookupExprName(e.Name, ctx, e)
	if err != nil {
		return "", err
	}
	call := &CallExprCallNode{
		exprBase: exprBase{NodeID: ExprID(fmt.Sprintf("call:%d", e.ID()))},
		Callee:   callee,
	}
	for i, argExpr := range e.Pos {
		arg, err := b.addExpr(argExpr, ctx)
		if err != nil {
			return "", err
		}
		coercion, err := b.addNode(&ParamCoercion{
			exprBase: exprBase{NodeID: ExprID(fmt.Sprintf("coerce:%s:%s:%d", arg, callee, i))},
			Value:    arg,
			Callee:   callee,
			Pos:      i,
		})
		if err != nil {
			return "", err
		}
		b.addEdge(coercion, callee)
		b.addEdge(coercion, arg)
		call.Pos = append(call.Pos, coercion)
	}
	seen := map[string]bool{}
	for _, named := range e.Named {
		if seen[named.Name] {
			return "", &DuplicateNameError{Name: named.Name, Pos: named.Range.Start}
		}
		seen[named.Name] = true
		arg, err := b.addExpr(named.Value, ctx)
		if err != nil {
			return "", err
		}
		coercion, err := b.addNode(&ParamCoercion{
			exprBase: exprBase{NodeID: ExprID(fmt.Sprintf("coerce:%s:%s:%s", arg, callee, named.Name))},
			Value:    arg,
			Callee:   callee,
			Pos:      -1,
			Named:    named.Name,
		})
		if err != nil {
			return "", err
		}
		b.addEdge(coercion, callee)
		b.addEdge(coercion, arg)
		call.Named = append(call.Named, NamedExprID{Name: named.Name, Expr: coercion})
	}
	callID, err := b.addNode(call)
	if err != nil {
		return "", err
	}
	b.addEdge(callID, callee)
	for _, p := range call.Pos {
		b.addEdge(callID, p)
	}
	for _, p := range call.Named {
		b.addEdge(callID, p.Expr)
	}
	node, err := b.addNode(&CallExprNode{
		exprBase: exprBase{NodeID: astExprID(e.ID())},
		Call:     callID,
		Callee:   callee,
		AST:      e,
	})
	if err != nil {
		return "", err
	}
	b.addEdge(node, callID)
	return node, nil
}

// addString splits a string literal into text and embedded expressions, each
// embedded expression cast to string.
func (b *builder) addString(e *ast.StringLiteral, ctx *buildContext) (ExprID, error) {
	stringType, err := b.addTypeNode(basicTypeNode(value.StringType))
	if err != nil {
		return "", err
	}
	str := &StringNode{exprBase: exprBase{NodeID: astExprID(e.ID())}}
	appendText := func(text string) {
		if n := len(str.Parts); n > 0 && str.Parts[n-1].Expr == "" {
			str.Parts[n-1].Text += text
			return
		}
		str.Parts = append(str.Parts, StringPart{Text: text})
	}
	for _, elem := range e.Elems {
		var v ExprID
		switch el := elem.(type) {
		case *ast.JustChars:
			appendText(el.Text)
			continue
		case *ast.EscapeChar:
			appendText(string(el.Code))
			continue
		case *ast.SimpleExpr:
			if v, err = b.lookupExprName([]string{el.Name}, ctx, el); err != nil {
				return "", err
			}
		case *ast.ComplexExpr:
			if v, err = b.addExpr(el.Expr, ctx); err != nil {
				return "", err
			}
		}
		cast, err := b.addNode(&ValueCast{exprBase: exprBase{NodeID: astExprID(elem.ID())}, Value: v, Type: stringType})
		if err != nil {
			return "", err
		}
		b.addEdge(cast, v)
		b.addTypeEdge(cast, stringType)
		str.Parts = append(str.Parts, StringPart{Expr: cast})
	}
	node, err := b.addNode(str)
	if err != nil {
		return "", err
	}
	for _, p := range str.Parts {
		if p.Expr != "" {
			b.addEdge(node, p.Expr)
		}
	}
	return node, nil
}

func basicTypeNode(t value.BasicType) *BasicTypeNode {
	return &BasicTypeNode{typeBase: typeBase{NodeID: TypeID("basic:" + t.String())}, Type: t}
}

func (b *builder) addType(t ast.TypeExpr, ctx *buildContext) (TypeID, error) {
	id := astTypeID(t.ID())
	switch te := t.(type) {
	case *ast.CollectionType:
		if len(te.Params) != 1 {
			return "", scriptErrorf(te, "%s type takes exactly one type parameter", te.Name)
		}
		elem, err := b.addType(te.Params[0], ctx)
		if err != nil {
			return "", err
		}
		var node TypeNode
		switch te.Name {
		case "list":
			node = &ListTypeNode{typeBase: typeBase{NodeID: id}, Elem: elem}
		case "set":
			node = &SetTypeNode{typeBase: typeBase{NodeID: id}, Elem: elem}
		default:
			return "", scriptErrorf(te, "unknown collection type %s", te.Name)
		}
		tid, err := b.addTypeNode(node)
		if err != nil {
			return "", err
		}
		b.addTypeGraphEdge(tid, elem)
		return tid, nil

	case *ast.NameType:
		if len(te.Tokens) == 1 {
			if basic, ok := value.BasicTypeByName[te.Tokens[0]]; ok {
				return b.addTypeNode(basicTypeNode(basic))
			}
		}
		return b.lookupTypeName(te, ctx)

	case *ast.TupleType:
		node := &TupleTypeNode{typeBase: typeBase{NodeID: id}}
		for _, elem := range te.Elems {
			et, err := b.addType(elem, ctx)
			if err != nil {
				return "", err
			}
			node.Elems = append(node.Elems, et)
		}
		tid, err := b.addTypeNode(node)
		if err != nil {
			return "", err
		}
		for _, et := range node.Elems {
			b.addTypeGraphEdge(tid, et)
		}
		return tid, nil

	case *ast.NamedTupleType:
		node := &NamedTupleTypeNode{typeBase: typeBase{NodeID: id}}
		for _, elem := range te.Elems {
			et, err := b.addType(elem.Type, ctx)
			if err != nil {
				return "", err
			}
			node.Elems = append(node.Elems, NamedTypeID{Name: elem.Name, Type: et})
		}
		tid, err := b.addTypeNode(node)
		if err != nil {
			return "", err
		}
		for _, et := range node.Elems {
			b.addTypeGraphEdge(tid, et.Type)
		}
		return tid, nil

	case *ast.UnionType:
		node := &UnionTypeNode{typeBase: typeBase{NodeID: id}}
		for _, elem := range te.Elems {
			et, err := b.addType(elem, ctx)
			if err != nil {
				return "", err
			}
			node.Elems = append(node.Elems, et)
		}
		tid, err := b.addTypeNode(node)
		if err != nil {
			return "", err
		}
		for _, et := range node.Elems {
			b.addTypeGraphEdge(tid, et)
		}
		return tid, nil
	}
	return "", fmt.Errorf("unsupported type expression %T", t)
}

func (b *builder) lookupTypeName(te *ast.NameType, ctx *buildContext) (TypeID, error) {
	var node TypeNode
	switch res := ctx.scope.Lookup(te.Tokens, b.opts.PreloadedPlugins, b.opts.PreludeNames).(type) {
	case EntryFound:
		entry := res.Entry
		switch def := entry.Def.(type) {
		case *ast.DataClassDef:
			node = &LocalDataClassTypeRef{typeBase: typeBase{NodeID: typeRefID("classtype", def.ID())}, Name: entry.Name, Def: def}
		case *ast.SuperClassDef:
			node = &LocalSuperClassTypeRef{typeBase: typeBase{NodeID: typeRefID("supertype", def.ID())}, Name: entry.Name, Def: def}
		case *ast.EnumDef:
			node = &LocalEnumTypeRef{typeBase: typeBase{NodeID: typeRefID("enumtype", def.ID())}, Name: entry.Name, Def: def}
		default:
			return "", scriptErrorf(te, "%s %s is not a type", entry.Kind, entry.Name)
		}
	case InImport:
		name := nodeid.NewName(res.Remaining...)
		node = &ImportedType{
			typeBase: typeBase{NodeID: TypeID(importedID("importedtype", res.Import.Name.String(), name))},
			Import:   res.Import.Name,
			Name:     name,
		}
	case PreloadedPluginName:
		name := nodeid.NewName(res.Remaining...)
		node = &ImportedTypeFromPreloaded{
			typeBase: typeBase{NodeID: TypeID(importedID("preloadedtype", res.Plugin, name))},
			Plugin:   res.Plugin,
			Name:     name,
		}
	case PreludeName:
		node = &ImportedTypeFromPrelude{
			typeBase:  typeBase{NodeID: TypeID(importedID("preludetype", res.Name, nodeid.NewName(res.Remaining...)))},
			Name:      res.Name,
			Remaining: res.Remaining,
		}
	default:
		return "", &NameNotFoundError{Tokens: te.Tokens, Pos: te.Range.Start}
	}
	return b.addTypeNode(node)
}
