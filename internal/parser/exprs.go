package parser

import (
	"github.com/specialistvlad/bibixgo/internal/ast"
)

// expr parses casts, which bind looser than merges: `a + b as T` casts the
// merged value.
func (p *parser) expr() (ast.Expr, error) {
	start := p.peek().start
	e, err := p.merge()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("as") {
		p.advance()
		c := &ast.CastExpr{Base: p.nodeAt(start), Expr: e}
		if c.CastTo, err = p.noUnionType(); err != nil {
			return nil, err
		}
		p.done(&c.Base)
		e = c
	}
	return e, nil
}

func (p *parser) merge() (ast.Expr, error) {
	start := p.peek().start
	e, err := p.postfix()
	if err != nil {
		return nil, err
	}
	for p.accept(tokPlus) {
		m := &ast.MergeOp{Base: p.nodeAt(start), Lhs: e}
		if m.Rhs, err = p.postfix(); err != nil {
			return nil, err
		}
		p.done(&m.Base)
		e = m
	}
	return e, nil
}

// nameChain returns the tokens of an expression made only of names joined by
// member access.
func nameChain(e ast.Expr) ([]string, bool) {
	switch e := e.(type) {
	case *ast.NameRef:
		return []string{e.Name}, true
	case *ast.MemberAccess:
		first, names := e.FirstNonName()
		return names, first == nil
	}
	return nil, false
}

func (p *parser) postfix() (ast.Expr, error) {
	start := p.peek().start
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(tokDot):
			p.advance()
			m := &ast.MemberAccess{Base: p.nodeAt(start), Target: e}
			if m.Name, err = p.ident(); err != nil {
				return nil, err
			}
			p.done(&m.Base)
			e = m
		case p.at(tokLParen):
			tokens, ok := nameChain(e)
			if !ok {
				return e, nil
			}
			call := &ast.CallExpr{Base: p.nodeAt(start), Name: tokens}
			if err := p.callArgs(call); err != nil {
				return nil, err
			}
			p.done(&call.Base)
			e = call
		default:
			return e, nil
		}
	}
}

func (p *parser) callArgs(call *ast.CallExpr) error {
	p.advance()
	return p.separated(tokRParen, func() error {
		if p.at(tokIdent) && p.peekAt(1).typ == tokColon {
			arg := &ast.NamedArg{Base: p.node()}
			arg.Name = p.advance().text
			p.advance()
			v, err := p.expr()
			if err != nil {
				return err
			}
			arg.Value = v
			p.done(&arg.Base)
			call.Named = append(call.Named, arg)
			return nil
		}
		if len(call.Named) > 0 {
			return p.errorf(p.peek().start, "positional argument after named arguments")
		}
		v, err := p.expr()
		if err != nil {
			return err
		}
		call.Pos = append(call.Pos, v)
		return nil
	})
}

func (p *parser) primary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.typ {
	case tokString:
		return p.stringLiteral()
	case tokLBracket:
		return p.listExpr()
	case tokLParen:
		return p.parenExpr()
	case tokIdent:
		switch tok.text {
		case "true", "false":
			b := &ast.BooleanLiteral{Base: p.node(), Value: tok.text == "true"}
			p.advance()
			p.done(&b.Base)
			return b, nil
		case "none":
			n := &ast.NoneLiteral{Base: p.node()}
			p.advance()
			p.done(&n.Base)
			return n, nil
		case "this":
			t := &ast.This{Base: p.node()}
			p.advance()
			p.done(&t.Base)
			return t, nil
		}
		n := &ast.NameRef{Base: p.node()}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		n.Name = name
		p.done(&n.Base)
		return n, nil
	}
	return nil, p.unexpected("expression")
}

func (p *parser) listExpr() (ast.Expr, error) {
	l := &ast.ListExpr{Base: p.node()}
	p.advance()
	err := p.separated(tokRBracket, func() error {
		elem := &ast.ListElem{Ellipsis: p.accept(tokEllipsis)}
		v, err := p.expr()
		if err != nil {
			return err
		}
		elem.Value = v
		l.Elems = append(l.Elems, elem)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.done(&l.Base)
	return l, nil
}

// parenExpr parses `(e)`, a tuple `(a, b)` or a named tuple `(a: x, b: y)`.
func (p *parser) parenExpr() (ast.Expr, error) {
	base := p.node()
	p.advance()
	if p.at(tokIdent) && p.peekAt(1).typ == tokColon {
		nt := &ast.NamedTupleExpr{Base: base}
		err := p.separated(tokRParen, func() error {
			elem := &ast.NamedExpr{Base: p.node()}
			name, err := p.ident()
			if err != nil {
				return err
			}
			elem.Name = name
			if _, err := p.expect(tokColon); err != nil {
				return err
			}
			if elem.Value, err = p.expr(); err != nil {
				return err
			}
			p.done(&elem.Base)
			nt.Elems = append(nt.Elems, elem)
			return nil
		})
		if err != nil {
			return nil, err
		}
		p.done(&nt.Base)
		return nt, nil
	}
	if p.accept(tokRParen) {
		t := &ast.TupleExpr{Base: base}
		p.done(&t.Base)
		return t, nil
	}
	first, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.accept(tokRParen) {
		paren := &ast.Paren{Base: base, Expr: first}
		p.done(&paren.Base)
		return paren, nil
	}
	if _, err := p.expect(tokComma); err != nil {
		return nil, err
	}
	t := &ast.TupleExpr{Base: base, Elems: []ast.Expr{first}}
	err = p.separated(tokRParen, func() error {
		e, err := p.expr()
		t.Elems = append(t.Elems, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.done(&t.Base)
	return t, nil
}
