package parser

import "github.com/specialistvlad/bibixgo/internal/ast"

func (p *parser) typeExpr() (ast.TypeExpr, error) {
	if !p.at(tokLBrace) {
		return p.noUnionType()
	}
	u := &ast.UnionType{Base: p.node()}
	p.advance()
	err := p.separated(tokRBrace, func() error {
		t, err := p.noUnionType()
		u.Elems = append(u.Elems, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(u.Elems) == 0 {
		return nil, p.errorf(u.Range.Start, "empty union type")
	}
	p.done(&u.Base)
	return u, nil
}

func (p *parser) noUnionType() (ast.TypeExpr, error) {
	if p.at(tokLParen) {
		return p.tupleType()
	}
	base := p.node()
	tokens, err := p.typeName()
	if err != nil {
		return nil, err
	}
	if !p.at(tokLAngle) {
		t := &ast.NameType{Base: base, Tokens: tokens}
		p.done(&t.Base)
		return t, nil
	}
	if len(tokens) != 1 {
		return nil, p.errorf(base.Range.Start, "type parameters on a qualified name")
	}
	c := &ast.CollectionType{Base: base, Name: tokens[0]}
	p.advance()
	err = p.separated(tokRAngle, func() error {
		t, err := p.typeExpr()
		c.Params = append(c.Params, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.done(&c.Base)
	return c, nil
}

// typeName accepts `none` in addition to ordinary names.
func (p *parser) typeName() ([]string, error) {
	if p.atKeyword("none") {
		p.advance()
		return []string{"none"}, nil
	}
	return p.dottedName()
}

func (p *parser) tupleType() (ast.TypeExpr, error) {
	base := p.node()
	p.advance()
	if p.at(tokIdent) && p.peekAt(1).typ == tokColon {
		nt := &ast.NamedTupleType{Base: base}
		err := p.separated(tokRParen, func() error {
			elem := &ast.NamedType{Base: p.node()}
			name, err := p.ident()
			if err != nil {
				return err
			}
			elem.Name = name
			p.advance()
			if elem.Type, err = p.typeExpr(); err != nil {
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
	t := &ast.TupleType{Base: base}
	err := p.separated(tokRParen, func() error {
		e, err := p.typeExpr()
		t.Elems = append(t.Elems, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.done(&t.Base)
	return t, nil
}
