// Package parser turns build script text into an ast.BuildScript.
package parser

import (
	"fmt"

	"github.com/specialistvlad/bibixgo/internal/ast"
)

// Parse parses a complete build script.
func Parse(src string) (*ast.BuildScript, error) {
	toks, err := tokenize(src, ast.Pos{})
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks, ids: new(int)}
	return p.script()
}

// ParseExpr parses a single expression. Useful for tests and tools.
func ParseExpr(src string) (ast.Expr, error) {
	toks, err := tokenize(src, ast.Pos{})
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks, ids: new(int)}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if !p.at(tokEOF) {
		return nil, p.unexpected("end of expression")
	}
	return e, nil
}

type parser struct {
	src  string
	toks []token
	i    int
	// ids is shared with sub-parsers of string templates.
	ids *int
}

// node reserves the next id and records the start of a node.
func (p *parser) node() ast.Base {
	*p.ids++
	return ast.Base{NodeID: *p.ids, Range: ast.Span{Start: p.peek().start}}
}

func (p *parser) nodeAt(start ast.Pos) ast.Base {
	*p.ids++
	return ast.Base{NodeID: *p.ids, Range: ast.Span{Start: start}}
}

func (p *parser) done(b *ast.Base) {
	if p.i > 0 {
		b.Range.End = p.toks[p.i-1].end
	} else {
		b.Range.End = b.Range.Start
	}
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) at(t tokenType) bool { return p.peek().typ == t }

func (p *parser) atKeyword(kw string) bool {
	tok := p.peek()
	return tok.typ == tokIdent && tok.text == kw
}

func (p *parser) advance() token {
	tok := p.toks[p.i]
	if tok.typ != tokEOF {
		p.i++
	}
	return tok
}

func (p *parser) accept(t tokenType) bool {
	if p.at(t) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.atKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) errorf(pos ast.Pos, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(want string) error {
	tok := p.peek()
	got := tok.typ.String()
	if tok.typ == tokIdent {
		got = fmt.Sprintf("'%s'", tok.text)
	}
	return p.errorf(tok.start, "expected %s, found %s", want, got)
}

func (p *parser) expect(t tokenType) (token, error) {
	if !p.at(t) {
		return token{}, p.unexpected(t.String())
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.unexpected(fmt.Sprintf("'%s'", kw))
	}
	p.advance()
	return nil
}

var reserved = map[string]bool{
	"import": true, "from": true, "as": true, "var": true, "def": true,
	"action": true, "class": true, "super": true, "enum": true,
	"namespace": true, "package": true, "let": true, "this": true,
	"true": true, "false": true, "none": true,
}

func (p *parser) ident() (string, error) {
	tok := p.peek()
	if tok.typ != tokIdent {
		return "", p.unexpected("identifier")
	}
	if reserved[tok.text] {
		return "", p.errorf(tok.start, "'%s' is a reserved word", tok.text)
	}
	p.advance()
	return tok.text, nil
}

func (p *parser) dottedName() ([]string, error) {
	first, err := p.ident()
	if err != nil {
		return nil, err
	}
	tokens := []string{first}
	for p.at(tokDot) && p.peekAt(1).typ == tokIdent {
		p.advance()
		next, err := p.ident()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, next)
	}
	return tokens, nil
}

// separated parses `item (sep item)* sep?` until closer, consuming closer.
func (p *parser) separated(closer tokenType, item func() error) error {
	for !p.at(closer) {
		if err := item(); err != nil {
			return err
		}
		if !p.accept(tokComma) {
			break
		}
	}
	_, err := p.expect(closer)
	return err
}

func (p *parser) script() (*ast.BuildScript, error) {
	s := &ast.BuildScript{Base: p.node()}
	if p.acceptKeyword("package") {
		name, err := p.dottedName()
		if err != nil {
			return nil, err
		}
		s.PackageName = name
	}
	defs, err := p.defs(tokEOF)
	if err != nil {
		return nil, err
	}
	s.Defs = defs
	p.done(&s.Base)
	return s, nil
}

func (p *parser) defs(closer tokenType) ([]ast.Def, error) {
	var defs []ast.Def
	for !p.at(closer) {
		if p.at(tokEOF) {
			return nil, p.unexpected(closer.String())
		}
		d, err := p.def()
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
		p.accept(tokSemicolon)
	}
	return defs, nil
}

func (p *parser) def() (ast.Def, error) {
	tok := p.peek()
	if tok.typ != tokIdent {
		return nil, p.unexpected("definition")
	}
	// A plain `name = expr` is a target even if name looks like a keyword
	// in another position.
	if p.peekAt(1).typ == tokAssign && !reserved[tok.text] {
		return p.targetDef()
	}
	switch tok.text {
	case "import":
		return p.importAll()
	case "from":
		return p.importFrom()
	case "namespace":
		return p.namespaceDef()
	case "var":
		return p.varDef()
	case "def":
		return p.buildRuleDef()
	case "action":
		if p.peekAt(1).typ == tokIdent && p.peekAt(1).text == "def" {
			return p.actionRuleDef()
		}
		return p.actionDef()
	case "class":
		return p.dataClassDef()
	case "super":
		return p.superClassDef()
	case "enum":
		return p.enumDef()
	}
	return nil, p.unexpected("definition")
}

func (p *parser) targetDef() (ast.Def, error) {
	d := &ast.TargetDef{Base: p.node()}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	d.Name = name
	if _, err := p.expect(tokAssign); err != nil {
		return nil, err
	}
	if d.Value, err = p.expr(); err != nil {
		return nil, err
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) importAll() (ast.Def, error) {
	d := &ast.ImportAll{Base: p.node()}
	p.advance()
	src, err := p.postfix()
	if err != nil {
		return nil, err
	}
	d.Source = src
	if p.acceptKeyword("as") {
		if d.Rename, err = p.ident(); err != nil {
			return nil, err
		}
	}
	if _, ok := ast.ImportName(d); !ok {
		return nil, p.errorf(d.Range.Start, "import of a non-name source needs an 'as' alias")
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) importFrom() (ast.Def, error) {
	d := &ast.ImportFrom{Base: p.node()}
	p.advance()
	src, err := p.postfix()
	if err != nil {
		return nil, err
	}
	d.Source = src
	if err := p.expectKeyword("import"); err != nil {
		return nil, err
	}
	if d.Importing, err = p.dottedName(); err != nil {
		return nil, err
	}
	if p.acceptKeyword("as") {
		if d.Rename, err = p.ident(); err != nil {
			return nil, err
		}
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) namespaceDef() (ast.Def, error) {
	d := &ast.NamespaceDef{Base: p.node()}
	p.advance()
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	d.Name = name
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	if d.Body, err = p.defs(tokRBrace); err != nil {
		return nil, err
	}
	p.advance()
	p.done(&d.Base)
	return d, nil
}

// varDef parses `var name: type (= default)?` or one or more redefinitions
// `var a.b = expr, c.d = expr`.
func (p *parser) varDef() (ast.Def, error) {
	start := p.peek().start
	p.advance()
	if p.peekAt(1).typ == tokColon {
		d := &ast.VarDef{Base: p.nodeAt(start)}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		d.Name = name
		p.advance()
		if d.Type, err = p.typeExpr(); err != nil {
			return nil, err
		}
		if p.accept(tokAssign) {
			if d.Default, err = p.expr(); err != nil {
				return nil, err
			}
		}
		p.done(&d.Base)
		return d, nil
	}
	d := &ast.VarRedefs{Base: p.nodeAt(start)}
	for {
		r := &ast.VarRedef{Base: p.node()}
		name, err := p.dottedName()
		if err != nil {
			return nil, err
		}
		if len(name) < 2 {
			return nil, p.errorf(r.Range.Start, "variable redefinition needs a qualified name")
		}
		r.NameTokens = name
		if _, err := p.expect(tokAssign); err != nil {
			return nil, err
		}
		if r.Value, err = p.expr(); err != nil {
			return nil, err
		}
		p.done(&r.Base)
		d.Redefs = append(d.Redefs, r)
		if !p.accept(tokComma) {
			break
		}
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) params() ([]*ast.ParamDef, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var params []*ast.ParamDef
	err := p.separated(tokRParen, func() error {
		param := &ast.ParamDef{Base: p.node()}
		name, err := p.ident()
		if err != nil {
			return err
		}
		param.Name = name
		param.Optional = p.accept(tokQuestion)
		if p.accept(tokColon) {
			if param.Type, err = p.typeExpr(); err != nil {
				return err
			}
		}
		if p.accept(tokAssign) {
			if param.Default, err = p.expr(); err != nil {
				return err
			}
		}
		p.done(&param.Base)
		params = append(params, param)
		return nil
	})
	return params, err
}

func (p *parser) methodRef() (*ast.MethodRef, error) {
	m := &ast.MethodRef{Base: p.node()}
	var err error
	if m.TargetName, err = p.dottedName(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return nil, err
	}
	if m.ClassName, err = p.dottedName(); err != nil {
		return nil, err
	}
	if p.accept(tokColon) {
		if m.MethodName, err = p.ident(); err != nil {
			return nil, err
		}
	}
	p.done(&m.Base)
	return m, nil
}

func (p *parser) buildRuleDef() (ast.Def, error) {
	d := &ast.BuildRuleDef{Base: p.node()}
	p.advance()
	var err error
	if d.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if d.Params, err = p.params(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return nil, err
	}
	if d.ReturnType, err = p.typeExpr(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokAssign); err != nil {
		return nil, err
	}
	if d.Impl, err = p.methodRef(); err != nil {
		return nil, err
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) actionRuleDef() (ast.Def, error) {
	d := &ast.ActionRuleDef{Base: p.node()}
	p.advance()
	p.advance()
	var err error
	if d.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if d.Params, err = p.params(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokAssign); err != nil {
		return nil, err
	}
	if d.Impl, err = p.methodRef(); err != nil {
		return nil, err
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) actionDef() (ast.Def, error) {
	d := &ast.ActionDef{Base: p.node()}
	p.advance()
	var err error
	if d.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if p.accept(tokLParen) {
		if d.ArgsName, err = p.ident(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
	}
	switch {
	case p.accept(tokAssign):
		call, err := p.callStmt()
		if err != nil {
			return nil, err
		}
		d.Body = []ast.ActionStmt{call}
	case p.accept(tokLBrace):
		for !p.accept(tokRBrace) {
			if p.at(tokEOF) {
				return nil, p.unexpected("'}'")
			}
			stmt, err := p.actionStmt()
			if err != nil {
				return nil, err
			}
			d.Body = append(d.Body, stmt)
			p.accept(tokSemicolon)
		}
	default:
		return nil, p.unexpected("'=' or '{'")
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) actionStmt() (ast.ActionStmt, error) {
	if !p.atKeyword("let") {
		return p.callStmt()
	}
	s := &ast.LetStmt{Base: p.node()}
	p.advance()
	var err error
	if s.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokAssign); err != nil {
		return nil, err
	}
	if s.Expr, err = p.expr(); err != nil {
		return nil, err
	}
	p.done(&s.Base)
	return s, nil
}

func (p *parser) callStmt() (*ast.CallExpr, error) {
	start := p.peek().start
	e, err := p.postfix()
	if err != nil {
		return nil, err
	}
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return nil, p.errorf(start, "action statement must be a rule call")
	}
	return call, nil
}

func (p *parser) dataClassDef() (ast.Def, error) {
	d := &ast.DataClassDef{Base: p.node()}
	p.advance()
	var err error
	if d.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if d.Fields, err = p.params(); err != nil {
		return nil, err
	}
	if p.accept(tokLBrace) {
		for !p.accept(tokRBrace) {
			c := &ast.ClassCastDef{Base: p.node()}
			if err := p.expectKeyword("as"); err != nil {
				return nil, err
			}
			if c.CastTo, err = p.typeExpr(); err != nil {
				return nil, err
			}
			if _, err := p.expect(tokAssign); err != nil {
				return nil, err
			}
			if c.Expr, err = p.expr(); err != nil {
				return nil, err
			}
			p.done(&c.Base)
			d.Casts = append(d.Casts, c)
			if !p.accept(tokComma) {
				p.accept(tokSemicolon)
			}
		}
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) nameList() ([]string, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	var names []string
	err := p.separated(tokRBrace, func() error {
		name, err := p.ident()
		names = append(names, name)
		return err
	})
	return names, err
}

func (p *parser) superClassDef() (ast.Def, error) {
	d := &ast.SuperClassDef{Base: p.node()}
	p.advance()
	if err := p.expectKeyword("class"); err != nil {
		return nil, err
	}
	var err error
	if d.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if d.Subs, err = p.nameList(); err != nil {
		return nil, err
	}
	p.done(&d.Base)
	return d, nil
}

func (p *parser) enumDef() (ast.Def, error) {
	d := &ast.EnumDef{Base: p.node()}
	p.advance()
	var err error
	if d.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if d.Values, err = p.nameList(); err != nil {
		return nil, err
	}
	if len(d.Values) == 0 {
		return nil, p.errorf(d.Range.Start, "enum %s has no values", d.Name)
	}
	p.done(&d.Base)
	return d, nil
}
