package parser

import (
	"strings"

	"github.com/specialistvlad/bibixgo/internal/ast"
)

var escapes = map[byte]rune{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'b':  '\b',
	'f':  '\f',
	'\\': '\\',
	'"':  '"',
	'$':  '$',
	'\'': '\'',
}

// stringLiteral splits the raw content of a string token into literal
// chunks, escapes and `$name` / `${expr}` templates.
func (p *parser) stringLiteral() (ast.Expr, error) {
	tok := p.advance()
	lit := &ast.StringLiteral{Base: p.nodeAt(tok.start)}
	cur := newLexer(p.src[:tok.contentStart.Offset+len(tok.text)], tok.contentStart)
	end := tok.contentStart.Offset + len(tok.text)

	var chars strings.Builder
	var charsStart ast.Pos
	flush := func() {
		if chars.Len() == 0 {
			return
		}
		c := &ast.JustChars{Base: p.nodeAt(charsStart), Text: chars.String()}
		c.Range.End = cur.pos()
		lit.Elems = append(lit.Elems, c)
		chars.Reset()
	}

	for cur.off < end {
		c := cur.src[cur.off]
		switch {
		case c == '\\':
			flush()
			start := cur.pos()
			cur.advance()
			code, ok := escapes[cur.src[cur.off]]
			if !ok {
				return nil, p.errorf(start, "unknown escape sequence \\%c", cur.src[cur.off])
			}
			cur.advance()
			e := &ast.EscapeChar{Base: p.nodeAt(start), Code: code}
			e.Range.End = cur.pos()
			lit.Elems = append(lit.Elems, e)
		case c == '$' && cur.peekByte(1) == '{':
			flush()
			elem, err := p.complexTemplate(cur, end)
			if err != nil {
				return nil, err
			}
			lit.Elems = append(lit.Elems, elem)
		case c == '$' && cur.off+1 < end && isIdentStart(cur.peekByte(1)):
			flush()
			start := cur.pos()
			cur.advance()
			nameStart := cur.off
			for cur.off < end && isIdentPart(cur.src[cur.off]) {
				cur.advance()
			}
			s := &ast.SimpleExpr{Base: p.nodeAt(start), Name: cur.src[nameStart:cur.off]}
			s.Range.End = cur.pos()
			lit.Elems = append(lit.Elems, s)
		default:
			if chars.Len() == 0 {
				charsStart = cur.pos()
			}
			chars.WriteByte(cur.advance())
		}
	}
	flush()
	p.done(&lit.Base)
	return lit, nil
}

// complexTemplate parses `${expr}` starting at the dollar sign, leaving cur
// after the closing brace.
func (p *parser) complexTemplate(cur *lexer, end int) (ast.StringElem, error) {
	start := cur.pos()
	cur.advance()
	cur.advance()
	exprStart := cur.pos()

	// Find the matching brace with the tokenizer so nested strings and
	// braces are skipped correctly.
	depth := 0
	scan := newLexer(cur.src, exprStart)
	closeOff := -1
	for closeOff < 0 {
		tok, err := scan.next()
		if err != nil {
			return nil, err
		}
		switch tok.typ {
		case tokEOF:
			return nil, p.errorf(start, "unterminated template expression")
		case tokLBrace:
			depth++
		case tokRBrace:
			if depth == 0 {
				closeOff = tok.start.Offset
			}
			depth--
		}
	}
	if closeOff > end {
		return nil, p.errorf(start, "unterminated template expression")
	}

	toks, err := tokenize(cur.src[:closeOff], exprStart)
	if err != nil {
		return nil, err
	}
	sub := &parser{src: p.src, toks: toks, ids: p.ids}
	elem := &ast.ComplexExpr{Base: p.nodeAt(start)}
	if elem.Expr, err = sub.expr(); err != nil {
		return nil, err
	}
	if !sub.at(tokEOF) {
		return nil, sub.unexpected("'}'")
	}
	for cur.off <= closeOff {
		cur.advance()
	}
	elem.Range.End = cur.pos()
	return elem, nil
}
