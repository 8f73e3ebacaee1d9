package parser

import (
	"fmt"

	"github.com/specialistvlad/bibixgo/internal/ast"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace
	tokLAngle
	tokRAngle
	tokColon
	tokComma
	tokDot
	tokEllipsis
	tokQuestion
	tokAssign
	tokPlus
	tokSemicolon
)

var tokenNames = map[tokenType]string{
	tokEOF:       "end of input",
	tokIdent:     "identifier",
	tokString:    "string",
	tokLParen:    "'('",
	tokRParen:    "')'",
	tokLBracket:  "'['",
	tokRBracket:  "']'",
	tokLBrace:    "'{'",
	tokRBrace:    "'}'",
	tokLAngle:    "'<'",
	tokRAngle:    "'>'",
	tokColon:     "':'",
	tokComma:     "','",
	tokDot:       "'.'",
	tokEllipsis:  "'...'",
	tokQuestion:  "'?'",
	tokAssign:    "'='",
	tokPlus:      "'+'",
	tokSemicolon: "';'",
}

func (t tokenType) String() string {
	return tokenNames[t]
}

type token struct {
	typ tokenType
	// text is the identifier name, or the raw content between the quotes of
	// a string literal.
	text  string
	start ast.Pos
	end   ast.Pos
	// contentStart is the position right after the opening quote.
	contentStart ast.Pos
}

// Error is a syntax error with its source position.
type Error struct {
	Pos ast.Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func newLexer(src string, start ast.Pos) *lexer {
	if start.Line == 0 {
		start = ast.Pos{Offset: 0, Line: 1, Column: 1}
	}
	return &lexer{src: src, off: start.Offset, line: start.Line, col: start.Column}
}

func (l *lexer) pos() ast.Pos {
	return ast.Pos{Offset: l.off, Line: l.line, Column: l.col}
}

func (l *lexer) peekByte(n int) byte {
	if l.off+n >= len(l.src) {
		return 0
	}
	return l.src[l.off+n]
}

func (l *lexer) advance() byte {
	b := l.src[l.off]
	l.off++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func (l *lexer) errorf(pos ast.Pos, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) skipSpaceAndComments() error {
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekByte(1) == '/':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance()
			}
		case c == '/' && l.peekByte(1) == '*':
			start := l.pos()
			l.advance()
			l.advance()
			for {
				if l.off >= len(l.src) {
					return l.errorf(start, "unterminated block comment")
				}
				if l.src[l.off] == '*' && l.peekByte(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

var punctuation = map[byte]tokenType{
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBracket,
	']': tokRBracket,
	'{': tokLBrace,
	'}': tokRBrace,
	'<': tokLAngle,
	'>': tokRAngle,
	':': tokColon,
	',': tokComma,
	'?': tokQuestion,
	'=': tokAssign,
	'+': tokPlus,
	';': tokSemicolon,
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	start := l.pos()
	if l.off >= len(l.src) {
		return token{typ: tokEOF, start: start, end: start}, nil
	}
	c := l.src[l.off]
	switch {
	case isIdentStart(c):
		for l.off < len(l.src) && isIdentPart(l.src[l.off]) {
			l.advance()
		}
		return token{typ: tokIdent, text: l.src[start.Offset:l.off], start: start, end: l.pos()}, nil
	case c == '"':
		return l.scanString(start)
	case c == '.':
		if l.peekByte(1) == '.' && l.peekByte(2) == '.' {
			l.advance()
			l.advance()
			l.advance()
			return token{typ: tokEllipsis, start: start, end: l.pos()}, nil
		}
		l.advance()
		return token{typ: tokDot, start: start, end: l.pos()}, nil
	}
	if typ, ok := punctuation[c]; ok {
		l.advance()
		return token{typ: typ, start: start, end: l.pos()}, nil
	}
	return token{}, l.errorf(start, "unexpected character %q", c)
}

// scanString reads a quoted literal. Template expressions `${...}` may contain
// nested strings and braces, so the scan tracks their depth.
func (l *lexer) scanString(start ast.Pos) (token, error) {
	l.advance()
	contentStart := l.pos()
	depth := 0
	for {
		if l.off >= len(l.src) {
			return token{}, l.errorf(start, "unterminated string literal")
		}
		c := l.src[l.off]
		switch {
		case c == '\\':
			l.advance()
			if l.off >= len(l.src) {
				return token{}, l.errorf(start, "unterminated string literal")
			}
			l.advance()
		case c == '$' && l.peekByte(1) == '{':
			l.advance()
			l.advance()
			depth++
		case depth > 0 && c == '{':
			l.advance()
			depth++
		case depth > 0 && c == '}':
			l.advance()
			depth--
		case depth > 0 && c == '"':
			if _, err := l.scanString(l.pos()); err != nil {
				return token{}, err
			}
		case depth == 0 && c == '"':
			text := l.src[contentStart.Offset:l.off]
			l.advance()
			return token{typ: tokString, text: text, start: start, end: l.pos(), contentStart: contentStart}, nil
		case depth == 0 && c == '\n':
			return token{}, l.errorf(start, "newline in string literal")
		default:
			l.advance()
		}
	}
}

func tokenize(src string, start ast.Pos) ([]token, error) {
	l := newLexer(src, start)
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.typ == tokEOF {
			return toks, nil
		}
	}
}
