package render

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is wrapped by every SyntaxError.
var ErrSyntax = errors.New("template syntax error")

// SyntaxError reports a malformed template.
type SyntaxError struct {
	Offset int
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v at line %d, column %d: %s", ErrSyntax, e.Line, e.Column, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func errorAt(src string, offset int, format string, a ...any) *SyntaxError {
	if offset > len(src) {
		offset = len(src)
	}
	before := src[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndexByte(before, '\n')
	return &SyntaxError{Offset: offset, Line: line, Column: col, Msg: fmt.Sprintf(format, a...)}
}

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokIdent
	tokPipe
	tokTilde
	tokComma
	tokDot
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokMinus
	tokAssign
	tokClose
)

var punctuation = map[byte]tokenKind{
	'|': tokPipe,
	'~': tokTilde,
	',': tokComma,
	'.': tokDot,
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBracket,
	']': tokRBracket,
	'-': tokMinus,
	'=': tokAssign,
}

func (k tokenKind) String() string {
	switch k {
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokIdent:
		return "name"
	case tokClose:
		return "'}}'"
	}
	for c, kind := range punctuation {
		if kind == k {
			return fmt.Sprintf("'%c'", c)
		}
	}
	return "token"
}

type token struct {
	kind tokenKind
	val  string
	pos  int
	// trim is set on a closing '-}}'
	trim bool
}

// lexExpr tokenizes the inside of a {{ }} block starting at pos, up to and
// including the closing braces. It returns the offset right after them.
func lexExpr(src string, pos int) ([]token, int, error) {
	var toks []token
	for {
		for pos < len(src) && isSpace(src[pos]) {
			pos++
		}
		if pos >= len(src) {
			return nil, pos, errorAt(src, pos, "unclosed expression, expected '}}'")
		}

		rest := src[pos:]
		c := src[pos]
		switch {
		case strings.HasPrefix(rest, "-}}"):
			return append(toks, token{kind: tokClose, pos: pos, trim: true}), pos + 3, nil
		case strings.HasPrefix(rest, "}}"):
			return append(toks, token{kind: tokClose, pos: pos}), pos + 2, nil
		case c == '\'' || c == '"':
			s, next, err := lexString(src, pos)
			if err != nil {
				return nil, pos, err
			}
			toks = append(toks, token{kind: tokString, val: s, pos: pos})
			pos = next
		case isDigit(c):
			start := pos
			for pos < len(src) && isDigit(src[pos]) {
				pos++
			}
			if pos+1 < len(src) && src[pos] == '.' && isDigit(src[pos+1]) {
				pos++
				for pos < len(src) && isDigit(src[pos]) {
					pos++
				}
			}
			toks = append(toks, token{kind: tokNumber, val: src[start:pos], pos: start})
		case isIdentStart(c):
			start := pos
			for pos < len(src) && isIdentPart(src[pos]) {
				pos++
			}
			toks = append(toks, token{kind: tokIdent, val: src[start:pos], pos: start})
		default:
			kind, ok := punctuation[c]
			if !ok {
				return nil, pos, errorAt(src, pos, "unexpected character %q", c)
			}
			toks = append(toks, token{kind: kind, val: string(c), pos: pos})
			pos++
		}
	}
}

// lexString reads a quoted string starting at pos.
func lexString(src string, pos int) (string, int, error) {
	quote := src[pos]
	var b strings.Builder
	for i := pos + 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(src):
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(src[i])
			default:
				b.WriteByte('\\')
				b.WriteByte(src[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", pos, errorAt(src, pos, "unterminated string")
}

func isSpace(c byte) bool      { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
