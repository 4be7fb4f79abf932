package render

import (
	"fmt"
	"strconv"
	"strings"
)

const trimSet = " \t\r\n"

// filterSpec names the parameters of a filter, in positional order.
// The first required ones must always be given.
type filterSpec struct {
	params   []string
	required int
}

var filters = map[string]filterSpec{
	"get":  {params: []string{"default", "template", "strip"}},
	"read": {},
	"json": {},
	"sh":   {},
	"hash": {params: []string{"algorithm"}},
}

// arity describes how many arguments the filter accepts.
func (f filterSpec) arity() string {
	switch {
	case len(f.params) == 0:
		return "no arguments"
	case f.required == len(f.params):
		return fmt.Sprintf("exactly %d argument(s)", f.required)
	case f.required == 0:
		return fmt.Sprintf("at most %d argument(s)", len(f.params))
	}
	return fmt.Sprintf("%d to %d arguments", f.required, len(f.params))
}

type node interface{}

type textNode string

type exprNode struct {
	expr expr
}

type expr interface {
	offset() int
}

type literalExpr struct {
	pos int
	val any
}

type nameExpr struct {
	pos  int
	name string
}

type indexExpr struct {
	pos    int
	target expr
	index  expr
}

type attrExpr struct {
	pos    int
	target expr
	name   string
}

// filterExpr holds one argument slot per filter parameter, nil when the
// argument was not given.
type filterExpr struct {
	pos   int
	input expr
	name  string
	args  []expr
}

type negExpr struct {
	pos     int
	operand expr
}

type concatExpr struct {
	pos   int
	parts []expr
}

func (e literalExpr) offset() int { return e.pos }
func (e nameExpr) offset() int    { return e.pos }
func (e indexExpr) offset() int   { return e.pos }
func (e attrExpr) offset() int    { return e.pos }
func (e filterExpr) offset() int  { return e.pos }
func (e concatExpr) offset() int  { return e.pos }
func (e negExpr) offset() int     { return e.pos }

// Template is a parsed template, reusable across renders.
type Template struct {
	src   string
	nodes []node
}

// Parse parses src. Text outside of {{ }} and {# #} is kept byte for byte.
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	pos := 0
	trimNext := false

	for pos < len(src) {
		idx := nextBlock(src, pos)
		if idx < 0 {
			t.appendText(src[pos:], trimNext, false)
			break
		}
		text := src[pos:idx]

		if src[idx+1] == '#' {
			end := strings.Index(src[idx+2:], "#}")
			if end < 0 {
				return nil, errorAt(src, idx, "unclosed comment, expected '#}'")
			}
			t.appendText(text, trimNext, false)
			trimNext = false
			pos = idx + 2 + end + 2
			continue
		}

		start := idx + 2
		trimPrev := start < len(src) && src[start] == '-'
		if trimPrev {
			start++
		}
		t.appendText(text, trimNext, trimPrev)

		toks, next, err := lexExpr(src, start)
		if err != nil {
			return nil, err
		}
		p := &parser{src: src, toks: toks}
		e, err := p.parseTop(idx)
		if err != nil {
			return nil, err
		}
		t.nodes = append(t.nodes, exprNode{expr: e})
		trimNext = toks[len(toks)-1].trim
		pos = next
	}
	return t, nil
}

func (t *Template) appendText(text string, trimLeft, trimRight bool) {
	if trimLeft {
		text = strings.TrimLeft(text, trimSet)
	}
	if trimRight {
		text = strings.TrimRight(text, trimSet)
	}
	if text != "" {
		t.nodes = append(t.nodes, textNode(text))
	}
}

// nextBlock returns the offset of the next "{{" or "{#" at or after pos.
func nextBlock(src string, pos int) int {
	for i := pos; i+1 < len(src); i++ {
		if src[i] == '{' && (src[i+1] == '{' || src[i+1] == '#') {
			return i
		}
	}
	return -1
}

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokClose {
		p.i++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.unexpected(t, kind.String())
	}
	return t, nil
}

func (p *parser) unexpected(t token, want string) error {
	got := t.kind.String()
	if t.val != "" && (t.kind == tokIdent || t.kind == tokNumber) {
		got += " " + strconv.Quote(t.val)
	}
	return errorAt(p.src, t.pos, "expected %s, got %s", want, got)
}

func (p *parser) parseTop(open int) (expr, error) {
	if p.peek().kind == tokClose {
		return nil, errorAt(p.src, open, "empty expression")
	}
	e, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokClose); err != nil {
		return nil, err
	}
	return e, nil
}

// concat := pipeline ('~' pipeline)*
func (p *parser) parseConcat() (expr, error) {
	first, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokTilde {
		return first, nil
	}
	c := concatExpr{pos: first.offset(), parts: []expr{first}}
	for p.peek().kind == tokTilde {
		p.next()
		part, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		c.parts = append(c.parts, part)
	}
	return c, nil
}

// pipeline := unary ('|' name ['(' args ')'])*
func (p *parser) parsePipeline() (expr, error) {
	e, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPipe {
		p.next()
		name, err := p.expect(tokIdent)
		if err != nil {
			return nil, p.unexpected(name, "filter name")
		}
		spec, ok := filters[name.val]
		if !ok {
			return nil, errorAt(p.src, name.pos, "unknown filter %q", name.val)
		}
		f := filterExpr{pos: name.pos, input: e, name: name.val, args: make([]expr, len(spec.params))}
		given := 0
		if p.peek().kind == tokLParen {
			p.next()
			if given, err = p.parseArgs(name, spec, f.args); err != nil {
				return nil, err
			}
		}
		for i := 0; i < spec.required; i++ {
			if f.args[i] == nil {
				return nil, errorAt(p.src, name.pos, "filter %q takes %s, got %d", name.val, spec.arity(), given)
			}
		}
		e = f
	}
	return e, nil
}

// args := [arg (',' arg)*] ')'
// arg := concat | name '=' concat
//
// parseArgs fills slots, indexed like spec.params, and returns how many
// arguments were given.
func (p *parser) parseArgs(name token, spec filterSpec, slots []expr) (int, error) {
	if p.peek().kind == tokRParen {
		p.next()
		return 0, nil
	}
	given, keywords := 0, false
	for {
		slot := given
		if p.peek().kind == tokIdent && p.toks[p.i+1].kind == tokAssign {
			kw := p.next()
			p.next()
			slot = indexOf(spec.params, kw.val)
			if slot < 0 {
				return 0, errorAt(p.src, kw.pos, "filter %q has no parameter %q", name.val, kw.val)
			}
			if slots[slot] != nil {
				return 0, errorAt(p.src, kw.pos, "filter %q got %q twice", name.val, kw.val)
			}
			keywords = true
		} else if keywords {
			return 0, errorAt(p.src, p.peek().pos, "positional argument after keyword argument")
		}

		a, err := p.parseConcat()
		if err != nil {
			return 0, err
		}
		given++
		if slot >= len(slots) {
			return 0, errorAt(p.src, name.pos, "filter %q takes %s, got %d", name.val, spec.arity(), given+p.countRemainingArgs())
		}
		slots[slot] = a

		t := p.next()
		switch t.kind {
		case tokComma:
			continue
		case tokRParen:
			return given, nil
		default:
			return 0, p.unexpected(t, "',' or ')'")
		}
	}
}

// countRemainingArgs counts the arguments left before the closing ')' of
// the current call, for error messages.
func (p *parser) countRemainingArgs() int {
	n, depth := 0, 0
	for i := p.i; i < len(p.toks) && p.toks[i].kind != tokClose; i++ {
		switch p.toks[i].kind {
		case tokLParen, tokLBracket:
			depth++
		case tokRBracket:
			depth--
		case tokRParen:
			if depth == 0 {
				return n
			}
			depth--
		case tokComma:
			if depth == 0 {
				n++
			}
		}
	}
	return n
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// unary := '-' unary | postfix
func (p *parser) parseUnary() (expr, error) {
	if p.peek().kind != tokMinus {
		return p.parsePostfix()
	}
	t := p.next()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if lit, ok := operand.(literalExpr); ok {
		switch v := lit.val.(type) {
		case int64:
			return literalExpr{pos: t.pos, val: -v}, nil
		case float64:
			return literalExpr{pos: t.pos, val: -v}, nil
		}
	}
	return negExpr{pos: t.pos, operand: operand}, nil
}

// postfix := primary ('[' concat ']' | '.' name)*
func (p *parser) parsePostfix() (expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch t := p.peek(); t.kind {
		case tokLBracket:
			p.next()
			idx, err := p.parseConcat()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			e = indexExpr{pos: t.pos, target: e, index: idx}
		case tokDot:
			p.next()
			name, err := p.expect(tokIdent)
			if err != nil {
				return nil, p.unexpected(name, "attribute name")
			}
			e = attrExpr{pos: t.pos, target: e, name: name.val}
		default:
			return e, nil
		}
	}
}

// primary := string | number | name | '(' concat ')'
func (p *parser) parsePrimary() (expr, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return literalExpr{pos: t.pos, val: t.val}, nil
	case tokNumber:
		if strings.Contains(t.val, ".") {
			f, err := strconv.ParseFloat(t.val, 64)
			if err != nil {
				return nil, errorAt(p.src, t.pos, "invalid number %q", t.val)
			}
			return literalExpr{pos: t.pos, val: f}, nil
		}
		n, err := strconv.ParseInt(t.val, 10, 64)
		if err != nil {
			return nil, errorAt(p.src, t.pos, "invalid number %q", t.val)
		}
		return literalExpr{pos: t.pos, val: n}, nil
	case tokIdent:
		switch t.val {
		case "true", "True":
			return literalExpr{pos: t.pos, val: true}, nil
		case "false", "False":
			return literalExpr{pos: t.pos, val: false}, nil
		case "none", "None":
			return literalExpr{pos: t.pos, val: nil}, nil
		}
		return nameExpr{pos: t.pos, name: t.val}, nil
	case tokLParen:
		e, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, p.unexpected(t, "a value")
}
