package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrEval is wrapped by errors raised while evaluating an expression.
var ErrEval = errors.New("template evaluation error")

type state struct {
	ctx context.Context
	r   *Renderer
	tc  Context
	src string
	// unreachable collects the transport failures of get lookups.
	unreachable error
}

func (s *state) fail(e expr, format string, a ...any) error {
	se := errorAt(s.src, e.offset(), format, a...)
	return fmt.Errorf("%w at line %d, column %d: %s", ErrEval, se.Line, se.Column, se.Msg)
}

func (s *state) eval(e expr) (any, error) {
	switch e := e.(type) {
	case literalExpr:
		return e.val, nil
	case nameExpr:
		return s.variable(e.name), nil
	case concatExpr:
		var b strings.Builder
		for _, part := range e.parts {
			v, err := s.eval(part)
			if err != nil {
				return nil, err
			}
			b.WriteString(toString(v))
		}
		return b.String(), nil
	case indexExpr:
		target, err := s.eval(e.target)
		if err != nil {
			return nil, err
		}
		idx, err := s.eval(e.index)
		if err != nil {
			return nil, err
		}
		return s.index(e, target, idx)
	case attrExpr:
		target, err := s.eval(e.target)
		if err != nil {
			return nil, err
		}
		return s.index(e, target, e.name)
	case filterExpr:
		input, err := s.eval(e.input)
		if err != nil {
			return nil, err
		}
		args := make(arguments, len(e.args))
		for i, a := range e.args {
			if a == nil {
				continue
			}
			v, err := s.eval(a)
			if err != nil {
				return nil, err
			}
			args[i] = argument{val: v, set: true}
		}
		return s.filter(e, input, args)
	case negExpr:
		v, err := s.eval(e.operand)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case int64:
			return -x, nil
		case float64:
			return -x, nil
		case json.Number:
			if n, err := x.Int64(); err == nil {
				return -n, nil
			}
			if f, err := x.Float64(); err == nil {
				return -f, nil
			}
		}
		return nil, s.fail(e, "cannot negate a %s", typeName(v))
	}
	return nil, fmt.Errorf("%w: unsupported expression %T", ErrEval, e)
}

type argument struct {
	val any
	set bool
}

// arguments holds the evaluated filter arguments, one per parameter.
type arguments []argument

func (a arguments) text(i int, fallback string) string {
	if i >= len(a) || !a[i].set {
		return fallback
	}
	return toString(a[i].val)
}

func (a arguments) flag(i int, fallback bool) bool {
	if i >= len(a) || !a[i].set {
		return fallback
	}
	return truthy(a[i].val)
}

// truthy follows the usual template rules: false, none, zero and empty
// values are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int64:
		return x != 0
	case float64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case []string:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// variable resolves a bare name. Unknown names are undefined, which renders
// as an empty string.
func (s *state) variable(name string) any {
	switch name {
	case "url":
		return s.tc.URL
	case "levels":
		return append([]string{}, s.tc.Levels...)
	}
	return nil
}

// index implements x[i] and x.name. Missing entries are undefined; indexing
// something that is not a container is an error.
func (s *state) index(e expr, target, key any) (any, error) {
	switch t := target.(type) {
	case nil:
		return nil, s.fail(e, "cannot index an undefined value")
	case map[string]any:
		k, ok := key.(string)
		if !ok {
			return nil, s.fail(e, "object keys must be strings, got %s", typeName(key))
		}
		return t[k], nil
	case []string:
		i, ok := position(key, len(t))
		if !ok {
			return nil, nil
		}
		return t[i], nil
	case []any:
		i, ok := position(key, len(t))
		if !ok {
			return nil, nil
		}
		return t[i], nil
	case string:
		runes := []rune(t)
		i, ok := position(key, len(runes))
		if !ok {
			return nil, nil
		}
		return string(runes[i]), nil
	}
	return nil, s.fail(e, "cannot index a %s", typeName(target))
}

// position converts an index value to a slice position, counting from the
// end for negative values.
func position(key any, length int) (int, bool) {
	n, ok := toInt(key)
	if !ok {
		return 0, false
	}
	if n < 0 {
		n += length
	}
	if n < 0 || n >= length {
		return 0, false
	}
	return n, true
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int64:
		return int(x), true
	case float64:
		if x == math.Trunc(x) {
			return int(x), true
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "undefined value"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64, json.Number:
		return "number"
	case []string, []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// toString is how values are written into the output.
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case []string, []any, map[string]any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return fmt.Sprint(x)
		}
		return strings.TrimSuffix(buf.String(), "\n")
	}
	return fmt.Sprint(v)
}
