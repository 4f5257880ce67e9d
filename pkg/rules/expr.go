package rules

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/mysqlmock/pkg/state"
)

// Env is the variable environment expressions run against.
type Env map[string]any

// NewEnv builds the expression environment for one responder call.
func NewEnv(ctx *Context, calls int) Env {
	groups := ctx.Captures.Groups
	if groups == nil {
		groups = []string{}
	}
	named := ctx.Captures.Named
	if named == nil {
		named = map[string]string{}
	}

	return Env{
		"statement": ctx.Statement,
		"captures":  groups,
		"named":     named,
		"calls":     calls,
		"global": func(k string) any {
			return ctx.global(k)
		},
		"globalOr": func(k string, def any) any {
			if v, ok := ctx.lookupGlobal(k); ok {
				return v
			}
			return def
		},
		"session": func(k string) any {
			return ctx.sessionValue(k)
		},
		"sessionOr": func(k string, def any) any {
			if v, ok := ctx.lookupSession(k); ok {
				return v
			}
			return def
		},
		"required": func(k string) (any, error) {
			v, ok := ctx.lookupGlobal(k)
			if !ok {
				return nil, &MissingKeyError{Scope: "global", Key: k}
			}
			return v, nil
		},
		"num": func(v any) int64 {
			n, _ := state.Int(v)
			return n
		},
	}
}

// prototype has the same shape as NewEnv's result and is used to type-check
// expressions at compile time.
var prototype = NewEnv(&Context{}, 0)

// Expr is a compiled expression.
type Expr struct {
	src  string
	prog *vm.Program
}

// CompileExpr compiles an expression against the responder environment.
func CompileExpr(src string) (*Expr, error) {
	prog, err := expr.Compile(src, expr.Env(map[string]any(prototype)))
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Expr{src: src, prog: prog}, nil
}

// CompileGuard compiles an expression that must evaluate to a bool.
func CompileGuard(src string) (*Expr, error) {
	prog, err := expr.Compile(src, expr.Env(map[string]any(prototype)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Expr{src: src, prog: prog}, nil
}

// String returns the expression source.
func (e *Expr) String() string { return e.src }

// Eval runs the expression.
func (e *Expr) Eval(env Env) (any, error) {
	out, err := expr.Run(e.prog, map[string]any(env))
	if err != nil {
		return nil, &EvalError{Expr: e.src, Err: err}
	}
	return out, nil
}

type templateSpan struct {
	start, end int    // whole {{ ... }} span
	src        string // trimmed expression source
}

// scanTemplates finds the {{ }} spans in s. Braces and quotes inside an
// expression are tracked, so map literals and string constants may contain
// '}'.
func scanTemplates(s string) ([]templateSpan, error) {
	var spans []templateSpan
	for i := 0; i < len(s); {
		open := strings.Index(s[i:], "{{")
		if open < 0 {
			break
		}
		open += i
		end, err := closeTemplate(s, open+2)
		if err != nil {
			return nil, err
		}
		spans = append(spans, templateSpan{
			start: open,
			end:   end + 2,
			src:   strings.TrimSpace(s[open+2 : end]),
		})
		i = end + 2
	}
	return spans, nil
}

// closeTemplate returns the index of the "}}" closing an expression that
// starts at from.
func closeTemplate(s string, from int) (int, error) {
	depth := 0
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '`':
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
				continue
			}
			if i+1 < len(s) && s[i+1] == '}' {
				return i, nil
			}
			return 0, fmt.Errorf("template %q: stray '}' at offset %d", s, i)
		}
	}
	return 0, fmt.Errorf("template %q: unterminated {{", s)
}

type cellPart struct {
	text string
	expr *Expr
}

// Cell is a result cell or message that may contain {{ }} expressions.
// A cell that is a single expression keeps the expression's type; a cell
// mixing text and expressions renders to a string.
type Cell struct {
	literal any
	whole   *Expr
	parts   []cellPart
}

// LiteralCell returns a cell that always evaluates to v.
func LiteralCell(v any) Cell {
	return Cell{literal: v}
}

// CompileCell compiles v into a cell. Non-string values are literals.
func CompileCell(v any) (Cell, error) {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, "{{") {
		return Cell{literal: v}, nil
	}

	spans, err := scanTemplates(s)
	if err != nil {
		return Cell{}, err
	}

	if len(spans) == 1 && spans[0].start == 0 && spans[0].end == len(s) {
		e, err := CompileExpr(spans[0].src)
		if err != nil {
			return Cell{}, err
		}
		return Cell{whole: e}, nil
	}

	var parts []cellPart
	last := 0
	for _, sp := range spans {
		if sp.start > last {
			parts = append(parts, cellPart{text: s[last:sp.start]})
		}
		e, err := CompileExpr(sp.src)
		if err != nil {
			return Cell{}, err
		}
		parts = append(parts, cellPart{expr: e})
		last = sp.end
	}
	if last < len(s) {
		parts = append(parts, cellPart{text: s[last:]})
	}
	return Cell{parts: parts}, nil
}

// IsLiteral reports whether the cell contains no expressions.
func (c Cell) IsLiteral() bool {
	return c.whole == nil && c.parts == nil
}

// Eval computes the cell's value.
func (c Cell) Eval(env Env) (any, error) {
	switch {
	case c.whole != nil:
		return c.whole.Eval(env)
	case c.parts != nil:
		var b strings.Builder
		for _, p := range c.parts {
			if p.expr == nil {
				b.WriteString(p.text)
				continue
			}
			v, err := p.expr.Eval(env)
			if err != nil {
				return nil, err
			}
			b.WriteString(state.String(v))
		}
		return b.String(), nil
	default:
		return c.literal, nil
	}
}
