package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getmockd/mysqlmock/pkg/response"
	"github.com/getmockd/mysqlmock/pkg/state"
)

// Scope selects global or session state.
type Scope string

// State scopes.
const (
	ScopeGlobal  Scope = "global"
	ScopeSession Scope = "session"
)

// ParseScope parses a state scope. Empty means ScopeGlobal.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeSession:
		return ScopeSession, nil
	default:
		return "", fmt.Errorf("unknown state scope %q (valid: %s, %s)", s, ScopeGlobal, ScopeSession)
	}
}

// ActionOp is a state mutation.
type ActionOp string

// Action operations.
const (
	OpSet   ActionOp = "set"
	OpIncr  ActionOp = "incr"
	OpUnset ActionOp = "unset"
)

// Action mutates global or session state before a response is rendered.
type Action struct {
	Op    ActionOp
	Scope Scope
	Key   string
	// Value is evaluated for OpSet.
	Value *Expr
	// By is the increment for OpIncr.
	By int64
}

func (a Action) validate() error {
	if a.Key == "" {
		return errors.New("action key cannot be empty")
	}
	switch a.Op {
	case OpSet:
		if a.Value == nil {
			return fmt.Errorf("set %s requires a value", a.Key)
		}
	case OpIncr, OpUnset:
	default:
		return fmt.Errorf("unknown action %q", a.Op)
	}
	return nil
}

func (a Action) apply(ctx *Context, env Env) error {
	switch a.Scope {
	case ScopeSession:
		if ctx.Session == nil {
			return fmt.Errorf("%s session.%s: no session", a.Op, a.Key)
		}
		switch a.Op {
		case OpSet:
			v, err := a.Value.Eval(env)
			if err != nil {
				return err
			}
			ctx.Session.Set(a.Key, v)
		case OpIncr:
			ctx.Session.Incr(a.Key, a.By)
		case OpUnset:
			ctx.Session.Delete(a.Key)
		}
	default:
		if ctx.Globals == nil {
			return fmt.Errorf("%s global.%s: no global state", a.Op, a.Key)
		}
		switch a.Op {
		case OpSet:
			v, err := a.Value.Eval(env)
			if err != nil {
				return err
			}
			ctx.Globals.Set(a.Key, v)
		case OpIncr:
			ctx.Globals.Incr(a.Key, a.By)
		case OpUnset:
			ctx.Globals.Delete(a.Key)
		}
	}
	return nil
}

// ErrorTemplate renders a protocol error.
type ErrorTemplate struct {
	Code     uint16
	SQLState string
	Message  Cell
}

// Template renders one response variant.
type Template struct {
	Kind    response.Kind
	Columns []response.Column
	Rows    [][]Cell
	Error   *ErrorTemplate
	OK      *response.OK
	// Latency overrides the rule's latency when set.
	Latency *time.Duration
}

func (t *Template) validate() error {
	switch t.Kind {
	case response.KindResult:
		for i, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return &response.ShapeError{Row: i, Got: len(row), Columns: len(t.Columns)}
			}
		}
	case response.KindError:
		if t.Error == nil {
			return errors.New("error variant without error")
		}
		if t.Error.Message.IsLiteral() {
			if s, _ := t.Error.Message.literal.(string); s == "" {
				return response.ErrEmptyMessage
			}
		}
	case response.KindOK:
	default:
		return fmt.Errorf("unknown response kind %d", t.Kind)
	}
	if t.Latency != nil && *t.Latency < 0 {
		return fmt.Errorf("negative latency %s", *t.Latency)
	}
	return nil
}

// Render evaluates the template against env.
func (t *Template) Render(env Env) (*response.Response, error) {
	var resp *response.Response

	switch t.Kind {
	case response.KindResult:
		rows := make([]response.Row, len(t.Rows))
		for i, cells := range t.Rows {
			row := make(response.Row, len(cells))
			for j, c := range cells {
				v, err := c.Eval(env)
				if err != nil {
					return nil, err
				}
				row[j] = v
			}
			rows[i] = row
		}
		rs, err := response.NewResultset(t.Columns, rows)
		if err != nil {
			return nil, err
		}
		resp = response.Result(rs)
	case response.KindError:
		msg, err := t.Error.Message.Eval(env)
		if err != nil {
			return nil, err
		}
		e, err := response.NewError(t.Error.Code, t.Error.SQLState, state.String(msg))
		if err != nil {
			return nil, err
		}
		resp = response.Failure(e)
	case response.KindOK:
		ok := response.OK{}
		if t.OK != nil {
			ok = *t.OK
		}
		resp = response.Ack(&ok)
	default:
		return nil, fmt.Errorf("unknown response kind %d", t.Kind)
	}

	if t.Latency != nil {
		resp.Latency = *t.Latency
		resp.LatencySet = true
	}
	return resp, nil
}

// Scripted is the fixture-driven responder.
type Scripted struct {
	// Requires lists global keys that must be set.
	Requires []string
	Actions  []Action
	// Variants are picked by call count: the Nth call uses Variants[N-1],
	// and calls past the end reuse the last variant.
	Variants []*Template
	// CountScope decides whether calls are counted across all sessions
	// (global) or per connection (session).
	CountScope Scope
}

// Validate checks the responder's static configuration.
func (s *Scripted) Validate() error {
	if len(s.Variants) == 0 {
		return errors.New("no response configured")
	}
	for i, v := range s.Variants {
		if v == nil {
			return fmt.Errorf("response %d is empty", i)
		}
		if err := v.validate(); err != nil {
			return fmt.Errorf("response %d: %w", i, err)
		}
	}
	for i, a := range s.Actions {
		if err := a.validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// Respond implements Responder.
func (s *Scripted) Respond(ctx *Context) (*response.Response, error) {
	if len(s.Variants) == 0 {
		return nil, errors.New("no response configured")
	}
	for _, k := range s.Requires {
		if _, ok := ctx.lookupGlobal(k); !ok {
			return nil, &MissingKeyError{Scope: string(ScopeGlobal), Key: k}
		}
	}

	var calls int
	switch {
	case s.CountScope == ScopeSession && ctx.Session != nil:
		calls = ctx.Session.AddCall(ctx.Key)
	case ctx.Globals != nil:
		calls = ctx.Globals.AddCall(ctx.Key)
	default:
		calls = 1
	}

	env := NewEnv(ctx, calls)
	for _, a := range s.Actions {
		if err := a.apply(ctx, env); err != nil {
			return nil, err
		}
	}

	idx := min(calls, len(s.Variants)) - 1
	return s.Variants[idx].Render(env)
}
