package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/getmockd/mysqlmock/internal/matching"
	"github.com/getmockd/mysqlmock/pkg/engine"
	"github.com/getmockd/mysqlmock/pkg/response"
	"github.com/getmockd/mysqlmock/pkg/rules"
	"github.com/getmockd/mysqlmock/pkg/sequence"
	"github.com/getmockd/mysqlmock/pkg/state"
)

// Compiled is a fixture ready to serve: a validated rule set, the initial
// globals and the engine settings.
type Compiled struct {
	Rules             *rules.Set
	Globals           map[string]any
	DefaultLatency    time.Duration
	UnmatchedCode     uint16
	UnmatchedSQLState string
}

// EngineOptions returns the options implied by the fixture settings.
func (c *Compiled) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithDefaultLatency(c.DefaultLatency),
		engine.WithUnmatchedError(c.UnmatchedCode, c.UnmatchedSQLState),
	}
}

// NewStore returns a state store seeded with the fixture globals.
func (c *Compiled) NewStore() *state.Store {
	return state.New(c.Globals)
}

// NewEngine builds an engine over a fresh store. Options given here are
// applied after the fixture's own.
func (c *Compiled) NewEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(c.Rules, c.NewStore(), append(c.EngineOptions(), opts...)...)
}

type builder struct {
	caseSensitive bool
	onMismatch    sequence.MismatchPolicy
}

// Build compiles a fixture. Invalid patterns, expressions, column types and
// malformed responses are reported here as *rules.ConfigError, before any
// statement is dispatched.
func Build(f *Fixture) (*Compiled, error) {
	if f == nil {
		return nil, errors.New("nil fixture")
	}

	b := builder{caseSensitive: true, onMismatch: sequence.MismatchFallThrough}
	if f.Settings.CaseSensitivePatterns != nil {
		b.caseSensitive = *f.Settings.CaseSensitivePatterns
	}
	if f.Settings.OnSequenceMismatch != "" {
		p, err := sequence.ParseMismatchPolicy(f.Settings.OnSequenceMismatch)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		b.onMismatch = p
	}

	rs := make([]*rules.Rule, 0, len(f.Rules))
	for i := range f.Rules {
		rc := &f.Rules[i]
		name := rc.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}
		r, err := b.rule(name, rc)
		if err != nil {
			return nil, &rules.ConfigError{Rule: name, Err: err}
		}
		rs = append(rs, r)
	}

	set, err := rules.NewSet(rs...)
	if err != nil {
		return nil, err
	}

	c := &Compiled{
		Rules:          set,
		Globals:        make(map[string]any, len(f.Globals)),
		DefaultLatency: f.Settings.DefaultLatency.Duration,
	}
	for k, v := range f.Globals {
		c.Globals[k] = state.FromJSON(v)
	}
	if ue := f.Settings.UnmatchedError; ue != nil {
		c.UnmatchedCode = ue.Code
		c.UnmatchedSQLState = ue.SQLState
	}
	return c, nil
}

func (b builder) rule(name string, rc *RuleConfig) (*rules.Rule, error) {
	r := &rules.Rule{Name: name, Latency: rc.Latency.Ptr()}

	if rc.When != "" {
		guard, err := rules.CompileGuard(rc.When)
		if err != nil {
			return nil, fmt.Errorf("when: %w", err)
		}
		r.When = guard
	}

	if rc.ResponderConfig.HasResponse() {
		resp, err := b.responder(&rc.ResponderConfig)
		if err != nil {
			return nil, err
		}
		r.Responder = resp
	}

	if rc.Sequence == nil {
		m, err := b.matcher(rc.Exact, rc.Pattern)
		if err != nil {
			return nil, err
		}
		r.Matcher = m
		return r, nil
	}

	if rc.Exact != nil || rc.Pattern != "" {
		return nil, errors.New("a sequence rule cannot also have exact or pattern")
	}
	seq, err := b.sequence(name, rc.Sequence)
	if err != nil {
		return nil, err
	}
	r.Sequence = seq
	return r, nil
}

func (b builder) sequence(name string, sc *SequenceConfig) (*rules.Sequence, error) {
	opts := sequence.Options{Cyclic: sc.Cyclic, OnMismatch: b.onMismatch}

	scope, err := sequence.ParseScope(sc.Scope)
	if err != nil {
		return nil, err
	}
	opts.Scope = scope
	if sc.OnMismatch != "" {
		if opts.OnMismatch, err = sequence.ParseMismatchPolicy(sc.OnMismatch); err != nil {
			return nil, err
		}
	}

	steps := make([]rules.SequenceStep, len(sc.Steps))
	for i := range sc.Steps {
		st := &sc.Steps[i]
		m, err := b.matcher(st.Exact, st.Pattern)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps[i].Matcher = m
		if st.ResponderConfig.HasResponse() {
			resp, err := b.responder(&st.ResponderConfig)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			steps[i].Responder = resp
		}
	}
	return sequence.New(name, steps, opts)
}

func (b builder) matcher(exact *string, pattern string) (matching.Matcher, error) {
	switch {
	case exact != nil && pattern != "":
		return nil, errors.New("exact and pattern are mutually exclusive")
	case exact != nil:
		return matching.Exact(*exact), nil
	case pattern != "":
		return matching.Pattern(pattern, b.caseSensitive)
	default:
		return nil, errors.New("rule needs exact, pattern or sequence")
	}
}

func (b builder) responder(rc *ResponderConfig) (*rules.Scripted, error) {
	s := &rules.Scripted{Requires: rc.Requires}

	scope, err := rules.ParseScope(rc.CountScope)
	if err != nil {
		return nil, fmt.Errorf("countScope: %w", err)
	}
	s.CountScope = scope

	for i, ac := range rc.Actions {
		a, err := action(ac)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		s.Actions = append(s.Actions, a)
	}

	variants := rc.Responses
	if !rc.ResponseConfig.IsZero() {
		if len(variants) > 0 {
			return nil, errors.New("responses cannot be combined with an inline result, error or ok")
		}
		variants = []ResponseConfig{rc.ResponseConfig}
	}
	for i := range variants {
		t, err := template(&variants[i])
		if err != nil {
			if len(variants) == 1 {
				return nil, err
			}
			return nil, fmt.Errorf("response %d: %w", i+1, err)
		}
		s.Variants = append(s.Variants, t)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func action(ac ActionConfig) (rules.Action, error) {
	scope, err := rules.ParseScope(ac.Scope)
	if err != nil {
		return rules.Action{}, err
	}
	a := rules.Action{Op: rules.ActionOp(ac.Op), Scope: scope, Key: ac.Key, By: ac.By}
	if a.Op == rules.OpIncr && a.By == 0 {
		a.By = 1
	}
	if a.Op == rules.OpSet {
		if a.Value, err = rules.CompileExpr(ac.Value); err != nil {
			return rules.Action{}, err
		}
	}
	return a, nil
}

func template(rc *ResponseConfig) (*rules.Template, error) {
	t := &rules.Template{Latency: rc.Latency.Ptr()}

	switch {
	case rc.Result != nil:
		t.Kind = response.KindResult
		for _, cc := range rc.Result.Columns {
			typ, err := response.ParseColumnType(cc.Type)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", cc.Name, err)
			}
			t.Columns = append(t.Columns, response.Column{Name: cc.Name, Type: typ})
		}
		for i, row := range rc.Result.Rows {
			if len(row) != len(t.Columns) {
				return nil, &response.ShapeError{Row: i, Got: len(row), Columns: len(t.Columns)}
			}
			cells := make([]rules.Cell, len(row))
			for j, v := range row {
				c, err := rules.CompileCell(state.FromJSON(v))
				if err != nil {
					return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
				}
				cells[j] = c
			}
			t.Rows = append(t.Rows, cells)
		}
		if err := checkLiteralRows(t); err != nil {
			return nil, err
		}
	case rc.Error != nil:
		t.Kind = response.KindError
		msg, err := rules.CompileCell(rc.Error.Message)
		if err != nil {
			return nil, fmt.Errorf("error message: %w", err)
		}
		t.Error = &rules.ErrorTemplate{Code: rc.Error.Code, SQLState: rc.Error.SQLState, Message: msg}
	case rc.OK != nil:
		t.Kind = response.KindOK
		t.OK = &response.OK{
			AffectedRows: rc.OK.AffectedRows,
			LastInsertID: rc.OK.LastInsertID,
			Warnings:     rc.OK.Warnings,
			Info:         rc.OK.Info,
		}
	default:
		return nil, errors.New("response needs one of result, error or ok")
	}
	return t, nil
}

// checkLiteralRows type-checks a result whose cells are all literals, so
// value errors surface at load time instead of on the first dispatch.
func checkLiteralRows(t *rules.Template) error {
	rows := make([]response.Row, len(t.Rows))
	for i, cells := range t.Rows {
		row := make(response.Row, len(cells))
		for j, c := range cells {
			if !c.IsLiteral() {
				return nil
			}
			row[j], _ = c.Eval(nil)
		}
		rows[i] = row
	}
	_, err := response.NewResultset(t.Columns, rows)
	return err
}
