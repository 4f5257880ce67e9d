package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getmockd/mysqlmock/pkg/logging"
	"github.com/getmockd/mysqlmock/pkg/metrics"
	"github.com/getmockd/mysqlmock/pkg/response"
	"github.com/getmockd/mysqlmock/pkg/rules"
	"github.com/getmockd/mysqlmock/pkg/state"
)

// Default error for statements no rule accepts.
const (
	DefaultUnmatchedCode     uint16 = 1273
	DefaultUnmatchedSQLState        = response.DefaultSQLState
)

// Engine is the statement dispatcher. It is safe for concurrent use.
type Engine struct {
	rules          *rules.Set
	store          *state.Store
	defaultLatency time.Duration
	unmatchedCode  uint16
	unmatchedState string
	log            *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultLatency sets the latency of rules that don't set their own.
func WithDefaultLatency(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.defaultLatency = d
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithUnmatchedError overrides the code and SQL state answered when no
// rule matches. Zero values keep the defaults.
func WithUnmatchedError(code uint16, sqlState string) Option {
	return func(e *Engine) {
		if code != 0 {
			e.unmatchedCode = code
		}
		if sqlState != "" {
			e.unmatchedState = sqlState
		}
	}
}

// New creates an engine over an immutable rule set and a state store.
// A nil set answers every statement with the unmatched error.
func New(set *rules.Set, store *state.Store, opts ...Option) *Engine {
	if set == nil {
		set, _ = rules.NewSet()
	}
	if store == nil {
		store = state.New(nil)
	}
	e := &Engine{
		rules:          set,
		store:          store,
		unmatchedCode:  DefaultUnmatchedCode,
		unmatchedState: DefaultUnmatchedSQLState,
		log:            logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() *rules.Set { return e.rules }

// Store returns the engine's state store.
func (e *Engine) Store() *state.Store { return e.store }

// DefaultLatency returns the latency used when a rule sets none.
func (e *Engine) DefaultLatency() time.Duration { return e.defaultLatency }

// Unmatched returns the error answered for a statement no rule accepts.
func (e *Engine) Unmatched(query string) *response.Error {
	return &response.Error{
		Code:     e.unmatchedCode,
		SQLState: e.unmatchedState,
		Message:  fmt.Sprintf("Syntax error: no rule matched '%s'", query),
	}
}

// Dispatch answers one statement for sess. It returns the response and the
// latency the caller must wait before delivering it. The returned response's
// Latency field carries the same value.
//
// A non-nil error means no response must be sent: either the session is
// unusable, or the fixture is broken and the error is a *ConfigurationFault.
func (e *Engine) Dispatch(query string, sess *state.Session) (*response.Response, time.Duration, error) {
	if sess == nil {
		return nil, 0, ErrNilSession
	}
	if sess.Closed() {
		return nil, 0, state.ErrSessionClosed
	}

	var (
		resp  *response.Response
		match *rules.Match
	)
	err := e.store.Update(func(tx *state.Tx) error {
		m, err := e.rules.Resolve(query, sess, tx)
		if err != nil {
			return &ConfigurationFault{Rule: ruleOf(err), Statement: query, Err: err}
		}
		if m == nil {
			return nil
		}
		match = m

		if m.Rejected != nil {
			resp = response.Failure(m.Rejected)
			return nil
		}

		r, err := m.Responder.Respond(&rules.Context{
			Key:       m.Key,
			Statement: query,
			Captures:  m.Captures,
			Session:   sess,
			Globals:   tx,
		})
		if err == nil && r == nil {
			err = errors.New("responder returned no response")
		}
		if err == nil {
			err = r.Validate()
		}
		if err != nil {
			return &ConfigurationFault{Rule: m.Rule.Name, Statement: query, Err: err}
		}

		m.Advance()
		resp = r
		return nil
	})
	if err != nil {
		e.log.Error("configuration fault", logging.StatementKey, query, logging.SessionKey, sess.ID(), "error", err)
		if metrics.ConfigFaultsTotal != nil {
			_ = metrics.ConfigFaultsTotal.Inc()
		}
		return nil, 0, err
	}

	if match == nil {
		e.log.Warn("no rule matched", logging.StatementKey, query, logging.SessionKey, sess.ID())
		if metrics.UnmatchedTotal != nil {
			_ = metrics.UnmatchedTotal.Inc()
		}
		return response.Failure(e.Unmatched(query)).WithLatency(e.defaultLatency), e.defaultLatency, nil
	}

	latency := e.latency(match, resp)
	resp = resp.WithLatency(latency)

	e.log.Debug("statement matched",
		"rule", match.Key,
		"kind", resp.Kind.String(),
		"latency", latency,
		"session", sess.ID(),
	)
	if metrics.StatementsTotal != nil {
		if vec, err := metrics.StatementsTotal.WithLabels(match.Rule.Name, resp.Kind.String()); err == nil {
			_ = vec.Inc()
		}
	}
	return resp, latency, nil
}

// latency picks the response's own latency, then the rule's, then the
// engine default. A response that sets its latency, even to zero, wins.
func (e *Engine) latency(m *rules.Match, resp *response.Response) time.Duration {
	switch {
	case resp.LatencySet || resp.Latency > 0:
		return resp.Latency
	case m.Rule.Latency != nil:
		return *m.Rule.Latency
	default:
		return e.defaultLatency
	}
}

func ruleOf(err error) string {
	var ce *rules.ConfigError
	if errors.As(err, &ce) {
		return ce.Rule
	}
	return ""
}
