package sequence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/mysqlmock/internal/matching"
	"github.com/getmockd/mysqlmock/pkg/response"
)

// Scope selects where a generator's cursor is kept.
type Scope string

// Cursor scopes.
const (
	// ScopeSession gives every connection its own cursor.
	ScopeSession Scope = "session"
	// ScopeShared uses one cursor for all connections.
	ScopeShared Scope = "shared"
)

// MismatchPolicy selects what happens when a statement does not match the
// step at the cursor.
type MismatchPolicy string

// Mismatch policies.
const (
	// MismatchFallThrough treats the sequence as not matching, so later
	// rules get a chance.
	MismatchFallThrough MismatchPolicy = "fallthrough"
	// MismatchReject answers with an error and stops rule evaluation.
	MismatchReject MismatchPolicy = "reject"
)

// ParseScope parses a scope name. Empty means ScopeSession.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeSession:
		return ScopeSession, nil
	case ScopeShared, "global", "ruleset":
		return ScopeShared, nil
	default:
		return "", fmt.Errorf("unknown sequence scope %q (valid: %s, %s)", s, ScopeSession, ScopeShared)
	}
}

// ParseMismatchPolicy parses a policy name. Empty means MismatchFallThrough.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch MismatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MismatchFallThrough:
		return MismatchFallThrough, nil
	case MismatchReject:
		return MismatchReject, nil
	default:
		return "", fmt.Errorf("unknown mismatch policy %q (valid: %s, %s)", s, MismatchFallThrough, MismatchReject)
	}
}

// Cursors stores cursor positions by name.
type Cursors interface {
	Cursor(name string) int
	SetCursor(name string, pos int)
}

// Step is one expected statement and what to answer with.
type Step[R any] struct {
	Matcher   matching.Matcher
	Responder R
}

// Options configure a Generator.
type Options struct {
	Scope      Scope
	Cyclic     bool
	OnMismatch MismatchPolicy
}

// Status is the result of testing a statement against a generator.
type Status int

// Statuses returned by Generator.Try.
const (
	Matched Status = iota + 1
	Mismatch
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Mismatch:
		return "mismatch"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome describes a statement tested against the step at the cursor.
type Outcome[R any] struct {
	Status   Status
	Index    int
	Step     Step[R]
	Captures matching.Captures
}

// Generator is an immutable ordered list of steps.
type Generator[R any] struct {
	name  string
	steps []Step[R]
	opts  Options
}

// New builds a generator. name identifies the cursor and must be unique
// within a rule set.
func New[R any](name string, steps []Step[R], opts Options) (*Generator[R], error) {
	if name == "" {
		return nil, errors.New("sequence name cannot be empty")
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("sequence %q has no steps", name)
	}
	for i, st := range steps {
		if st.Matcher == nil {
			return nil, fmt.Errorf("sequence %q step %d has no matcher", name, i)
		}
	}
	if opts.Scope == "" {
		opts.Scope = ScopeSession
	}
	if opts.OnMismatch == "" {
		opts.OnMismatch = MismatchFallThrough
	}

	cp := make([]Step[R], len(steps))
	copy(cp, steps)
	return &Generator[R]{name: name, steps: cp, opts: opts}, nil
}

// Name returns the generator's name.
func (g *Generator[R]) Name() string { return g.name }

// Len returns the number of steps.
func (g *Generator[R]) Len() int { return len(g.steps) }

// Steps returns a copy of the steps.
func (g *Generator[R]) Steps() []Step[R] {
	out := make([]Step[R], len(g.steps))
	copy(out, g.steps)
	return out
}

// Options returns the generator's configuration.
func (g *Generator[R]) Options() Options { return g.opts }

func (g *Generator[R]) key() string { return "seq:" + g.name }

// Position returns the cursor position, 0..Len().
func (g *Generator[R]) Position(c Cursors) int {
	return c.Cursor(g.key())
}

// Reset moves the cursor back to the first step.
func (g *Generator[R]) Reset(c Cursors) {
	c.SetCursor(g.key(), 0)
}

// Try tests stmt against the step at the cursor without moving it.
func (g *Generator[R]) Try(stmt string, c Cursors) Outcome[R] {
	pos := g.Position(c)
	if pos >= len(g.steps) {
		if !g.opts.Cyclic {
			return Outcome[R]{Status: Exhausted, Index: pos}
		}
		pos = 0
	}

	step := g.steps[pos]
	caps, ok := step.Matcher.Match(stmt)
	if !ok {
		return Outcome[R]{Status: Mismatch, Index: pos, Step: step}
	}
	return Outcome[R]{Status: Matched, Index: pos, Step: step, Captures: caps}
}

// Advance moves the cursor past the step at index, wrapping to 0 at the end
// of a cyclic sequence.
func (g *Generator[R]) Advance(c Cursors, index int) {
	next := index + 1
	if next >= len(g.steps) && g.opts.Cyclic {
		next = 0
	}
	c.SetCursor(g.key(), next)
}

// RejectError is the error answered in MismatchReject mode for a Mismatch
// outcome. Exhausted sequences never reject.
func (g *Generator[R]) RejectError(o Outcome[R], stmt string) *response.Error {
	return &response.Error{
		Code:     1273,
		SQLState: response.DefaultSQLState,
		Message:  fmt.Sprintf("Syntax error: sequence %q expected %s at step %d, got '%s'", g.name, o.Step.Matcher, o.Index+1, stmt),
	}
}
