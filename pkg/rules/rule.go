package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/getmockd/mysqlmock/internal/matching"
	"github.com/getmockd/mysqlmock/pkg/response"
	"github.com/getmockd/mysqlmock/pkg/sequence"
	"github.com/getmockd/mysqlmock/pkg/state"
)

// Sequence is a generator whose steps answer with responders.
type Sequence = sequence.Generator[Responder]

// SequenceStep is one step of a Sequence.
type SequenceStep = sequence.Step[Responder]

// Rule maps statements to a responder.
type Rule struct {
	Name string
	// Exactly one of Matcher and Sequence is set.
	Matcher  matching.Matcher
	Sequence *Sequence
	// When, if set, must evaluate to true for the rule to apply. It sees the
	// captures of the statement.
	When      *Expr
	Responder Responder
	// Latency overrides the engine default when set.
	Latency *time.Duration
}

func (r *Rule) validate() error {
	switch {
	case r.Matcher == nil && r.Sequence == nil:
		return errors.New("rule needs a matcher or a sequence")
	case r.Matcher != nil && r.Sequence != nil:
		return errors.New("rule cannot have both a matcher and a sequence")
	case r.Matcher != nil && r.Responder == nil:
		return errors.New("rule has no responder")
	}
	if r.Latency != nil && *r.Latency < 0 {
		return fmt.Errorf("negative latency %s", *r.Latency)
	}
	if err := validateResponder(r.Responder); err != nil {
		return err
	}
	if r.Sequence != nil {
		for i, st := range r.Sequence.Steps() {
			if st.Responder == nil && r.Responder == nil {
				return fmt.Errorf("step %d has no responder", i+1)
			}
			if err := validateResponder(st.Responder); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return nil
}

func validateResponder(resp Responder) error {
	switch x := resp.(type) {
	case *Scripted:
		return x.Validate()
	case Static:
		if x.Response == nil {
			return errors.New("static responder without response")
		}
		return x.Response.Validate()
	}
	return nil
}

// Match is the outcome of resolving a statement.
type Match struct {
	Rule      *Rule
	Key       string
	Responder Responder
	Captures  matching.Captures
	// Step is the sequence step index, or -1 for plain rules.
	Step int
	// Rejected is set when a sequence in reject mode refused the statement.
	Rejected *response.Error

	advance func()
}

// Advance commits a sequence step. It is a no-op for plain rules.
func (m *Match) Advance() {
	if m.advance != nil {
		m.advance()
	}
}

// Set is an immutable ordered list of rules.
type Set struct {
	rules []*Rule
}

// NewSet validates rules and builds a Set. Rules without a name are named
// after their position.
func NewSet(rules ...*Rule) (*Set, error) {
	seen := make(map[string]bool, len(rules))
	out := make([]*Rule, 0, len(rules))

	for i, r := range rules {
		if r == nil {
			return nil, &ConfigError{Rule: fmt.Sprintf("#%d", i), Err: errors.New("nil rule")}
		}
		cp := *r
		if cp.Name == "" {
			cp.Name = fmt.Sprintf("rule-%d", i+1)
		}
		if seen[cp.Name] {
			return nil, &ConfigError{Rule: cp.Name, Err: errors.New("duplicate rule name")}
		}
		seen[cp.Name] = true

		if err := cp.validate(); err != nil {
			return nil, &ConfigError{Rule: cp.Name, Err: err}
		}
		out = append(out, &cp)
	}
	return &Set{rules: out}, nil
}

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Rules returns the rules in evaluation order.
func (s *Set) Rules() []*Rule {
	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Resolve finds the first rule accepting stmt. It returns nil when nothing
// matched. Shared sequence cursors are read through tx, so Resolve must run
// inside state.Store.Update. The returned error is a fixture bug.
func (s *Set) Resolve(stmt string, sess *state.Session, tx *state.Tx) (*Match, error) {
	for _, r := range s.rules {
		if r.Sequence == nil {
			caps, ok := r.Matcher.Match(stmt)
			if !ok {
				continue
			}
			pass, err := r.guard(stmt, caps, r.Name, sess, tx)
			if err != nil {
				return nil, err
			}
			if !pass {
				continue
			}
			return &Match{Rule: r, Key: r.Name, Responder: r.Responder, Captures: caps, Step: -1}, nil
		}

		cursors := cursorsFor(r.Sequence, sess, tx)
		if cursors == nil {
			continue
		}
		o := r.Sequence.Try(stmt, cursors)
		key := fmt.Sprintf("%s#%d", r.Name, o.Index+1)

		pass, err := r.guard(stmt, o.Captures, key, sess, tx)
		if err != nil {
			return nil, err
		}
		if !pass {
			continue
		}

		if o.Status == sequence.Matched {
			resp := o.Step.Responder
			if resp == nil {
				resp = r.Responder
			}
			if resp == nil {
				return nil, &ConfigError{Rule: r.Name, Err: fmt.Errorf("step %d has no responder", o.Index+1)}
			}
			seq, idx := r.Sequence, o.Index
			return &Match{
				Rule:      r,
				Key:       key,
				Responder: resp,
				Captures:  o.Captures,
				Step:      o.Index,
				advance:   func() { seq.Advance(cursors, idx) },
			}, nil
		}

		// exhausted sequences fall through in either mode
		if o.Status == sequence.Mismatch && r.Sequence.Options().OnMismatch == sequence.MismatchReject {
			return &Match{Rule: r, Key: key, Step: o.Index, Rejected: r.Sequence.RejectError(o, stmt)}, nil
		}
	}
	return nil, nil
}

func (r *Rule) guard(stmt string, caps matching.Captures, key string, sess *state.Session, tx *state.Tx) (bool, error) {
	if r.When == nil {
		return true, nil
	}
	ctx := &Context{Key: key, Statement: stmt, Captures: caps, Session: sess, Globals: tx}
	v, err := r.When.Eval(NewEnv(ctx, 0))
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func cursorsFor(seq *Sequence, sess *state.Session, tx *state.Tx) sequence.Cursors {
	if seq.Options().Scope == sequence.ScopeShared {
		if tx == nil {
			return nil
		}
		return tx
	}
	if sess == nil {
		return nil
	}
	return sess
}
