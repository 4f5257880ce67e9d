package rules

import (
	"fmt"
)

// ConfigError reports a malformed rule found while building a rule set.
type ConfigError struct {
	Rule string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("invalid rule: %v", e.Err)
	}
	return fmt.Sprintf("invalid rule %q: %v", e.Rule, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MissingKeyError is returned by a responder that requires a state key
// nobody has set.
type MissingKeyError struct {
	Scope string
	Key   string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required %s key %q is not set", e.Scope, e.Key)
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *MissingKeyError) Hint() string {
	return fmt.Sprintf("Add %q to the fixture's globals or set it from an earlier rule.", e.Key)
}

// EvalError is returned when an expression fails at dispatch time.
type EvalError struct {
	Expr string
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("eval %q: %v", e.Expr, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
