package engine

import (
	"errors"
	"fmt"
)

// ErrNilSession is returned when Dispatch is called without a session.
var ErrNilSession = errors.New("engine: nil session")

// ConfigurationFault reports a fixture bug found while answering a
// statement, such as a responder reading a required key nobody set.
// It is never sent to the client as a protocol error.
type ConfigurationFault struct {
	Rule      string
	Statement string
	Err       error
}

func (e *ConfigurationFault) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("configuration fault on %q: %v", e.Statement, e.Err)
	}
	return fmt.Sprintf("configuration fault in rule %q on %q: %v", e.Rule, e.Statement, e.Err)
}

func (e *ConfigurationFault) Unwrap() error { return e.Err }

// Hint returns a user-friendly suggestion when the cause carries one.
func (e *ConfigurationFault) Hint() string {
	var h interface{ Hint() string }
	if errors.As(e.Err, &h) {
		return h.Hint()
	}
	return "Check the rule's responses and actions in the fixture."
}

// IsConfigurationFault reports whether err is or wraps a ConfigurationFault.
func IsConfigurationFault(err error) bool {
	var f *ConfigurationFault
	return errors.As(err, &f)
}
