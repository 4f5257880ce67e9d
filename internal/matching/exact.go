package matching

import "strconv"

// ExactMatcher accepts a statement byte-equal to its literal.
type ExactMatcher struct {
	literal string
}

// Exact returns a matcher for the literal statement s.
func Exact(s string) *ExactMatcher {
	return &ExactMatcher{literal: s}
}

// Literal returns the statement this matcher accepts.
func (m *ExactMatcher) Literal() string { return m.literal }

// Match implements Matcher.
func (m *ExactMatcher) Match(stmt string) (Captures, bool) {
	if stmt != m.literal {
		return Captures{}, false
	}
	return Captures{Groups: []string{stmt}}, true
}

func (m *ExactMatcher) String() string {
	return "exact " + strconv.Quote(m.literal)
}
