package matching

import (
	"fmt"
	"regexp"
	"strconv"
)

// PatternMatcher accepts statements fully matching a regular expression.
type PatternMatcher struct {
	source string
	re     *regexp.Regexp
}

// Pattern compiles expr into a matcher anchored at both ends.
func Pattern(expr string, caseSensitive bool) (*PatternMatcher, error) {
	if expr == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	anchored := "^(?:" + expr + ")$"
	if !caseSensitive {
		anchored = "(?i)" + anchored
	}

	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return &PatternMatcher{source: expr, re: re}, nil
}

// MustPattern is like Pattern but panics on an invalid expression.
func MustPattern(expr string, caseSensitive bool) *PatternMatcher {
	m, err := Pattern(expr, caseSensitive)
	if err != nil {
		panic(err)
	}
	return m
}

// Source returns the expression as written in the fixture.
func (m *PatternMatcher) Source() string { return m.source }

// Match implements Matcher.
func (m *PatternMatcher) Match(stmt string) (Captures, bool) {
	groups := m.re.FindStringSubmatch(stmt)
	if groups == nil {
		return Captures{}, false
	}

	var named map[string]string
	for i, name := range m.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if named == nil {
			named = make(map[string]string)
		}
		named[name] = groups[i]
	}
	return Captures{Groups: groups, Named: named}, true
}

func (m *PatternMatcher) String() string {
	return "pattern " + strconv.Quote(m.source)
}
