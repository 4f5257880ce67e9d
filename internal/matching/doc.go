// Package matching decides whether a statement is accepted by a rule.
//
// Two matchers are provided:
//
//   - Exact: the statement must be byte-equal to a literal.
//   - Pattern: the statement must fully match a regular expression (RE2
//     syntax). Patterns are anchored at both ends, so "SELECT .*" behaves
//     like "^(?:SELECT .*)$". Matching is case-sensitive unless the pattern
//     is compiled with caseSensitive set to false.
//
// Patterns are compiled once, when a rule set is built. An invalid pattern
// is reported by Pattern and never at match time.
package matching
