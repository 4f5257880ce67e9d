// Package rules holds the ordered rule set that maps statements to
// responses.
//
// A Rule pairs a matcher, or a sequence of matcher/responder steps, with a
// Responder. Rules are evaluated in declaration order and the first one
// accepting the statement wins, so specific rules placed early shadow
// catch-alls placed late. A Set is immutable once built.
//
// Scripted responders are the fixture-driven kind. They can:
//
//   - pick a response variant by call count ("the 3rd time this fired"),
//   - compute cells from state with {{ expression }} templates,
//   - mutate global or session state through set/incr/unset actions,
//   - demand that global keys exist before answering.
//
// Expressions use github.com/expr-lang/expr and are compiled when the rule
// set is built, so syntax errors surface before the first statement is
// served. The environment exposes:
//
//	statement          the statement text
//	captures           pattern groups, captures[0] is the whole statement
//	named              named pattern groups
//	calls              how often this responder fired, including this call
//	global(k)          global value, nil when unset
//	globalOr(k, def)   global value or def
//	session(k)         session value, nil when unset
//	sessionOr(k, def)  session value or def
//	required(k)        global value; fails the dispatch when unset
//	num(v)             v as an integer, nil counting as 0
package rules
