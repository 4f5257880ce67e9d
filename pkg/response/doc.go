// Package response defines the outcomes the mock server hands back to a
// connection: a tabular result set, a protocol-level error, or an OK
// acknowledgement, each optionally carrying a simulated latency.
//
// Values are validated at construction. A result set whose rows do not match
// the column count fails with *ShapeError, and a cell that cannot be carried
// by its column's wire type fails with *ValueTypeError. Error codes and
// SQLSTATEs are deliberately not checked against any registry so fixtures
// can mimic ill-formed servers.
//
// Cell values are nil (NULL), int64, uint64, float64, string, bool or []byte.
package response
