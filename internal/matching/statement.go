package matching

// Captures holds the groups captured by a successful match. Groups[0] is the
// whole statement.
type Captures struct {
	Groups []string
	Named  map[string]string
}

// Matcher decides whether a rule applies to a statement.
type Matcher interface {
	// Match reports whether stmt is accepted and returns any captures.
	Match(stmt string) (Captures, bool)
	// String describes the matcher for logs and error messages.
	String() string
}
