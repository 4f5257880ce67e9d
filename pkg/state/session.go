package state

import "sync/atomic"

// Session is the state owned by a single connection. A connection issues
// one statement at a time, so Session methods are not synchronized.
type Session struct {
	id      string
	vars    map[string]Value
	cursors map[string]int
	calls   map[string]int
	closed  atomic.Bool
}

func newSession(id string) *Session {
	return &Session{
		id:      id,
		vars:    make(map[string]Value),
		cursors: make(map[string]int),
		calls:   make(map[string]int),
	}
}

// ID returns the session handle.
func (s *Session) ID() string { return s.id }

// Closed reports whether the session was closed.
func (s *Session) Closed() bool { return s.closed.Load() }

// Get returns the session value for key, or nil when unset.
func (s *Session) Get(key string) Value {
	return s.vars[key]
}

// Lookup returns the session value for key and whether it is set.
func (s *Session) Lookup(key string) (Value, bool) {
	v, ok := s.vars[key]
	return v, ok
}

// Set sets a session value. It is a no-op on a closed session.
func (s *Session) Set(key string, v Value) {
	if s.Closed() {
		return
	}
	s.vars[key] = v
}

// Delete removes a session value.
func (s *Session) Delete(key string) {
	delete(s.vars, key)
}

// Incr adds by to the numeric session value at key and returns the result.
func (s *Session) Incr(key string, by int64) int64 {
	n, _ := Int(s.vars[key])
	n += by
	s.Set(key, n)
	return n
}

// Cursor returns the position of a session-scoped sequence cursor.
func (s *Session) Cursor(name string) int {
	return s.cursors[name]
}

// SetCursor moves a session-scoped sequence cursor.
func (s *Session) SetCursor(name string, pos int) {
	if s.Closed() {
		return
	}
	s.cursors[name] = pos
}

// Calls returns how often the named rule fired in this session.
func (s *Session) Calls(name string) int {
	return s.calls[name]
}

// AddCall records one firing of the named rule and returns the new count.
func (s *Session) AddCall(name string) int {
	if s.Closed() {
		return s.calls[name]
	}
	s.calls[name]++
	return s.calls[name]
}

func (s *Session) close() {
	if s.closed.Swap(true) {
		return
	}
	clear(s.vars)
	clear(s.cursors)
	clear(s.calls)
}
