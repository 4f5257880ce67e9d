package state

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionClosed is returned when a closed session is used.
var ErrSessionClosed = errors.New("session closed")

// Value is a scalar stored in global or session state.
type Value = any

// Store is the process-wide state container.
type Store struct {
	mu           sync.Mutex
	initial      map[string]Value
	globals      map[string]Value
	cursors      map[string]int
	calls        map[string]int
	lastModified time.Time

	sessMu   sync.RWMutex
	sessions map[string]*Session
}

// New creates a Store seeded with the given global defaults.
func New(initial map[string]Value) *Store {
	s := &Store{
		initial:  maps.Clone(initial),
		sessions: make(map[string]*Session),
	}
	if s.initial == nil {
		s.initial = make(map[string]Value)
	}
	s.resetLocked()
	return s
}

func (s *Store) resetLocked() {
	s.globals = maps.Clone(s.initial)
	s.cursors = make(map[string]int)
	s.calls = make(map[string]int)
	s.lastModified = time.Now()
}

// GetGlobal returns the global value for key, or nil when unset.
func (s *Store) GetGlobal(key string) Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globals[key]
}

// SetGlobal sets a global value.
func (s *Store) SetGlobal(key string, v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globals[key] = v
	s.lastModified = time.Now()
}

// Globals returns a snapshot of all global values.
func (s *Store) Globals() map[string]Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.globals)
}

// ReplaceGlobals replaces all global values with vals.
// Shared cursors and call counters are kept.
func (s *Store) ReplaceGlobals(vals map[string]Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globals = maps.Clone(vals)
	if s.globals == nil {
		s.globals = make(map[string]Value)
	}
	s.lastModified = time.Now()
}

// ResetGlobals restores the initial globals and clears shared cursors and
// call counters.
func (s *Store) ResetGlobals() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// LastModified returns when global state last changed.
func (s *Store) LastModified() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastModified
}

// Update runs fn with exclusive access to global state and shared cursors.
// Writes made through the Tx are visible to every session as soon as fn
// returns. Writes are not rolled back if fn fails.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s}
	err := fn(tx)
	tx.s = nil
	if tx.dirty {
		s.lastModified = time.Now()
	}
	return err
}

// NewSession creates a session with empty state.
func (s *Store) NewSession() *Session {
	sess := newSession(uuid.NewString())

	s.sessMu.Lock()
	s.sessions[sess.id] = sess
	s.sessMu.Unlock()

	return sess
}

// CloseSession releases all state held by sess. Closing twice is a no-op.
func (s *Store) CloseSession(sess *Session) {
	if sess == nil {
		return
	}
	s.sessMu.Lock()
	delete(s.sessions, sess.id)
	s.sessMu.Unlock()

	sess.close()
}

// Session looks up a live session by ID.
func (s *Store) Session(id string) (*Session, bool) {
	s.sessMu.RLock()
	defer s.sessMu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// SessionCount returns the number of live sessions.
func (s *Store) SessionCount() int {
	s.sessMu.RLock()
	defer s.sessMu.RUnlock()
	return len(s.sessions)
}
