// Package sequence implements ordered statement expectations as a
// resumable cursor.
//
// A Generator holds a fixed list of steps. Each step pairs a matcher with a
// responder. The generator's cursor starts at 0; a statement matching the
// step at the cursor moves it forward by one. When the cursor reaches the
// end the sequence is exhausted, unless it is cyclic, in which case the
// cursor wraps to 0.
//
// The cursor itself is not stored in the Generator. It lives in a Cursors
// implementation chosen by Scope: the connection's session for
// ScopeSession, or the store's shared cursors (guarded by the global
// state lock) for ScopeShared. The generator is therefore immutable and
// safe to share across connections.
package sequence
