// Package state holds the two state scopes the dispatch engine works with.
//
// Global state is shared by every connection for the lifetime of the process.
// Session state is private to one connection: it starts empty when the
// connection is accepted and is dropped when it closes.
//
// All access to global state and to shared sequence cursors goes through a
// single mutex. Store.Update runs a function with that mutex held, which is
// how read-modify-write sequences (counters, cursor advances) stay atomic
// across connections. Session state is owned by one connection at a time
// and is not locked.
//
// Reading a key that was never set returns nil; numeric helpers treat nil
// as zero.
package state
