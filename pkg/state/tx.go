package state

// Tx gives access to global state inside Store.Update. It must not be
// retained after the update function returns.
type Tx struct {
	s     *Store
	dirty bool
}

// Get returns the global value for key, or nil when unset.
func (tx *Tx) Get(key string) Value {
	return tx.s.globals[key]
}

// Lookup returns the global value for key and whether it is set.
func (tx *Tx) Lookup(key string) (Value, bool) {
	v, ok := tx.s.globals[key]
	return v, ok
}

// Set sets a global value.
func (tx *Tx) Set(key string, v Value) {
	tx.s.globals[key] = v
	tx.dirty = true
}

// Delete removes a global value.
func (tx *Tx) Delete(key string) {
	delete(tx.s.globals, key)
	tx.dirty = true
}

// Incr adds by to the numeric global at key and returns the new value.
// Unset and non-numeric values count as zero.
func (tx *Tx) Incr(key string, by int64) int64 {
	n, _ := Int(tx.s.globals[key])
	n += by
	tx.s.globals[key] = n
	tx.dirty = true
	return n
}

// Cursor returns the position of a shared sequence cursor.
func (tx *Tx) Cursor(name string) int {
	return tx.s.cursors[name]
}

// SetCursor moves a shared sequence cursor.
func (tx *Tx) SetCursor(name string, pos int) {
	tx.s.cursors[name] = pos
}

// Calls returns how often the named rule fired across all sessions.
func (tx *Tx) Calls(name string) int {
	return tx.s.calls[name]
}

// AddCall records one firing of the named rule and returns the new count.
func (tx *Tx) AddCall(name string) int {
	tx.s.calls[name]++
	return tx.s.calls[name]
}
