package protocol

// Error is a simple error type for protocol errors.
// It allows defining sentinel errors as constants.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Sentinel errors shared by adapters.
const (
	// ErrAlreadyRunning is returned when starting an adapter twice.
	ErrAlreadyRunning = Error("adapter is already running")

	// ErrNotRunning is returned when stopping an adapter that is not running.
	ErrNotRunning = Error("adapter is not running")

	// ErrConnectionNotFound is returned when looking up a connection by ID
	// that does not exist.
	ErrConnectionNotFound = Error("connection not found")
)
