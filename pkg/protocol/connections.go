package protocol

import "time"

// ConnectionManager is implemented by adapters that hold client
// connections, each bound to one engine session.
type ConnectionManager interface {
	// ConnectionCount returns the number of active connections.
	ConnectionCount() int

	// ListConnections returns information about all active connections.
	ListConnections() []ConnectionInfo

	// GetConnection returns information about a specific connection.
	// Returns ErrConnectionNotFound if the connection does not exist.
	GetConnection(id string) (*ConnectionInfo, error)

	// CloseConnection closes a specific connection with the given reason.
	// Returns ErrConnectionNotFound if the connection does not exist.
	CloseConnection(id string, reason string) error

	// CloseAllConnections closes all connections with the given reason.
	// Returns the number of connections that were closed.
	CloseAllConnections(reason string) int
}

// ConnectionInfo describes a client connection.
type ConnectionInfo struct {
	// ID is the connection's session ID.
	ID string `json:"id"`

	// RemoteAddr is the client's network address.
	RemoteAddr string `json:"remoteAddr"`

	// ConnectedAt is when the connection was established.
	ConnectedAt time.Time `json:"connectedAt"`

	// LastActivity is when the last statement was received.
	LastActivity time.Time `json:"lastActivity"`

	// Statements is the number of statements dispatched.
	Statements int64 `json:"statements"`

	BytesSent     int64 `json:"bytesSent"`
	BytesReceived int64 `json:"bytesReceived"`
}
