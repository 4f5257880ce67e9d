// Package protocol defines the contracts shared by connection adapters and
// the admin API.
//
// An adapter that keeps client connections open implements
// ConnectionManager so the admin API can list and close them without
// knowing how the adapter frames statements:
//
//	if cm, ok := adapter.(protocol.ConnectionManager); ok {
//	    closed := cm.CloseAllConnections("reset by admin")
//	}
package protocol
