package response

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLError converts the error to the value go-sql-driver/mysql returns
// when a server sends this error packet.
func (e *Error) MySQLError() *mysql.MySQLError {
	me := &mysql.MySQLError{Number: e.Code, Message: e.Message}
	copy(me.SQLState[:], e.SQLState)
	return me
}

// FromMySQLError converts a driver error into a protocol error, so fixtures
// can replay errors captured from a real server.
func FromMySQLError(me *mysql.MySQLError) *Error {
	state := string(me.SQLState[:])
	if me.SQLState == [5]byte{} {
		state = DefaultSQLState
	}
	return &Error{Code: me.Number, SQLState: state, Message: me.Message}
}

// String formats the error the way the mysql command line client prints it.
func (e *Error) String() string {
	return fmt.Sprintf("ERROR %d (%s): %s", e.Code, e.SQLState, e.Message)
}
