package response

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage is returned when an error response has no message.
var ErrEmptyMessage = errors.New("error message cannot be empty")

// ShapeError is returned when a row's arity differs from the column count.
type ShapeError struct {
	Row     int
	Got     int
	Columns int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("row %d has %d values, expected %d columns", e.Row, e.Got, e.Columns)
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *ShapeError) Hint() string {
	return fmt.Sprintf("Every row must list exactly %d values; use null for missing cells.", e.Columns)
}

// ValueTypeError is returned when a cell cannot be carried by its column type.
type ValueTypeError struct {
	Row    int
	Column string
	Type   ColumnType
	Value  any
}

func (e *ValueTypeError) Error() string {
	return fmt.Sprintf("row %d column %q: value %v (%T) is not compatible with %s", e.Row, e.Column, e.Value, e.Value, e.Type)
}
