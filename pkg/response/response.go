package response

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// DefaultSQLState is used when an error is built without a SQLSTATE.
const DefaultSQLState = "HY000"

// Kind identifies which variant a Response holds.
type Kind int

// Response kinds.
const (
	KindResult Kind = iota + 1
	KindError
	KindOK
)

func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindError:
		return "error"
	case KindOK:
		return "ok"
	default:
		return "unknown"
	}
}

// Resultset is a tabular result: ordered columns and rows of equal arity.
type Resultset struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Error is a protocol-level error returned to the client.
type Error struct {
	Code     uint16 `json:"code"`
	SQLState string `json:"sqlState"`
	Message  string `json:"message"`
}

// OK acknowledges a statement that produces no result set.
type OK struct {
	AffectedRows uint64 `json:"affectedRows,omitempty"`
	LastInsertID uint64 `json:"lastInsertId,omitempty"`
	Warnings     uint16 `json:"warnings,omitempty"`
	Info         string `json:"info,omitempty"`
}

// Response is the outcome of dispatching one statement. Exactly one of
// Result, Err and OK is set, as indicated by Kind.
type Response struct {
	Kind    Kind
	Result  *Resultset
	Err     *Error
	OK      *OK
	Latency time.Duration
	// LatencySet marks Latency as chosen by the responder, so that an
	// explicit zero still overrides the rule's latency.
	LatencySet bool
}

// NewResultset builds a result set, normalizing cell values to their
// canonical Go types. It fails with *ShapeError when a row's arity differs
// from the column count and with *ValueTypeError when a value does not fit
// its column.
func NewResultset(columns []Column, rows []Row) (*Resultset, error) {
	cols := make([]Column, len(columns))
	copy(cols, columns)

	out := make([]Row, len(rows))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, &ShapeError{Row: i, Got: len(row), Columns: len(cols)}
		}
		norm := make(Row, len(row))
		for j, v := range row {
			nv, ok := normalize(v, cols[j].Type)
			if !ok {
				return nil, &ValueTypeError{Row: i, Column: cols[j].Name, Type: cols[j].Type, Value: v}
			}
			norm[j] = nv
		}
		out[i] = norm
	}
	return &Resultset{Columns: cols, Rows: out}, nil
}

// MustResultset is like NewResultset but panics on error. Intended for
// tests and static tables.
func MustResultset(columns []Column, rows []Row) *Resultset {
	rs, err := NewResultset(columns, rows)
	if err != nil {
		panic(err)
	}
	return rs
}

// NewError builds a protocol error. The message is required; an empty
// sqlState defaults to HY000.
func NewError(code uint16, sqlState, message string) (*Error, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if sqlState == "" {
		sqlState = DefaultSQLState
	}
	return &Error{Code: code, SQLState: sqlState, Message: message}, nil
}

// Result wraps a result set in a Response.
func Result(rs *Resultset) *Response {
	return &Response{Kind: KindResult, Result: rs}
}

// Failure wraps a protocol error in a Response.
func Failure(e *Error) *Response {
	return &Response{Kind: KindError, Err: e}
}

// Ack wraps an acknowledgement in a Response. A nil ok is an empty one.
func Ack(ok *OK) *Response {
	if ok == nil {
		ok = &OK{}
	}
	return &Response{Kind: KindOK, OK: ok}
}

// WithLatency returns a shallow copy of r carrying the given latency.
// Negative durations are clamped to zero.
func (r *Response) WithLatency(d time.Duration) *Response {
	cp := *r
	cp.Latency = max(d, 0)
	cp.LatencySet = true
	return &cp
}

// Validate checks that the response is a well-formed variant.
func (r *Response) Validate() error {
	if r == nil {
		return errors.New("nil response")
	}
	switch r.Kind {
	case KindResult:
		if r.Result == nil {
			return errors.New("result response without result set")
		}
		cols := r.Result.Columns
		for i, row := range r.Result.Rows {
			if len(row) != len(cols) {
				return &ShapeError{Row: i, Got: len(row), Columns: len(cols)}
			}
			for j, v := range row {
				if _, ok := normalize(v, cols[j].Type); !ok {
					return &ValueTypeError{Row: i, Column: cols[j].Name, Type: cols[j].Type, Value: v}
				}
			}
		}
	case KindError:
		if r.Err == nil {
			return errors.New("error response without error")
		}
		if r.Err.Message == "" {
			return ErrEmptyMessage
		}
	case KindOK:
		if r.OK == nil {
			return errors.New("ok response without acknowledgement")
		}
	default:
		return fmt.Errorf("unknown response kind %d", r.Kind)
	}
	if r.Latency < 0 {
		return fmt.Errorf("negative latency %s", r.Latency)
	}
	return nil
}

func normalize(v any, t ColumnType) (any, bool) {
	if v == nil {
		return nil, true
	}
	if t == TypeNull {
		return nil, false
	}

	v = canonical(v)
	switch {
	case t.IsInteger():
		switch x := v.(type) {
		case int64, uint64:
			return x, true
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return int64(x), true
			}
		case bool:
			if x {
				return int64(1), true
			}
			return int64(0), true
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n, true
			}
			if n, err := strconv.ParseUint(x, 10, 64); err == nil {
				return n, true
			}
		}
		return nil, false
	case t.IsNumeric():
		switch x := v.(type) {
		case int64, uint64, float64:
			return x, true
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f, true
			}
		}
		return nil, false
	default:
		switch x := v.(type) {
		case string, []byte:
			return x, true
		default:
			return FormatValue(x), true
		}
	}
}

func canonical(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// FormatValue renders a cell value as text. NULL renders as "NULL".
func FormatValue(v any) string {
	switch x := canonical(v).(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}
