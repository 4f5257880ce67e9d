package server

import (
	"encoding/json"

	"github.com/getmockd/mysqlmock/pkg/response"
)

// Reply is one line sent to the client. Exactly one field is set.
type Reply struct {
	Result *response.Resultset `json:"result,omitempty"`
	Error  *response.Error     `json:"error,omitempty"`
	OK     *response.OK        `json:"ok,omitempty"`
	Fault  string              `json:"fault,omitempty"`
}

// NewReply converts a response to its wire form. Byte cells are sent as
// strings and a result without rows carries an empty list.
func NewReply(resp *response.Response) Reply {
	switch resp.Kind {
	case response.KindResult:
		rs := &response.Resultset{Columns: resp.Result.Columns, Rows: make([]response.Row, len(resp.Result.Rows))}
		for i, row := range resp.Result.Rows {
			out := make(response.Row, len(row))
			for j, v := range row {
				if b, ok := v.([]byte); ok {
					v = string(b)
				}
				out[j] = v
			}
			rs.Rows[i] = out
		}
		return Reply{Result: rs}
	case response.KindError:
		return Reply{Error: resp.Err}
	default:
		ok := resp.OK
		if ok == nil {
			ok = &response.OK{}
		}
		return Reply{OK: ok}
	}
}

// encode renders r as a single line.
func (r Reply) encode() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
