package rules

import (
	"github.com/getmockd/mysqlmock/internal/matching"
	"github.com/getmockd/mysqlmock/pkg/response"
	"github.com/getmockd/mysqlmock/pkg/state"
)

// Context is what a responder sees for one statement.
type Context struct {
	// Key identifies the responder for call counting: the rule name, or
	// "rule#N" for step N of a sequence.
	Key       string
	Statement string
	Captures  matching.Captures
	Session   *state.Session
	// Globals is only valid for the duration of the call.
	Globals *state.Tx
}

func (c *Context) lookupGlobal(k string) (any, bool) {
	if c.Globals == nil {
		return nil, false
	}
	return c.Globals.Lookup(k)
}

func (c *Context) global(k string) any {
	v, _ := c.lookupGlobal(k)
	return v
}

func (c *Context) lookupSession(k string) (any, bool) {
	if c.Session == nil {
		return nil, false
	}
	return c.Session.Lookup(k)
}

func (c *Context) sessionValue(k string) any {
	v, _ := c.lookupSession(k)
	return v
}

// Responder produces the response for a matched statement. An error means
// the fixture is broken, not that the server simulates a failure; simulated
// failures are returned as error responses.
type Responder interface {
	Respond(ctx *Context) (*response.Response, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx *Context) (*response.Response, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx *Context) (*response.Response, error) {
	return f(ctx)
}

// Static always answers with the same response.
type Static struct {
	Response *response.Response
}

// Respond implements Responder.
func (s Static) Respond(*Context) (*response.Response, error) {
	cp := *s.Response
	return &cp, nil
}
