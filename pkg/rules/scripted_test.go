package rules

import (
	"testing"
	"time"

	"github.com/getmockd/mysqlmock/internal/matching"
	"github.com/getmockd/mysqlmock/pkg/response"
	"github.com/getmockd/mysqlmock/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCell(t *testing.T, v any) Cell {
	t.Helper()
	c, err := CompileCell(v)
	require.NoError(t, err)
	return c
}

func mustExpr(t *testing.T, src string) *Expr {
	t.Helper()
	e, err := CompileExpr(src)
	require.NoError(t, err)
	return e
}

func respond(t *testing.T, store *state.Store, sess *state.Session, r Responder, ctx Context) (*response.Response, error) {
	t.Helper()
	var resp *response.Response
	var rerr error
	_ = store.Update(func(tx *state.Tx) error {
		ctx.Session = sess
		ctx.Globals = tx
		resp, rerr = r.Respond(&ctx)
		return nil
	})
	return resp, rerr
}

func TestCompileCell(t *testing.T) {
	store := state.New(map[string]state.Value{"port": 3310, "host": "10.0.0.1"})
	sess := store.NewSession()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"literal int", 42, 42},
		{"literal string", "ONLINE", "ONLINE"},
		{"nil", nil, nil},
		{"whole expression keeps type", "{{ global(\"port\") }}", 3310},
		{"interpolation", "{{ global(\"host\") }}:{{ global(\"port\") }}", "10.0.0.1:3310"},
		{"arithmetic", "{{ num(global(\"port\")) + 10 }}", int64(3320)},
		{"unset global", "{{ global(\"missing\") }}", nil},
		{"default", "{{ globalOr(\"missing\", \"x\") }}", "x"},
		{"statement", "{{ statement }}", "SELECT 1"},
		{"capture", "{{ captures[1] }}", "1"},
		{"braces without expression", "{not a template}", "{not a template}"},
		{"map literal", `{{ {"port": 3310}.port }}`, 3310},
		{"nested map literal", `{{ {"a": {"b": 7}}.a.b }}`, 7},
		{"brace in string", `{{ "}}" + "x" }}`, "}}x"},
		{"map literal in text", `port={{ {"p": 1}["p"] }};`, "port=1;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCell(t, tt.in)
			var got any
			var err error
			_ = store.Update(func(tx *state.Tx) error {
				ctx := &Context{
					Statement: "SELECT 1",
					Captures:  matching.Captures{Groups: []string{"SELECT 1", "1"}},
					Session:   sess,
					Globals:   tx,
				}
				got, err = c.Eval(NewEnv(ctx, 1))
				return nil
			})
			require.NoError(t, err)
			assert.EqualValues(t, tt.want, got)
		})
	}
}

func TestCompileExpr_SyntaxErrorAtLoad(t *testing.T) {
	_, err := CompileExpr("global(")
	assert.Error(t, err)

	_, err = CompileCell("{{ 1 + }}")
	assert.Error(t, err)

	_, err = CompileGuard(`"not a bool"`)
	assert.Error(t, err)
}

func TestCompileCell_MalformedTemplate(t *testing.T) {
	tests := []string{
		"{{ 1 + 1",
		"value {{ statement",
		`{{ "}}" `,
		"{{ 1 } }}",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := CompileCell(in)
			assert.Error(t, err)
		})
	}
}

func TestScripted_CountedVariants(t *testing.T) {
	store := state.New(nil)
	sess := store.NewSession()

	cols := []response.Column{{Name: "n", Type: response.TypeLong}}
	s := &Scripted{
		Variants: []*Template{
			{Kind: response.KindResult, Columns: cols, Rows: [][]Cell{{LiteralCell(1)}}},
			{Kind: response.KindResult, Columns: cols, Rows: [][]Cell{{mustCell(t, "{{ calls }}")}}},
		},
	}
	require.NoError(t, s.Validate())

	var got []any
	for range 4 {
		resp, err := respond(t, store, sess, s, Context{Key: "counted"})
		require.NoError(t, err)
		got = append(got, resp.Result.Rows[0][0])
	}
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, got)
}

func TestScripted_CountScope(t *testing.T) {
	store := state.New(nil)
	a := store.NewSession()
	b := store.NewSession()

	variants := []*Template{
		{Kind: response.KindOK, OK: &response.OK{Info: "first"}},
		{Kind: response.KindOK, OK: &response.OK{Info: "again"}},
	}

	global := &Scripted{Variants: variants, CountScope: ScopeGlobal}
	r, err := respond(t, store, a, global, Context{Key: "g"})
	require.NoError(t, err)
	assert.Equal(t, "first", r.OK.Info)
	r, err = respond(t, store, b, global, Context{Key: "g"})
	require.NoError(t, err)
	assert.Equal(t, "again", r.OK.Info)

	perSession := &Scripted{Variants: variants, CountScope: ScopeSession}
	r, err = respond(t, store, a, perSession, Context{Key: "s"})
	require.NoError(t, err)
	assert.Equal(t, "first", r.OK.Info)
	r, err = respond(t, store, b, perSession, Context{Key: "s"})
	require.NoError(t, err)
	assert.Equal(t, "first", r.OK.Info)
}

func TestScripted_ActionsRunBeforeRender(t *testing.T) {
	store := state.New(nil)
	sess := store.NewSession()

	s := &Scripted{
		Actions: []Action{
			{Op: OpIncr, Scope: ScopeGlobal, Key: "asked", By: 1},
			{Op: OpSet, Scope: ScopeSession, Key: "user", Value: mustExpr(t, "captures[1]")},
			{Op: OpUnset, Scope: ScopeGlobal, Key: "stale"},
		},
		Variants: []*Template{{
			Kind:    response.KindResult,
			Columns: []response.Column{{Name: "asked", Type: response.TypeLongLong}, {Name: "user", Type: response.TypeVarString}},
			Rows:    [][]Cell{{mustCell(t, `{{ global("asked") }}`), mustCell(t, `{{ session("user") }}`)}},
		}},
	}
	require.NoError(t, s.Validate())
	store.SetGlobal("stale", 1)

	resp, err := respond(t, store, sess, s, Context{
		Key:      "create",
		Captures: matching.Captures{Groups: []string{"CREATE USER bob", "bob"}},
	})
	require.NoError(t, err)
	assert.Equal(t, response.Row{int64(1), "bob"}, resp.Result.Rows[0])
	assert.Equal(t, "bob", sess.Get("user"))
	assert.Nil(t, store.GetGlobal("stale"))
}

func TestScripted_Requires(t *testing.T) {
	store := state.New(nil)
	sess := store.NewSession()

	s := &Scripted{
		Requires: []string{"primary_port"},
		Variants: []*Template{{Kind: response.KindOK}},
	}

	_, err := respond(t, store, sess, s, Context{Key: "r"})
	var missing *MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "primary_port", missing.Key)
	assert.Contains(t, missing.Hint(), "primary_port")

	store.SetGlobal("primary_port", 3310)
	_, err = respond(t, store, sess, s, Context{Key: "r"})
	assert.NoError(t, err)
}

func TestScripted_RequiredFunction(t *testing.T) {
	store := state.New(nil)
	sess := store.NewSession()

	s := &Scripted{Variants: []*Template{{
		Kind:    response.KindResult,
		Columns: []response.Column{{Name: "p", Type: response.TypeLong}},
		Rows:    [][]Cell{{mustCell(t, `{{ required("port") }}`)}},
	}}}

	_, err := respond(t, store, sess, s, Context{Key: "r"})
	assert.ErrorContains(t, err, `required global key "port" is not set`)
}

func TestScripted_BadCellTypeIsAnError(t *testing.T) {
	store := state.New(map[string]state.Value{"port": "not-a-number"})
	sess := store.NewSession()

	s := &Scripted{Variants: []*Template{{
		Kind:    response.KindResult,
		Columns: []response.Column{{Name: "p", Type: response.TypeLong}},
		Rows:    [][]Cell{{mustCell(t, `{{ global("port") }}`)}},
	}}}

	_, err := respond(t, store, sess, s, Context{Key: "r"})
	var typeErr *response.ValueTypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestScripted_ErrorVariant(t *testing.T) {
	store := state.New(nil)
	sess := store.NewSession()
	latency := 20 * time.Millisecond

	s := &Scripted{Variants: []*Template{{
		Kind: response.KindError,
		Error: &ErrorTemplate{
			Code:    2013,
			Message: mustCell(t, "Lost connection during '{{ statement }}'"),
		},
		Latency: &latency,
	}}}
	require.NoError(t, s.Validate())

	resp, err := respond(t, store, sess, s, Context{Key: "e", Statement: "SELECT 1"})
	require.NoError(t, err)
	require.Equal(t, response.KindError, resp.Kind)
	assert.Equal(t, uint16(2013), resp.Err.Code)
	assert.Equal(t, response.DefaultSQLState, resp.Err.SQLState)
	assert.Equal(t, "Lost connection during 'SELECT 1'", resp.Err.Message)
	assert.Equal(t, latency, resp.Latency)
}

func TestScripted_Validate(t *testing.T) {
	tests := []struct {
		name string
		s    *Scripted
	}{
		{"no variants", &Scripted{}},
		{"nil variant", &Scripted{Variants: []*Template{nil}}},
		{"shape", &Scripted{Variants: []*Template{{
			Kind:    response.KindResult,
			Columns: []response.Column{{Name: "a"}},
			Rows:    [][]Cell{{LiteralCell(1), LiteralCell(2)}},
		}}}},
		{"error without message", &Scripted{Variants: []*Template{{
			Kind: response.KindError, Error: &ErrorTemplate{Code: 1, Message: LiteralCell("")},
		}}}},
		{"bad action", &Scripted{
			Variants: []*Template{{Kind: response.KindOK}},
			Actions:  []Action{{Op: OpSet, Key: "k"}},
		}},
		{"unknown op", &Scripted{
			Variants: []*Template{{Kind: response.KindOK}},
			Actions:  []Action{{Op: "append", Key: "k"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.s.Validate())
		})
	}
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, s)

	s, err = ParseScope("SESSION")
	require.NoError(t, err)
	assert.Equal(t, ScopeSession, s)

	_, err = ParseScope("cluster")
	assert.Error(t, err)
}
