package sequence

import (
	"testing"

	"github.com/getmockd/mysqlmock/internal/matching"
	"github.com/getmockd/mysqlmock/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCursors map[string]int

func (m mapCursors) Cursor(name string) int         { return m[name] }
func (m mapCursors) SetCursor(name string, pos int) { m[name] = pos }

func trxSteps() []Step[string] {
	return []Step[string]{
		{Matcher: matching.Exact("START TRANSACTION"), Responder: "start"},
		{Matcher: matching.MustPattern("SELECT .*", true), Responder: "select"},
		{Matcher: matching.Exact("COMMIT"), Responder: "commit"},
	}
}

// serve runs stmt through g the way the rule set does: try, then advance
// on a match.
func serve(g *Generator[string], c Cursors, stmt string) Outcome[string] {
	o := g.Try(stmt, c)
	if o.Status == Matched {
		g.Advance(c, o.Index)
	}
	return o
}

func TestGenerator_InOrder(t *testing.T) {
	g, err := New("trx", trxSteps(), Options{})
	require.NoError(t, err)
	c := mapCursors{}

	var got []string
	for _, stmt := range []string{"START TRANSACTION", "SELECT 1", "COMMIT"} {
		o := serve(g, c, stmt)
		require.Equal(t, Matched, o.Status, stmt)
		got = append(got, o.Step.Responder)
	}
	assert.Equal(t, []string{"start", "select", "commit"}, got)
	assert.Equal(t, 3, g.Position(c))

	o := serve(g, c, "START TRANSACTION")
	assert.Equal(t, Exhausted, o.Status)
}

func TestGenerator_MismatchDoesNotAdvance(t *testing.T) {
	g, err := New("trx", trxSteps(), Options{})
	require.NoError(t, err)
	c := mapCursors{}

	serve(g, c, "START TRANSACTION")

	o := serve(g, c, "COMMIT")
	assert.Equal(t, Mismatch, o.Status)
	assert.Equal(t, 1, o.Index)
	assert.Equal(t, 1, g.Position(c), "cursor must not skip ahead")

	o = serve(g, c, "SELECT @@port")
	assert.Equal(t, Matched, o.Status)
	assert.Equal(t, []string{"SELECT @@port"}, o.Captures.Groups)
}

func TestGenerator_Cyclic(t *testing.T) {
	g, err := New("ping", []Step[string]{
		{Matcher: matching.Exact("a"), Responder: "A"},
		{Matcher: matching.Exact("b"), Responder: "B"},
	}, Options{Cyclic: true})
	require.NoError(t, err)
	c := mapCursors{}

	for _, stmt := range []string{"a", "b", "a", "b", "a"} {
		require.Equal(t, Matched, serve(g, c, stmt).Status, stmt)
	}
	assert.Equal(t, 1, g.Position(c))
}

func TestGenerator_SessionCursorsAreIndependent(t *testing.T) {
	g, err := New("trx", trxSteps(), Options{Scope: ScopeSession})
	require.NoError(t, err)

	store := state.New(nil)
	a := store.NewSession()
	b := store.NewSession()

	for _, stmt := range []string{"START TRANSACTION", "SELECT 1", "COMMIT"} {
		require.Equal(t, Matched, serve(g, a, stmt).Status)
	}
	assert.Equal(t, 3, g.Position(a))
	assert.Equal(t, 0, g.Position(b))
	assert.Equal(t, Matched, serve(g, b, "START TRANSACTION").Status)

	store.CloseSession(a)
	c := store.NewSession()
	assert.Equal(t, 0, g.Position(c))
}

func TestGenerator_Reset(t *testing.T) {
	g, err := New("trx", trxSteps(), Options{})
	require.NoError(t, err)
	c := mapCursors{}

	serve(g, c, "START TRANSACTION")
	g.Reset(c)
	assert.Equal(t, 0, g.Position(c))
}

func TestGenerator_RejectError(t *testing.T) {
	g, err := New("trx", trxSteps(), Options{OnMismatch: MismatchReject})
	require.NoError(t, err)
	c := mapCursors{}

	o := g.Try("COMMIT", c)
	require.Equal(t, Mismatch, o.Status)
	e := g.RejectError(o, "COMMIT")
	assert.Equal(t, uint16(1273), e.Code)
	assert.Contains(t, e.Message, `exact "START TRANSACTION"`)
	assert.Contains(t, e.Message, "step 1")
	assert.Contains(t, e.Message, "COMMIT")
}

func TestNew_Validation(t *testing.T) {
	_, err := New[string]("", trxSteps(), Options{})
	assert.Error(t, err)

	_, err = New[string]("x", nil, Options{})
	assert.Error(t, err)

	_, err = New("x", []Step[string]{{Responder: "r"}}, Options{})
	assert.Error(t, err)

	g, err := New("x", trxSteps(), Options{})
	require.NoError(t, err)
	assert.Equal(t, ScopeSession, g.Options().Scope)
	assert.Equal(t, MismatchFallThrough, g.Options().OnMismatch)
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, "x", g.Name())
}

func TestParse(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeSession, s)

	s, err = ParseScope("Shared")
	require.NoError(t, err)
	assert.Equal(t, ScopeShared, s)

	_, err = ParseScope("cluster")
	assert.Error(t, err)

	p, err := ParseMismatchPolicy("REJECT")
	require.NoError(t, err)
	assert.Equal(t, MismatchReject, p)

	p, err = ParseMismatchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MismatchFallThrough, p)

	_, err = ParseMismatchPolicy("panic")
	assert.Error(t, err)

	assert.Equal(t, "exhausted", Exhausted.String())
}
