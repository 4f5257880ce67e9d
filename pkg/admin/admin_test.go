package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getmockd/mysqlmock/pkg/metrics"
	"github.com/getmockd/mysqlmock/pkg/protocol"
	"github.com/getmockd/mysqlmock/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConns struct {
	infos  []protocol.ConnectionInfo
	closed int
}

func (f *fakeConns) ConnectionCount() int { return len(f.infos) }
func (f *fakeConns) ListConnections() []protocol.ConnectionInfo { return f.infos }
func (f *fakeConns) GetConnection(string) (*protocol.ConnectionInfo, error) {
	return nil, protocol.ErrConnectionNotFound
}
func (f *fakeConns) CloseConnection(string, string) error { return nil }
func (f *fakeConns) CloseAllConnections(string) int {
	n := len(f.infos)
	f.closed += n
	f.infos = nil
	return n
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var jsonHeader = map[string]string{"Content-Type": "application/json"}

func TestGlobals_Get(t *testing.T) {
	store := state.New(map[string]any{"primary_port": int64(3310), "cluster": "test"})
	h := New(store).Handler()

	rec := do(t, h, http.MethodGet, GlobalsPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"primary_port":3310,"cluster":"test"}`, rec.Body.String())

	lm := rec.Header().Get("Last-Modified")
	require.NotEmpty(t, lm)

	rec = do(t, h, http.MethodGet, GlobalsPath, "", map[string]string{"If-Modified-Since": lm})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	old := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	rec = do(t, h, http.MethodGet, GlobalsPath, "", map[string]string{"If-Modified-Since": old})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGlobals_Put(t *testing.T) {
	store := state.New(map[string]any{"old": 1})
	h := New(store).Handler()

	rec := do(t, h, http.MethodPut, GlobalsPath, `{"n": 5, "f": 0.5, "members": ["a", "b"]}`,
		map[string]string{"Content-Type": "application/json; charset=utf-8"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, map[string]any{
		"n":       int64(5),
		"f":       0.5,
		"members": []any{"a", "b"},
	}, store.Globals())
}

func TestGlobals_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		header     map[string]string
		wantStatus int
	}{
		{"wrong content type", http.MethodPut, `{}`, map[string]string{"Content-Type": "text/plain"}, http.StatusUnsupportedMediaType},
		{"no content type", http.MethodPut, `{}`, nil, http.StatusUnsupportedMediaType},
		{"invalid json", http.MethodPut, `{"a":`, jsonHeader, http.StatusUnprocessableEntity},
		{"not an object", http.MethodPut, `[1, 2]`, jsonHeader, http.StatusUnprocessableEntity},
		{"content range", http.MethodPut, `{}`, map[string]string{"Content-Type": "application/json", "Content-Range": "bytes 0-1/2"}, http.StatusNotImplemented},
		{"method", http.MethodPost, `{}`, jsonHeader, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.New(map[string]any{"keep": "me"})
			rec := do(t, New(store).Handler(), tt.method, GlobalsPath, tt.body, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, map[string]any{"keep": "me"}, store.Globals())
		})
	}
}

func TestGlobals_MethodNotAllowedSetsAllow(t *testing.T) {
	rec := do(t, New(state.New(nil)).Handler(), http.MethodDelete, GlobalsPath, "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, PUT", rec.Header().Get("Allow"))
}

func TestGlobals_InvalidJSONIsPlainText(t *testing.T) {
	rec := do(t, New(state.New(nil)).Handler(), http.MethodPut, GlobalsPath, `nope`, jsonHeader)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
}

func TestConnections(t *testing.T) {
	fc := &fakeConns{infos: []protocol.ConnectionInfo{{ID: "a"}, {ID: "b"}}}
	h := New(state.New(nil), WithConnections(fc)).Handler()

	rec := do(t, h, http.MethodGet, ConnectionsPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []protocol.ConnectionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	assert.Len(t, infos, 2)

	rec = do(t, h, http.MethodDelete, ConnectionsPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"closed":2}`, rec.Body.String())
	assert.Equal(t, 2, fc.closed)
}

func TestConnections_NotAttached(t *testing.T) {
	rec := do(t, New(state.New(nil)).Handler(), http.MethodDelete, ConnectionsPath, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	store := state.New(nil)
	store.NewSession()

	reg := metrics.NewRegistry()
	c := reg.NewCounter("test_requests_total", "Test counter")
	require.NoError(t, c.Inc())

	h := New(store, WithMetrics(reg)).Handler()

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Sessions)

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_requests_total 1")

	rec = do(t, New(store).Handler(), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_StartShutdown(t *testing.T) {
	a := New(state.New(map[string]any{"x": 1}))
	require.NoError(t, a.Start("127.0.0.1:0"))
	assert.ErrorIs(t, a.Start("127.0.0.1:0"), protocol.ErrAlreadyRunning)

	resp, err := http.Get("http://" + a.Addr().String() + GlobalsPath)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	assert.ErrorIs(t, a.Shutdown(ctx), protocol.ErrNotRunning)
}
