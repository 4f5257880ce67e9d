package admin

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/getmockd/mysqlmock/pkg/state"
)

// maxBodySize bounds a PUT body.
const maxBodySize = 1 << 20

// ErrorResponse is the body of a JSON error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   int    `json:"uptime"`
	Sessions int    `json:"sessions"`
}

// CloseResponse is the body of DELETE on the connections route.
type CloseResponse struct {
	Closed int `json:"closed"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Uptime:   a.Uptime(),
		Sessions: a.store.SessionCount(),
	})
}

func (a *API) handleGlobals(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Range") != "" {
		writeError(w, http.StatusNotImplemented, "not_implemented", "Content-Range is not supported")
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		a.getGlobals(w, r)
	case http.MethodPut:
		a.putGlobals(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed")
	}
}

func (a *API) getGlobals(w http.ResponseWriter, r *http.Request) {
	modified := a.store.LastModified().UTC().Truncate(time.Second)
	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		if t, err := http.ParseTime(ims); err == nil && !modified.After(t) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
	writeJSON(w, http.StatusOK, a.store.Globals())
}

func (a *API) putGlobals(w http.ResponseWriter, r *http.Request) {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_failed", err.Error())
		return
	}
	if len(body) > maxBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
		return
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, "invalid JSON: "+err.Error()+"\n")
		return
	}
	obj, ok := state.FromJSON(doc).(map[string]any)
	if !ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, "expected a JSON object\n")
		return
	}

	a.store.ReplaceGlobals(obj)
	a.log.Info("globals replaced", "keys", len(obj))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListConnections(w http.ResponseWriter, _ *http.Request) {
	if a.conns == nil {
		writeError(w, http.StatusNotFound, "no_connections", "no connection adapter attached")
		return
	}
	writeJSON(w, http.StatusOK, a.conns.ListConnections())
}

func (a *API) handleCloseConnections(w http.ResponseWriter, _ *http.Request) {
	if a.conns == nil {
		writeError(w, http.StatusNotFound, "no_connections", "no connection adapter attached")
		return
	}
	n := a.conns.CloseAllConnections("closed via admin API")
	writeJSON(w, http.StatusOK, CloseResponse{Closed: n})
}
