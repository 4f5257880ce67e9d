package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getmockd/mysqlmock/pkg/logging"
	"github.com/getmockd/mysqlmock/pkg/metrics"
	"github.com/getmockd/mysqlmock/pkg/protocol"
	"github.com/getmockd/mysqlmock/pkg/state"
)

// API routes.
const (
	GlobalsPath     = "/api/v1/mock_server/globals/"
	ConnectionsPath = "/api/v1/mock_server/connections/"
)

// API exposes a mock's state over HTTP.
type API struct {
	store   *state.Store
	conns   protocol.ConnectionManager
	metrics *metrics.Registry
	log     *slog.Logger

	startTime time.Time

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the API's logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// WithConnections enables the connections endpoints.
func WithConnections(cm protocol.ConnectionManager) Option {
	return func(a *API) {
		a.conns = cm
	}
}

// WithMetrics serves reg on /metrics. Without it /metrics answers 404.
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *API) {
		a.metrics = reg
	}
}

// New creates an API over store.
func New(store *state.Store, opts ...Option) *API {
	a := &API{
		store:     store,
		log:       logging.Discard(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the API's routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(GlobalsPath, a.handleGlobals)
	mux.HandleFunc("GET "+ConnectionsPath, a.handleListConnections)
	mux.HandleFunc("DELETE "+ConnectionsPath, a.handleCloseConnections)
	mux.HandleFunc("GET /health", a.handleHealth)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}
	return a.logRequests(mux)
}

// Start listens on addr and serves in the background.
func (a *API) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.srv != nil {
		_ = ln.Close()
		return protocol.ErrAlreadyRunning
	}
	a.listener = ln
	a.srv = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := a.srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("admin server failed", "error", err)
		}
	}()
	a.log.Info("admin API listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the listener address, or nil before Start.
func (a *API) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown stops the HTTP server.
func (a *API) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.srv
	a.srv = nil
	a.listener = nil
	a.mu.Unlock()
	if srv == nil {
		return protocol.ErrNotRunning
	}
	return srv.Shutdown(ctx)
}

// Uptime returns the API uptime in whole seconds.
func (a *API) Uptime() int {
	return int(time.Since(a.startTime).Seconds())
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		a.log.Debug("admin request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", strconv.Itoa(sw.status),
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
