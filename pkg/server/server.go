package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/getmockd/mysqlmock/pkg/engine"
	"github.com/getmockd/mysqlmock/pkg/logging"
	"github.com/getmockd/mysqlmock/pkg/metrics"
	"github.com/getmockd/mysqlmock/pkg/protocol"
)

// Defaults match a stock server's listener.
const (
	DefaultBindAddress = "0.0.0.0"
	DefaultPort        = 3306
)

// Config holds listener settings.
type Config struct {
	BindAddress string
	// Port is the TCP port. Zero picks a free port.
	Port int
	// MaxStatementSize bounds a single statement line. Defaults to 1 MiB.
	MaxStatementSize int
}

// DefaultConfig returns the default listener settings.
func DefaultConfig() Config {
	return Config{BindAddress: DefaultBindAddress, Port: DefaultPort}
}

// Address returns host:port for the listener.
func (c Config) Address() string {
	host := c.BindAddress
	if host == "" {
		host = DefaultBindAddress
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// Server accepts client connections and feeds their statements to an
// engine. It implements protocol.ConnectionManager.
type Server struct {
	cfg    Config
	engine *engine.Engine
	log    *slog.Logger

	mu       sync.RWMutex
	listener net.Listener
	conns    map[string]*conn
	running  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ protocol.ConnectionManager = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a server. It does not listen until Start.
func New(eng *engine.Engine, cfg Config, opts ...Option) *Server {
	if cfg.MaxStatementSize <= 0 {
		cfg.MaxStatementSize = 1 << 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		engine: eng,
		log:    logging.Discard(),
		conns:  make(map[string]*conn),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on the configured address and accepts connections in the
// background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Address(), err)
	}
	if err := s.serve(ln); err != nil {
		_ = ln.Close()
		return err
	}
	return nil
}

// Serve accepts connections from ln in the background. The server owns ln
// afterwards.
func (s *Server) Serve(ln net.Listener) error {
	return s.serve(ln)
}

func (s *Server) serve(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return protocol.ErrAlreadyRunning
	}
	if s.ctx.Err() != nil {
		return protocol.ErrNotRunning
	}
	s.listener = ln
	s.running = true

	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.log.Info("listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(nc)
		}()
	}
}

// ServeConn runs the statement loop for one connection and returns when the
// client disconnects, the connection faults or the server shuts down.
func (s *Server) ServeConn(nc net.Conn) {
	s.wg.Add(1)
	defer s.wg.Done()
	s.handle(nc)
}

func (s *Server) handle(nc net.Conn) {
	store := s.engine.Store()
	sess := store.NewSession()
	c := newConn(s.ctx, nc, sess)

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	if metrics.ActiveSessions != nil {
		if g, err := metrics.ActiveSessions.WithLabels(); err == nil {
			g.Inc()
		}
	}
	s.log.Debug("client connected", "session", c.id, "remote", c.remote)

	defer func() {
		s.mu.Lock()
		delete(s.conns, c.id)
		s.mu.Unlock()
		_ = c.close()
		store.CloseSession(sess)
		if metrics.ActiveSessions != nil {
			if g, err := metrics.ActiveSessions.WithLabels(); err == nil {
				g.Dec()
			}
		}
		s.log.Debug("client disconnected", "session", c.id)
	}()

	c.run(s.engine, s.log, s.cfg.MaxStatementSize)
}

// Shutdown stops accepting, closes every connection and waits for their
// loops to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return protocol.ErrNotRunning
	}
	s.running = false
	ln := s.listener
	s.mu.Unlock()

	s.cancel()
	if ln != nil {
		_ = ln.Close()
	}
	s.CloseAllConnections("server shutting down")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// ListConnections returns information about all active connections.
func (s *Server) ListConnections() []protocol.ConnectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.ConnectionInfo, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c.info())
	}
	return out
}

// GetConnection returns information about one connection.
func (s *Server) GetConnection(id string) (*protocol.ConnectionInfo, error) {
	s.mu.RLock()
	c := s.conns[id]
	s.mu.RUnlock()
	if c == nil {
		return nil, protocol.ErrConnectionNotFound
	}
	info := c.info()
	return &info, nil
}

// CloseConnection closes one connection.
func (s *Server) CloseConnection(id string, reason string) error {
	s.mu.RLock()
	c := s.conns[id]
	s.mu.RUnlock()
	if c == nil {
		return protocol.ErrConnectionNotFound
	}
	s.log.Info("closing connection", "session", id, "reason", reason)
	return c.close()
}

// CloseAllConnections closes every connection and returns how many were
// closed. Their sessions are released as the loops exit.
func (s *Server) CloseAllConnections(reason string) int {
	s.mu.RLock()
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	count := 0
	for _, c := range conns {
		if err := c.close(); err == nil {
			count++
		}
	}
	if count > 0 {
		s.log.Info("closed connections", "count", count, "reason", reason)
	}
	return count
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
