package server

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/mysqlmock/pkg/engine"
	"github.com/getmockd/mysqlmock/pkg/logging"
	"github.com/getmockd/mysqlmock/pkg/metrics"
	"github.com/getmockd/mysqlmock/pkg/protocol"
	"github.com/getmockd/mysqlmock/pkg/response"
	"github.com/getmockd/mysqlmock/pkg/state"
)

type conn struct {
	id          string
	remote      string
	nc          net.Conn
	sess        *state.Session
	connectedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error

	lastActivity atomic.Int64
	statements   atomic.Int64
	bytesSent    atomic.Int64
	bytesRecv    atomic.Int64
}

func newConn(parent context.Context, nc net.Conn, sess *state.Session) *conn {
	ctx, cancel := context.WithCancel(parent)
	c := &conn{
		id:          sess.ID(),
		nc:          nc,
		sess:        sess,
		connectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
	if addr := nc.RemoteAddr(); addr != nil {
		c.remote = addr.String()
	}
	c.lastActivity.Store(c.connectedAt.UnixNano())
	return c
}

func (c *conn) info() protocol.ConnectionInfo {
	return protocol.ConnectionInfo{
		ID:            c.id,
		RemoteAddr:    c.remote,
		ConnectedAt:   c.connectedAt,
		LastActivity:  time.Unix(0, c.lastActivity.Load()),
		Statements:    c.statements.Load(),
		BytesSent:     c.bytesSent.Load(),
		BytesReceived: c.bytesRecv.Load(),
	}
}

// close is safe to call from any goroutine. Only the first call reports
// the underlying close error; later calls return net.ErrClosed.
func (c *conn) close() error {
	err := net.ErrClosed
	c.closeOnce.Do(func() {
		c.cancel()
		c.closeErr = c.nc.Close()
		err = c.closeErr
	})
	return err
}

func (c *conn) write(r Reply) error {
	b, err := r.encode()
	if err != nil {
		return err
	}
	n, err := c.nc.Write(b)
	c.bytesSent.Add(int64(n))
	return err
}

func (c *conn) run(eng *engine.Engine, log *slog.Logger, maxStatement int) {
	stop := context.AfterFunc(c.ctx, func() { _ = c.close() })
	defer stop()
	log = logging.Session(log, c.id)

	sc := bufio.NewScanner(c.nc)
	sc.Buffer(make([]byte, 0, 4096), maxStatement)

	for sc.Scan() {
		line := sc.Text()
		c.bytesRecv.Add(int64(len(line) + 1))

		stmt := strings.TrimSpace(line)
		if stmt == "" {
			continue
		}
		c.statements.Add(1)
		c.lastActivity.Store(time.Now().UnixNano())

		resp, latency, err := eng.Dispatch(stmt, c.sess)
		if err != nil {
			if engine.IsConfigurationFault(err) {
				_ = c.write(Reply{Fault: err.Error()})
			}
			return
		}

		if resp.Kind == response.KindError {
			log.Debug("modeled error", "error", resp.Err.MySQLError())
		}
		if metrics.SimulatedLatency != nil {
			_ = metrics.SimulatedLatency.Observe(latency.Seconds())
		}
		if err := sleep(c.ctx, latency); err != nil {
			return
		}
		if err := c.write(NewReply(resp)); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
	}

	if err := sc.Err(); err != nil && c.ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		log.Warn("read failed", "error", err)
	}
}
