package cli

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/getmockd/mysqlmock/pkg/admin"
	"github.com/getmockd/mysqlmock/pkg/engine"
	"github.com/getmockd/mysqlmock/pkg/logging"
	"github.com/getmockd/mysqlmock/pkg/metrics"
	"github.com/getmockd/mysqlmock/pkg/server"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds graceful shutdown after a signal.
const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	fixtures       fixtureFlags
	bindAddress    string
	port           int
	httpPort       int
	defaultLatency time.Duration

	// ready, when set, is called once both listeners are up.
	ready func(srv *server.Server, api *admin.API)
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve -f FIXTURE...",
		Short: "Start the mock server",
		Long: `Load fixtures and accept client connections. Each connection gets its own
session; globals and shared sequences are common to all of them.

With --http-port the REST API is served as well: globals can be read and
replaced under /api/v1/mock_server/globals/ and metrics scraped at /metrics.`,
		Example: `  mysqlmock serve -f cluster.yaml --port 3310 --http-port 8081
  mysqlmock serve -f 'fixtures/**/*.yaml' --default-latency 5ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, root, opts)
		},
	}
	opts.fixtures.register(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.bindAddress, "bind-address", server.DefaultBindAddress, "Address to listen on")
	f.IntVar(&opts.port, "port", server.DefaultPort, "Port for client connections")
	f.IntVar(&opts.httpPort, "http-port", 0, "Port for the REST API (0 disables it)")
	f.DurationVar(&opts.defaultLatency, "default-latency", 0, "Latency for rules that set none (overrides the fixture)")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	log, err := root.logger(cmd)
	if err != nil {
		return err
	}

	fx, c, err := opts.fixtures.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log.Info("fixtures loaded", "files", len(fx.Sources), "rules", c.Rules.Len())

	reg := metrics.Init()

	engOpts := []engine.Option{engine.WithLogger(logging.Component(log, "engine"))}
	if cmd.Flags().Changed("default-latency") {
		engOpts = append(engOpts, engine.WithDefaultLatency(opts.defaultLatency))
	}
	eng := c.NewEngine(engOpts...)

	srv := server.New(eng, server.Config{BindAddress: opts.bindAddress, Port: opts.port},
		server.WithLogger(logging.Component(log, "server")))
	if err := srv.Start(); err != nil {
		return err
	}

	var api *admin.API
	if opts.httpPort > 0 {
		api = admin.New(eng.Store(),
			admin.WithLogger(logging.Component(log, "admin")),
			admin.WithConnections(srv),
			admin.WithMetrics(reg),
		)
		addr := net.JoinHostPort(opts.bindAddress, strconv.Itoa(opts.httpPort))
		if err := api.Start(addr); err != nil {
			_ = srv.Shutdown(context.Background())
			return err
		}
	}

	if opts.ready != nil {
		opts.ready(srv, api)
	}
	<-ctx.Done()
	log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if api != nil {
		if err := api.Shutdown(sctx); err != nil {
			log.Warn("admin shutdown failed", "error", err)
		}
	}
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
