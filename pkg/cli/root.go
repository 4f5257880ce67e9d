package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/getmockd/mysqlmock/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

type rootOptions struct {
	log logging.Options
}

func (o *rootOptions) logger(cmd *cobra.Command) (*slog.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), o.log)
}

// NewRootCommand builds the mysqlmock command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "mysqlmock",
		Short: "mysqlmock is a scriptable mock MySQL server",
		Long: `mysqlmock answers SQL statements from fixture files instead of a database.

Fixtures list rules that match statements exactly, by pattern or as an
ordered sequence, and reply with result sets, errors or OK packets. Rules
can read and update state shared by every connection or private to one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.log.Level, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.log.Format, "log-format", "text", "Log format (text, json)")
	pf.BoolVar(&opts.log.Source, "log-source", false, "Add source file and line to log records")
	pf.IntVar(&opts.log.MaxStatement, "log-statement-max", 0, "Cut logged statements to this many bytes (0 logs them whole)")

	root.AddCommand(
		newServeCommand(opts),
		newValidateCommand(),
		newQueryCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mysqlmock %s (commit %s, built %s)\n", Version, Commit, BuildDate)
			return err
		},
	}
}
