package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Attribute keys shared by every component.
const (
	ComponentKey = "component"
	SessionKey   = "session"
	StatementKey = "statement"
)

// Options mirror the logging flags of the mysqlmock command.
type Options struct {
	// Level is a slog level name such as "debug" or "warn+2". Empty means info.
	Level string

	// Format is "text" (the default) or "json".
	Format string

	// Source adds the calling file and line to each record.
	Source bool

	// MaxStatement cuts the statement attribute to this many bytes.
	// Zero logs statements whole.
	MaxStatement int
}

// New builds the process logger writing to w.
func New(w io.Writer, o Options) (*slog.Logger, error) {
	var level slog.Level
	if o.Level != "" {
		if err := level.UnmarshalText([]byte(o.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", o.Level, err)
		}
	}

	ho := &slog.HandlerOptions{Level: level, AddSource: o.Source}
	if o.MaxStatement > 0 {
		ho.ReplaceAttr = truncateStatement(o.MaxStatement)
	}

	switch strings.ToLower(o.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, ho)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, ho)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", o.Format)
	}
}

func truncateStatement(max int) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 || a.Key != StatementKey || a.Value.Kind() != slog.KindString {
			return a
		}
		if s := a.Value.String(); len(s) > max {
			a.Value = slog.StringValue(s[:max] + "...")
		}
		return a
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or Discard when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Component tags records with the subsystem that wrote them.
func Component(l *slog.Logger, name string) *slog.Logger {
	return OrDiscard(l).With(ComponentKey, name)
}

// Session tags records with a client session id.
func Session(l *slog.Logger, id string) *slog.Logger {
	return OrDiscard(l).With(SessionKey, id)
}
