package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"", []string{"info", "warn"}},
		{"debug", []string{"debug", "info", "warn"}},
		{"WARN", []string{"warn"}},
		{"error", nil},
		{"info+4", []string{"warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := New(&buf, Options{Level: tt.level, Format: "json"})
			require.NoError(t, err)

			log.Debug("debug")
			log.Info("info")
			log.Warn("warn")

			var got []string
			for _, rec := range decode(t, &buf) {
				got = append(got, rec["msg"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RejectsUnknownFlags(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	assert.ErrorContains(t, err, "loud")

	_, err = New(&bytes.Buffer{}, Options{Format: "yaml"})
	assert.ErrorContains(t, err, "yaml")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{Format: "TEXT"})
	require.NoError(t, err)

	log.Info("listening", "address", "127.0.0.1:3306")
	assert.Contains(t, buf.String(), "msg=listening")
	assert.Contains(t, buf.String(), "address=127.0.0.1:3306")
}

func TestNew_MaxStatement(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{Format: "json", MaxStatement: 8})
	require.NoError(t, err)

	log.Warn("no rule matched", StatementKey, "SELECT * FROM members")
	log.Warn("no rule matched", StatementKey, "SELECT 1")
	log.WithGroup("req").Warn("nested", StatementKey, "SELECT * FROM members")

	recs := decode(t, &buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "SELECT *...", recs[0][StatementKey])
	assert.Equal(t, "SELECT 1", recs[1][StatementKey])
	assert.Equal(t, "SELECT * FROM members", recs[2]["req"].(map[string]any)[StatementKey])
}

func TestComponentAndSession(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{Format: "json"})
	require.NoError(t, err)

	Session(Component(log, "server"), "s-1").Info("client connected")

	recs := decode(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "server", recs[0][ComponentKey])
	assert.Equal(t, "s-1", recs[0][SessionKey])
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	assert.False(t, OrDiscard(nil).Enabled(t.Context(), slog.LevelError))

	log := Discard()
	assert.Same(t, log, OrDiscard(log))
}
