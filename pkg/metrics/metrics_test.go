package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("test_total", "help", "rule")

	vec, err := c.WithLabels("a")
	require.NoError(t, err)
	require.NoError(t, vec.Inc())
	require.NoError(t, vec.Add(2))
	assert.ErrorIs(t, vec.Add(-1), ErrNegativeCounterValue)

	assert.Equal(t, float64(3), c.Value("a"))
	assert.Equal(t, float64(0), c.Value("b"))

	_, err = c.WithLabels("a", "b")
	assert.ErrorIs(t, err, ErrLabelCountMismatch)
}

func TestCounter_Concurrent(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("test_total", "help")

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, float64(100), c.Value())
}

func TestGauge(t *testing.T) {
	r := NewRegistry()
	g := r.NewGauge("sessions", "help")

	vec, err := g.WithLabels()
	require.NoError(t, err)
	vec.Inc()
	vec.Inc()
	vec.Dec()
	assert.Equal(t, float64(1), g.Value())

	require.NoError(t, g.Set(7))
	assert.Equal(t, float64(7), g.Value())
}

func TestHistogram(t *testing.T) {
	r := NewRegistry()
	h := r.NewHistogram("latency_seconds", "help", []float64{0.1, 1})

	require.NoError(t, h.Observe(0.25))
	require.NoError(t, h.Observe(0.5))
	require.NoError(t, h.Observe(4))

	var buf bytes.Buffer
	r.WriteTo(&buf)
	out := buf.String()

	assert.Contains(t, out, `latency_seconds_bucket{le="0.1"} 0`)
	assert.Contains(t, out, `latency_seconds_bucket{le="1"} 2`)
	assert.Contains(t, out, `latency_seconds_bucket{le="+Inf"} 3`)
	assert.Contains(t, out, "latency_seconds_count 3")
	assert.Contains(t, out, "latency_seconds_sum 4.75")
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("x", "help")
	assert.Panics(t, func() { r.NewGauge("x", "help") })
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("statements_total", "Statements\nserved", "rule")
	vec, err := c.WithLabels(`say "hi"`)
	require.NoError(t, err)
	require.NoError(t, vec.Inc())
	r.NewCounter("unused_total", "never incremented")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	body := rec.Body.String()
	assert.Contains(t, body, `# HELP statements_total Statements\nserved`)
	assert.Contains(t, body, "# TYPE statements_total counter")
	assert.Contains(t, body, `statements_total{rule="say \"hi\""} 1`)
	assert.NotContains(t, body, "unused_total")
}

func TestInitAndReset(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	r := Init()
	require.NotNil(t, r)
	assert.Same(t, r, Init())
	assert.Same(t, r, DefaultRegistry())
	require.NotNil(t, StatementsTotal)
	require.NotNil(t, SimulatedLatency)

	Reset()
	assert.Nil(t, StatementsTotal)
	assert.Nil(t, DefaultRegistry())
}
