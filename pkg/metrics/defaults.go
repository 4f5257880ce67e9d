package metrics

import "sync"

// Default metrics, created by Init.
var (
	// StatementsTotal counts dispatched statements.
	// Labels: rule, kind (result, error, ok)
	StatementsTotal *Counter

	// UnmatchedTotal counts statements no rule accepted.
	UnmatchedTotal *Counter

	// ConfigFaultsTotal counts dispatches that failed because the fixture
	// is broken.
	ConfigFaultsTotal *Counter

	// ActiveSessions is the number of open client sessions.
	ActiveSessions *Gauge

	// SimulatedLatency tracks latency handed to connections, in seconds.
	SimulatedLatency *Histogram

	defaultRegistry *Registry
	initOnce        sync.Once
)

// Init creates the default metrics and returns their registry.
// It is idempotent.
func Init() *Registry {
	initOnce.Do(func() {
		defaultRegistry = NewRegistry()

		StatementsTotal = defaultRegistry.NewCounter(
			"mysqlmock_statements_total",
			"Statements dispatched, by matched rule and response kind",
			"rule", "kind",
		)
		UnmatchedTotal = defaultRegistry.NewCounter(
			"mysqlmock_unmatched_total",
			"Statements that matched no rule",
		)
		ConfigFaultsTotal = defaultRegistry.NewCounter(
			"mysqlmock_config_faults_total",
			"Dispatches that failed because of a broken fixture",
		)
		ActiveSessions = defaultRegistry.NewGauge(
			"mysqlmock_active_sessions",
			"Number of open client sessions",
		)
		SimulatedLatency = defaultRegistry.NewHistogram(
			"mysqlmock_simulated_latency_seconds",
			"Simulated latency applied before responses, in seconds",
			LatencyBuckets,
		)
	})
	return defaultRegistry
}

// DefaultRegistry returns the default registry, or nil before Init.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset drops the default metrics so Init can run again. Used in tests.
func Reset() {
	initOnce = sync.Once{}
	defaultRegistry = nil
	StatementsTotal = nil
	UnmatchedTotal = nil
	ConfigFaultsTotal = nil
	ActiveSessions = nil
	SimulatedLatency = nil
}
