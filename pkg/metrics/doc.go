// Package metrics provides counters, gauges and histograms for the mock
// server, exposed in the Prometheus text format.
//
// Default metrics are created by Init and live in package variables so any
// component can record without plumbing. Every default is nil until Init
// is called; callers check for nil before recording.
//
//	reg := metrics.Init()
//	http.Handle("/metrics", reg.Handler())
//
//	if metrics.StatementsTotal != nil {
//	    if vec, err := metrics.StatementsTotal.WithLabels("select-members", "result"); err == nil {
//	        _ = vec.Inc()
//	    }
//	}
package metrics
