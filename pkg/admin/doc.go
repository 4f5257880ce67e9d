// Package admin serves the REST control surface of a running mock: reading
// and replacing global state, listing and dropping client connections,
// health and Prometheus metrics.
package admin
