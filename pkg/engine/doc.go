// Package engine dispatches client statements to scripted responses.
//
// An Engine owns an immutable rule set and the shared state store. Each
// connection opens a session with the store and hands every decoded
// statement to Dispatch, which returns the response together with the
// latency the connection should wait before delivering it:
//
//	eng := engine.New(set, store, engine.WithLogger(logger))
//	sess := store.NewSession()
//	defer store.CloseSession(sess)
//
//	resp, delay, err := eng.Dispatch("SELECT @@port", sess)
//	if engine.IsConfigurationFault(err) {
//	    // the fixture is broken: fail the test run
//	}
//
// Dispatch never sleeps and never performs I/O. Rule resolution, sequence
// cursors, responder side effects and call counting all happen inside one
// state.Store.Update call, so concurrent connections observe a single total
// order of state changes.
//
// Statements no rule accepts are answered with a protocol error (1273 by
// default), not a Go error. A Go error from Dispatch means either the
// session is unusable or the fixture is broken (*ConfigurationFault).
package engine
