// Package logging builds the slog logger shared by the engine, the
// connection server and the admin API.
//
//	log, err := logging.New(os.Stderr, logging.Options{Level: "debug", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	logging.Component(log, "server").Info("listening", "address", "0.0.0.0:3306")
//
// Components take a *slog.Logger through an option and fall back to
// Discard when none is given.
package logging
