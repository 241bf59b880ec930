// Package server runs the long-lived biblestudy HTTP process.
//
// It wires the chapter cache, study memory and completion gateway into a
// single mux behind request-id and optional bearer-token middleware, and
// holds a flock-based lock so only one instance serves a data directory at
// a time. Run owns the process lifecycle: logger setup, log retention, the
// startup readiness snapshot and graceful shutdown on SIGINT/SIGTERM.
package server
