// Package daemon coordinates the long-running animlab service.
//
// It wires configuration, the scene store, the mirror file, the background
// worker pool, and the HTTP API into a single lifecycle with flock-based
// locking so two services never share a data directory. Startup runs a
// preflight over the writable directories, seeds an empty store from the
// mirror, and logs a dependency snapshot.
//
// Keep orchestration here: request handling lives in internal/api and job
// bodies in internal/jobs.
package daemon
