// Package ioerr collects the sentinel errors shared across termbridge's
// endpoints and hub, following the error taxonomy of spec §7.
package ioerr

import "errors"

// Endpoint-recoverable errors: expected, retried automatically.
var (
	// ErrInProgress indicates a non-blocking connect is still pending
	// verification; the caller should retry after the next readiness event.
	ErrInProgress = errors.New("connect in progress")

	// ErrNotYetConnected is returned by read/write before Connected() is true.
	ErrNotYetConnected = errors.New("endpoint not yet connected")

	// ErrWouldBlock indicates no data is currently available; under
	// edge-triggered readiness this is the normal way a drain loop ends.
	ErrWouldBlock = errors.New("would block")
)

// Endpoint-terminal errors: the endpoint enters the zombie state.
var (
	// ErrZombie indicates the endpoint has suffered an unrecoverable I/O
	// error and is awaiting teardown by the hub.
	ErrZombie = errors.New("endpoint in zombie state")

	// ErrEOF indicates the peer closed a stream endpoint.
	ErrEOF = errors.New("endpoint reached eof")
)

// Startup-fatal errors.
var (
	ErrBadDeviceSpec  = errors.New("unrecognized device specification")
	ErrListenerBind   = errors.New("failed to bind listener port")
	ErrLogFileOpen    = errors.New("failed to open log file")
	ErrSignalInstall  = errors.New("failed to install signal handlers")
	ErrHeadlessNoPort = errors.New("--headless requires -p/--port")
	ErrBadLogLevel    = errors.New("unrecognized log level")
)

// Consumer-fatal assertion: a deregister failure from the readiness
// primitive indicates the registry and the hub's bookkeeping have diverged.
// This is treated as a bug rather than a recoverable condition.
var ErrRegistryInconsistent = errors.New("readiness registry inconsistent: deregister failed")

// ErrConfigParse wraps a recoverable key-binding config parse failure; the
// caller logs a warning and substitutes defaults rather than aborting.
var ErrConfigParse = errors.New("key-binding config parse error")
