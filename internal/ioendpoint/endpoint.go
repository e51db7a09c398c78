// Package ioendpoint defines the uniform endpoint contract the hub drives:
// every device and client endpoint, regardless of transport, implements
// [Endpoint] (spec §3). This mirrors the teacher's HostHAL/DeviceHAL
// pattern — one capability-set interface, many concrete backends — but the
// capability set here is I/O lifecycle rather than USB transfer shape.
package ioendpoint

import (
	"github.com/ardnew/termbridge/internal/ioresult"
	"github.com/ardnew/termbridge/internal/readiness"
)

// Endpoint is any I/O party owned by the hub: a device (serial, TCP-client,
// echo) or a client (accepted TCP, console). No method is ever called
// concurrently with itself or with another Endpoint's methods — the hub's
// loop is the sole caller (spec §5).
type Endpoint interface {
	// Connect is idempotent. A non-blocking connect may return
	// [ioerr.ErrInProgress]; the endpoint then reports Connected() == false
	// until a subsequent readiness event lets the hub's next Connect call
	// verify success.
	Connect(reg *readiness.Poller, token readiness.Token) error

	// Connected reports whether the endpoint is verified live.
	Connected() bool

	// DisconnectNeeded reports the sticky zombie flag: the endpoint has
	// entered an unrecoverable state and the hub should tear it down.
	DisconnectNeeded() bool

	// Disconnect deregisters and releases OS resources, clearing the
	// zombie flag.
	Disconnect(reg *readiness.Poller) error

	// Read returns one Data/Action/None result. Callable repeatedly until
	// None ("would block" under edge-triggered readiness).
	Read() (ioresult.Result, error)

	// Write returns the number of bytes accepted, 0 <= n <= len(b). Never
	// blocks.
	Write(b []byte) (int, error)

	// WritableInterest requests (on=true) or cancels (on=false) notification
	// when the endpoint can accept writes again. A no-op for endpoints that
	// are always writable.
	WritableInterest(reg *readiness.Poller, on bool) error

	// Tick is a periodic hook for timer-driven endpoints (console
	// key-binding timeouts).
	Tick()

	// Label is a human-readable address for logs and announcements.
	Label() string
}
