// Package hub implements the I/O hub (spec §4.4): a single-threaded,
// edge-triggered event loop that owns the device endpoint, the listener, the
// signal source, and every accepted/console client, fanning device bytes out
// to clients and serializing client bytes into the device while propagating
// TCP backpressure end-to-end. Grounded on the teacher's top-level dispatch
// loop in host/host.go, generalized from USB transfer scheduling to byte
// fan-out/fan-in.
package hub
