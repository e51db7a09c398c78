// Package readiness wraps Linux epoll as the hub's single edge-triggered
// readiness primitive (spec §4.1). It registers an arbitrary [Token] per
// file descriptor, reports readability/writability batches from [Poller.Poll],
// and keeps a second always-present registration that drains pending
// SIGINT/SIGTERM through a self-pipe fed by [signal.Notify].
//
// Edge-triggered semantics are load-bearing: a caller must drain every ready
// endpoint until it reports would-block, because epoll will not re-signal
// data that arrived while the caller wasn't looking.
package readiness
