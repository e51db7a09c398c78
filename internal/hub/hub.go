package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardnew/termbridge/internal/action"
	"github.com/ardnew/termbridge/internal/endpoint/client"
	"github.com/ardnew/termbridge/internal/ioendpoint"
	"github.com/ardnew/termbridge/internal/ioerr"
	"github.com/ardnew/termbridge/internal/ioresult"
	"github.com/ardnew/termbridge/internal/readiness"
	"github.com/ardnew/termbridge/pkg/crabctl"
)

// pollTimeout is both the device connect-retry cadence and the tick cadence
// for endpoint Tick() calls (spec §4.4.7).
const pollTimeout = 100 * time.Millisecond

// Run drives the hub's event loop until a quit is requested (Ctrl-Q,
// SIGINT/SIGTERM, or a config-bound quit action) or ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	if h.listener != nil {
		if err := h.listener.Register(h.reg); err != nil {
			return fmt.Errorf("%w: %v", ioerr.ErrListenerBind, err)
		}
	}
	if err := h.signals.Register(h.reg); err != nil {
		return fmt.Errorf("%w: %v", ioerr.ErrSignalInstall, err)
	}

	for !h.quitRequested {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		h.runDeviceLifecycle()

		events, err := h.reg.Poll(pollTimeout)
		if err != nil {
			return err
		}
		for _, ev := range events {
			h.dispatch(ev)
		}

		h.tickClients()
		h.reap()
	}
	return nil
}

// runDeviceLifecycle implements spec §4.4.7, run once per outer iteration
// before polling.
func (h *Hub) runDeviceLifecycle() {
	if h.device.DisconnectNeeded() {
		_ = h.device.Disconnect(h.reg)
		// pending_device_write targeted an endpoint that no longer exists;
		// it is discarded, not replayed (spec §9).
		h.pendingDeviceWrite = nil
		// device_write_blocked stays true so clients remain throttled until
		// the device is usable again.
	}

	if h.device.Connected() {
		return
	}

	err := h.device.Connect(h.reg, readiness.TokenDevice)
	switch {
	case err == nil:
		h.deviceWriteBlocked = false
		h.deviceWarnedOnce = false
		h.announceInfo(h.device.Label(), "Connected")
		// Now edge-triggered, a client fd that became readable while the
		// device was disconnected won't fire again on its own; sweep every
		// client the same way relieveBackpressure does (spec §4.4.3/§9).
		h.drainPendingClientData()
	case errors.Is(err, ioerr.ErrInProgress):
		// silent: connect is pending, verified on a later writable event
	default:
		if !h.deviceWarnedOnce {
			h.announceError(h.device.Label(), err)
			h.deviceWarnedOnce = true
		}
	}
}

// dispatch classifies one readiness event by token (spec §4.4).
func (h *Hub) dispatch(ev readiness.Event) {
	switch ev.Token {
	case readiness.TokenDevice:
		h.handleDeviceEvent(ev)
	case readiness.TokenListener:
		h.handleListenerEvent()
	case readiness.TokenSignal:
		h.handleSignalEvent()
	default:
		if ep, ok := h.clients[ev.Token]; ok && !h.deviceWriteBlocked {
			h.drainClient(ev.Token, ep)
		}
	}
}

// handleDeviceEvent implements spec §4.4.1 (readability) and the writable
// half of §4.4.3 (backpressure relief).
func (h *Hub) handleDeviceEvent(ev readiness.Event) {
	if ev.Writable && h.deviceWriteBlocked {
		h.relieveBackpressure()
	}
	if ev.Readable {
		h.broadcastDeviceReads()
	}
}

// broadcastDeviceReads drains the device until would-block, fanning out
// every chunk read to every connected client via a single non-blocking
// best-effort write each — no per-client buffering (spec §4.4.1).
func (h *Hub) broadcastDeviceReads() {
	for {
		res, err := h.device.Read()
		if err != nil {
			// The device endpoint has already latched its zombie flag;
			// the next lifecycle pass tears it down and reconnects.
			return
		}
		if res.Kind != ioresult.KindData {
			return
		}
		h.fanOut(res.Data)
	}
}

func (h *Hub) fanOut(data []byte) {
	for _, ep := range h.clients {
		_, _ = ep.Write(data)
	}
}

// drainClient implements spec §4.4.2: loop client.Read() until None or
// error, routing Data through try_device_write and Action through the
// hub-level action handling. Returns early the moment the device blocks or
// quit is requested, leaving any further buffered client data for the next
// drain (the backpressure-relief sweep, or a later readiness edge).
func (h *Hub) drainClient(token readiness.Token, ep ioendpoint.Endpoint) {
	for {
		res, err := ep.Read()
		if err != nil {
			return
		}

		switch res.Kind {
		case ioresult.KindNone:
			return

		case ioresult.KindData:
			if !h.tryDeviceWrite(res.Data) {
				return
			}

		case ioresult.KindAction:
			switch res.Action.Kind {
			case action.KindQuit:
				h.quitRequested = true
				return
			case action.KindSend:
				if !h.tryDeviceWrite(res.Action.Send) {
					return
				}
			case action.KindFilterToggle:
				// Handled inside the console; the hub need not know filter
				// names (spec §4.4.8 design note).
			}
		}

		if h.quitRequested {
			return
		}
	}
}

// tryDeviceWrite implements spec §4.4.2's try_device_write: writes as much
// of b to the device as fits; anything left over is queued in
// pending_device_write and the device is marked write-blocked. Returns false
// iff the device is (now) write-blocked, signalling the caller to stop
// draining.
func (h *Hub) tryDeviceWrite(b []byte) bool {
	n, err := h.device.Write(b)
	if err != nil {
		return false
	}
	if n == len(b) {
		return true
	}

	h.pendingDeviceWrite = append(h.pendingDeviceWrite, b[n:]...)
	if !h.deviceWriteBlocked {
		h.deviceWriteBlocked = true
		_ = h.device.WritableInterest(h.reg, true)
		crabctl.LogInfo(crabctl.ComponentHub, "device write blocked", "device", h.device.Label())
	}
	return false
}

// relieveBackpressure implements spec §4.4.3.
func (h *Hub) relieveBackpressure() {
	h.deviceWriteBlocked = false
	_ = h.device.WritableInterest(h.reg, false)

	if len(h.pendingDeviceWrite) > 0 {
		buf := h.pendingDeviceWrite
		h.pendingDeviceWrite = nil
		if !h.tryDeviceWrite(buf) {
			return // blocked again; invariant 3 is restored
		}
	}

	h.drainPendingClientData()
}

// drainPendingClientData sweeps every client after backpressure relief.
// Edge-triggered readiness will not re-signal data that arrived while
// blocked, so this explicit sweep is mandatory (spec §4.4.3, §9).
func (h *Hub) drainPendingClientData() {
	for token, ep := range h.clients {
		if h.deviceWriteBlocked {
			return
		}
		h.drainClient(token, ep)
	}
}

// handleListenerEvent implements spec §4.4.4.
func (h *Hub) handleListenerEvent() {
	fds, err := h.listener.Accept()
	if err != nil {
		crabctl.LogWarn(crabctl.ComponentHub, "listener accept error", "error", err)
	}
	for _, fd := range fds {
		ep := client.NewTCP(fd)
		token, err := h.AddClient(ep)
		if err != nil {
			crabctl.LogWarn(crabctl.ComponentHub, "failed to register accepted client", "error", err)
			continue
		}
		crabctl.LogInfo(crabctl.ComponentHub, "client connected", "label", ep.Label(), "token", token)
		if h.announceEnabled {
			h.writeTo(ep, fmt.Sprintf("Info: %s: Connected\n\r", ep.Label()))
		}
	}
}

// handleSignalEvent implements spec §4.4.5.
func (h *Hub) handleSignalEvent() {
	if h.signals.Drain() > 0 {
		h.quitRequested = true
	}
}

// tickClients drives every endpoint's Tick() once per outer iteration, then
// drains any output it queued (spec §4.3.2's escape/prefix timeouts), gated
// by the same backpressure flag as any other client drain.
func (h *Hub) tickClients() {
	for _, ep := range h.clients {
		ep.Tick()
	}
	if h.deviceWriteBlocked {
		return
	}
	for token, ep := range h.clients {
		if h.deviceWriteBlocked {
			return
		}
		h.drainClient(token, ep)
	}
}

// reap implements spec §4.4.6: remove every client whose DisconnectNeeded is
// set, at the end of every event dispatch.
func (h *Hub) reap() {
	for token, ep := range h.clients {
		if ep.DisconnectNeeded() {
			_ = ep.Disconnect(h.reg)
			delete(h.clients, token)
			crabctl.LogInfo(crabctl.ComponentHub, "client disconnected", "label", ep.Label(), "token", token)
		}
	}
}

// announceInfo and announceError implement spec §4.4.8: the message is
// always logged; it is only fanned out to clients when announcements are
// enabled.
func (h *Hub) announceInfo(label, msg string) {
	crabctl.LogInfo(crabctl.ComponentHub, msg, "label", label)
	h.broadcastAnnouncement(fmt.Sprintf("Info: %s: %s\n\r", label, msg))
}

func (h *Hub) announceError(label string, cause error) {
	crabctl.LogWarn(crabctl.ComponentHub, "device error", "label", label, "error", cause)
	h.broadcastAnnouncement(fmt.Sprintf("Error: %s: %v\n\r", label, cause))
}

func (h *Hub) broadcastAnnouncement(line string) {
	if !h.announceEnabled {
		return
	}
	for _, ep := range h.clients {
		h.writeTo(ep, line)
	}
}

func (h *Hub) writeTo(ep ioendpoint.Endpoint, s string) {
	_, _ = ep.Write([]byte(s))
}
