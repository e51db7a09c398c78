//go:build linux

package client

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/termbridge/internal/action"
	"github.com/ardnew/termbridge/internal/ioendpoint"
	"github.com/ardnew/termbridge/internal/iofilter"
	"github.com/ardnew/termbridge/internal/ioresult"
	"github.com/ardnew/termbridge/internal/keybind"
	"github.com/ardnew/termbridge/internal/readiness"
)

// Console is the local interactive client endpoint (spec §4.3, §3's
// lifecycle note: "exists iff the process is not headless; lives for the
// process lifetime; cannot disconnect"). It layers the key parser, the
// prefix-key processor, and the filter chain over the raw stdin/stdout file
// descriptors.
type Console struct {
	stdinFD, stdoutFD int
	token             readiness.Token

	proc  *keybind.Processor
	chain *iofilter.Chain

	queue   []keybind.Output
	readBuf [4096]byte
}

var _ ioendpoint.Endpoint = (*Console)(nil)

// NewConsole builds a console endpoint over the given raw, already-raw-mode
// stdin/stdout descriptors.
func NewConsole(stdinFD, stdoutFD int, proc *keybind.Processor, chain *iofilter.Chain) *Console {
	return &Console{stdinFD: stdinFD, stdoutFD: stdoutFD, proc: proc, chain: chain}
}

// Connect implements [ioendpoint.Endpoint]; registers stdin for readability.
// Idempotent, and always succeeds once registered — the console has no
// verify-on-writable step like a TCP device.
func (c *Console) Connect(reg *readiness.Poller, token readiness.Token) error {
	c.token = token
	return reg.Register(c.stdinFD, token, readiness.InterestRead)
}

// Connected implements [ioendpoint.Endpoint]; the console is always
// connected once registered — it has no reconnect cycle.
func (c *Console) Connected() bool { return true }

// DisconnectNeeded implements [ioendpoint.Endpoint]; the console can never
// enter the zombie state — it lives for the process lifetime.
func (c *Console) DisconnectNeeded() bool { return false }

// Disconnect implements [ioendpoint.Endpoint]; unreachable in practice since
// DisconnectNeeded is always false, kept only to satisfy the interface.
func (c *Console) Disconnect(reg *readiness.Poller) error {
	return reg.Deregister(c.token)
}

// Read implements [ioendpoint.Endpoint]. Each call drains exactly one
// already-queued stage output, or reads a fresh chunk from stdin and feeds
// it through the parser/processor pipeline to refill the queue (spec
// §4.3: "the console endpoint's read() returns at most one stage output per
// call and queues the rest for subsequent calls").
func (c *Console) Read() (ioresult.Result, error) {
	if r, ok := c.popQueue(); ok {
		return r, nil
	}

	n, err := unix.Read(c.stdinFD, c.readBuf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return ioresult.None, nil
		}
		return ioresult.None, err
	}
	if n == 0 {
		return ioresult.None, nil
	}

	c.queue = append(c.queue, c.proc.Feed(c.readBuf[:n], time.Now())...)
	if r, ok := c.popQueue(); ok {
		return r, nil
	}
	return ioresult.None, nil
}

// popQueue consumes one queued processor output, converting it to an
// [ioresult.Result]. A FilterToggle action is handled entirely locally (spec
// §4.4.8's design note: "the hub need not know filter names") and never
// surfaces; popQueue skips straight to the next queued output, if any.
func (c *Console) popQueue() (ioresult.Result, bool) {
	for len(c.queue) > 0 {
		out := c.queue[0]
		c.queue = c.queue[1:]

		switch out.Kind {
		case keybind.OutputAction:
			if out.Action.Kind == action.KindFilterToggle {
				c.chain.Toggle(out.Action.FilterName)
				continue
			}
			return ioresult.OfAction(out.Action), true
		default:
			return ioresult.Data(c.chain.FilterIn(out.Bytes)), true
		}
	}
	return ioresult.Result{}, false
}

// Write implements [ioendpoint.Endpoint]: applies the device->console filter
// chain, then writes to stdout. Write failures are logged by the caller, not
// surfaced as a zombie condition — the console cannot disconnect.
func (c *Console) Write(b []byte) (int, error) {
	out := c.chain.FilterOut(b)
	n, err := unix.Write(c.stdoutFD, out)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, err
	}
	if n == len(out) {
		return len(b), nil
	}
	return n, nil
}

// WritableInterest implements [ioendpoint.Endpoint]; a no-op — a local
// terminal is effectively always writable.
func (c *Console) WritableInterest(reg *readiness.Poller, on bool) error { return nil }

// Tick implements [ioendpoint.Endpoint]; drains the processor's escape and
// prefix timeouts into the output queue (spec §4.3.2).
func (c *Console) Tick() {
	c.queue = append(c.queue, c.proc.Tick(time.Now())...)
}

// Label implements [ioendpoint.Endpoint].
func (c *Console) Label() string { return "console" }
