//go:build linux

package client

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ardnew/termbridge/internal/ioendpoint"
	"github.com/ardnew/termbridge/internal/ioerr"
	"github.com/ardnew/termbridge/internal/ioresult"
	"github.com/ardnew/termbridge/internal/readiness"
)

// TCP is an accepted TCP client endpoint (spec §4.2): always registered
// READABLE; a failed read or write marks it not-connected so the hub reaps
// it on the same tick.
type TCP struct {
	fd    int
	token readiness.Token
	label string

	connected bool
	zombie    bool
}

var _ ioendpoint.Endpoint = (*TCP)(nil)

// NewTCP wraps an already-accepted, already-nonblocking fd.
func NewTCP(fd int) *TCP {
	return &TCP{fd: fd, label: peerLabel(fd)}
}

func peerLabel(fd int) string {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return fmt.Sprintf("client(fd=%d)", fd)
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", a.Addr, a.Port)
	default:
		return fmt.Sprintf("client(fd=%d)", fd)
	}
}

// Connect implements [ioendpoint.Endpoint]; an accepted client is already
// connected, so this only registers it with the poller.
func (c *TCP) Connect(reg *readiness.Poller, token readiness.Token) error {
	if c.connected {
		return nil
	}
	c.token = token
	if err := reg.Register(c.fd, token, readiness.InterestRead); err != nil {
		return err
	}
	c.connected = true
	return nil
}

// Connected implements [ioendpoint.Endpoint].
func (c *TCP) Connected() bool { return c.connected }

// DisconnectNeeded implements [ioendpoint.Endpoint].
func (c *TCP) DisconnectNeeded() bool { return c.zombie }

// Disconnect implements [ioendpoint.Endpoint].
func (c *TCP) Disconnect(reg *readiness.Poller) error {
	if c.connected {
		_ = reg.Deregister(c.token)
		unix.Close(c.fd)
	}
	c.connected = false
	c.zombie = false
	return nil
}

// Read implements [ioendpoint.Endpoint].
func (c *TCP) Read() (ioresult.Result, error) {
	buf := make([]byte, 64*1024)
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return ioresult.None, nil
		}
		c.zombie = true
		return ioresult.None, err
	}
	if n == 0 {
		c.zombie = true
		return ioresult.None, ioerr.ErrEOF
	}
	return ioresult.Data(buf[:n]), nil
}

// Write implements [ioendpoint.Endpoint]: a single non-blocking best-effort
// write, per spec §4.4.1 — the hub never buffers device bytes per client.
// Unlike a device endpoint, a client that would block is not given a second
// chance: with no per-client buffering, EAGAIN here means the client is too
// slow and is marked zombie for reaping on this tick, same as a hard error.
func (c *TCP) Write(b []byte) (int, error) {
	n, err := unix.Write(c.fd, b)
	if err != nil {
		if err == unix.EAGAIN {
			c.zombie = true
			return 0, nil
		}
		c.zombie = true
		return 0, err
	}
	if n != len(b) {
		c.zombie = true
	}
	return n, nil
}

// WritableInterest implements [ioendpoint.Endpoint].
func (c *TCP) WritableInterest(reg *readiness.Poller, on bool) error {
	interest := readiness.InterestRead
	if on {
		interest |= readiness.InterestWrite
	}
	return reg.Reregister(c.token, interest)
}

// Tick implements [ioendpoint.Endpoint]; accepted clients have no timers.
func (c *TCP) Tick() {}

// Label implements [ioendpoint.Endpoint].
func (c *TCP) Label() string { return c.label }
