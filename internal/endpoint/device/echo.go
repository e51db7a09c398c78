//go:build linux

package device

import (
	"golang.org/x/sys/unix"

	"github.com/ardnew/termbridge/internal/ioendpoint"
	"github.com/ardnew/termbridge/internal/ioerr"
	"github.com/ardnew/termbridge/internal/ioresult"
	"github.com/ardnew/termbridge/internal/readiness"
)

// Echo is an in-process loopback device (spec §4.2): Write pushes into the
// sending half of an anonymous pipe, Read pulls from the receiving half, so
// the device readiness signal arrives through the same epoll primitive real
// devices use instead of a shortcut channel. Adapted from the teacher's
// device/hal/fifo pattern of "own both ends of a pipe to simulate a peer",
// collapsed from a named cross-process FIFO pair to a single anonymous
// unix.Pipe2 since no real peer process exists.
type Echo struct {
	readFD, writeFD int
	token           readiness.Token
	connected       bool
	zombie          bool
}

var _ ioendpoint.Endpoint = (*Echo)(nil)

// NewEcho returns an unconnected echo device.
func NewEcho() *Echo { return &Echo{readFD: -1, writeFD: -1} }

// Connect implements [ioendpoint.Endpoint].
func (e *Echo) Connect(reg *readiness.Poller, token readiness.Token) error {
	if e.connected {
		return nil
	}
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return err
	}
	e.readFD, e.writeFD = fds[0], fds[1]
	e.token = token
	if err := reg.Register(e.readFD, token, readiness.InterestRead); err != nil {
		return err
	}
	e.connected = true
	return nil
}

// Connected implements [ioendpoint.Endpoint].
func (e *Echo) Connected() bool { return e.connected }

// DisconnectNeeded implements [ioendpoint.Endpoint].
func (e *Echo) DisconnectNeeded() bool { return e.zombie }

// Disconnect implements [ioendpoint.Endpoint].
func (e *Echo) Disconnect(reg *readiness.Poller) error {
	if e.connected {
		_ = reg.Deregister(e.token)
		unix.Close(e.readFD)
		unix.Close(e.writeFD)
		e.readFD, e.writeFD = -1, -1
	}
	e.connected = false
	e.zombie = false
	return nil
}

// Read implements [ioendpoint.Endpoint].
func (e *Echo) Read() (ioresult.Result, error) {
	buf := make([]byte, 64*1024)
	n, err := unix.Read(e.readFD, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return ioresult.None, nil
		}
		e.zombie = true
		return ioresult.None, err
	}
	if n == 0 {
		e.zombie = true
		return ioresult.None, ioerr.ErrEOF
	}
	return ioresult.Data(buf[:n]), nil
}

// Write implements [ioendpoint.Endpoint].
func (e *Echo) Write(b []byte) (int, error) {
	n, err := unix.Write(e.writeFD, b)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		e.zombie = true
		return 0, err
	}
	return n, nil
}

// WritableInterest implements [ioendpoint.Endpoint]; a pipe of any
// reasonable capacity never backpressures this loopback device in practice,
// but honor the contract so the hub's bookkeeping stays uniform.
func (e *Echo) WritableInterest(reg *readiness.Poller, on bool) error {
	interest := readiness.InterestRead
	if on {
		interest |= readiness.InterestWrite
	}
	return reg.Reregister(e.token, interest)
}

// Tick implements [ioendpoint.Endpoint]; Echo has no timers.
func (e *Echo) Tick() {}

// Label implements [ioendpoint.Endpoint].
func (e *Echo) Label() string { return "echo" }
