//go:build linux

package client

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ardnew/termbridge/internal/readiness"
)

// Listener owns the TCP accept socket under the reserved LISTENER token
// (spec §4.2, §4.4.4). It is dispatched specially by the hub rather than
// through the generic Endpoint contract, since its job is producing new
// endpoints rather than carrying a byte stream of its own.
type Listener struct {
	fd int
}

// NewListener binds and listens on port across all interfaces.
func NewListener(port int) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind :%d: %w", port, err)
	}
	if err := unix.Listen(fd, 64); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Listener{fd: fd}, nil
}

// Register adds the listener to reg under TokenListener.
func (l *Listener) Register(reg *readiness.Poller) error {
	return reg.Register(l.fd, readiness.TokenListener, readiness.InterestRead)
}

// Accept drains Accept4 until it would block, returning the raw fds of every
// connection accepted this call (spec §4.4.4: "Loop accept() until
// would-block").
func (l *Listener) Accept() ([]int, error) {
	var fds []int
	for {
		fd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN {
				return fds, nil
			}
			return fds, err
		}
		fds = append(fds, fd)
	}
}

// Close releases the listening socket.
func (l *Listener) Close() error { return unix.Close(l.fd) }
