//go:build linux

package device

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/ardnew/termbridge/internal/ioendpoint"
	"github.com/ardnew/termbridge/internal/ioerr"
	"github.com/ardnew/termbridge/internal/ioresult"
	"github.com/ardnew/termbridge/internal/readiness"
	"github.com/ardnew/termbridge/pkg/crabctl"
)

// TCP is a device endpoint that connects out to a TCP peer, per spec §4.2.
// The connect sequence is non-blocking: the first Connect call issues the
// socket connect and registers READABLE|WRITABLE, returning
// [ioerr.ErrInProgress]; the hub calls Connect again once the hub observes
// writability, at which point TCP verifies the connect via SO_ERROR.
type TCP struct {
	hostport string
	sockaddr unix.Sockaddr

	fd         int
	token      readiness.Token
	connecting bool
	connected  bool
	zombie     bool
}

var _ ioendpoint.Endpoint = (*TCP)(nil)

// NewTCP resolves hostport (DNS lookup happens once, here, not on the hot
// connect/reconnect path) and returns an unconnected TCP device endpoint.
func NewTCP(hostport string) (*TCP, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ioerr.ErrBadDeviceSpec, hostport)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ioerr.ErrBadDeviceSpec, hostport)
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("%w: cannot resolve %s: %v", ioerr.ErrBadDeviceSpec, host, err)
	}

	sockaddr, err := toSockaddr(ips[0], port)
	if err != nil {
		return nil, err
	}

	return &TCP{hostport: hostport, sockaddr: sockaddr, fd: -1}, nil
}

func toSockaddr(ip net.IP, port int) (unix.Sockaddr, error) {
	if v4 := ip.To4(); v4 != nil {
		var addr [4]byte
		copy(addr[:], v4)
		return &unix.SockaddrInet4{Port: port, Addr: addr}, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return nil, fmt.Errorf("%w: unrecognized IP %s", ioerr.ErrBadDeviceSpec, ip)
	}
	var addr [16]byte
	copy(addr[:], v6)
	return &unix.SockaddrInet6{Port: port, Addr: addr}, nil
}

// Connect implements [ioendpoint.Endpoint].
func (d *TCP) Connect(reg *readiness.Poller, token readiness.Token) error {
	if d.connected {
		return nil
	}

	if d.fd == -1 {
		domain := unix.AF_INET
		if _, ok := d.sockaddr.(*unix.SockaddrInet6); ok {
			domain = unix.AF_INET6
		}
		fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
		if err != nil {
			return fmt.Errorf("socket: %w", err)
		}
		d.fd = fd
		d.token = token

		err = unix.Connect(d.fd, d.sockaddr)
		if err == nil {
			// Rare but possible: connect completed synchronously.
			return d.finishConnect(reg)
		}
		if err != unix.EINPROGRESS {
			unix.Close(d.fd)
			d.fd = -1
			d.zombie = true
			return err
		}

		if err := reg.Register(d.fd, token, readiness.InterestRead|readiness.InterestWrite); err != nil {
			return err
		}
		d.connecting = true
		return ioerr.ErrInProgress
	}

	if d.connecting {
		return d.finishConnect(reg)
	}

	return ioerr.ErrInProgress
}

func (d *TCP) finishConnect(reg *readiness.Poller) error {
	errno, err := unix.GetsockoptInt(d.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		d.zombie = true
		return err
	}
	if errno != 0 {
		d.zombie = true
		return unix.Errno(errno)
	}

	if err := reg.Reregister(d.token, readiness.InterestRead); err != nil {
		return err
	}
	d.connecting = false
	d.connected = true
	crabctl.LogInfo(crabctl.ComponentDevice, "tcp device connected", "addr", d.hostport)
	return nil
}

// Connected implements [ioendpoint.Endpoint].
func (d *TCP) Connected() bool { return d.connected }

// DisconnectNeeded implements [ioendpoint.Endpoint].
func (d *TCP) DisconnectNeeded() bool { return d.zombie }

// Disconnect implements [ioendpoint.Endpoint].
func (d *TCP) Disconnect(reg *readiness.Poller) error {
	if d.fd != -1 {
		_ = reg.Deregister(d.token)
		unix.Close(d.fd)
		d.fd = -1
	}
	d.connected = false
	d.connecting = false
	d.zombie = false
	return nil
}

// Read implements [ioendpoint.Endpoint].
func (d *TCP) Read() (ioresult.Result, error) {
	buf := make([]byte, 64*1024)
	n, err := unix.Read(d.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return ioresult.None, nil
		}
		d.zombie = true
		return ioresult.None, err
	}
	if n == 0 {
		d.zombie = true
		return ioresult.None, ioerr.ErrEOF
	}
	return ioresult.Data(buf[:n]), nil
}

// Write implements [ioendpoint.Endpoint].
func (d *TCP) Write(b []byte) (int, error) {
	n, err := unix.Write(d.fd, b)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		d.zombie = true
		return 0, err
	}
	return n, nil
}

// WritableInterest implements [ioendpoint.Endpoint].
func (d *TCP) WritableInterest(reg *readiness.Poller, on bool) error {
	interest := readiness.InterestRead
	if on {
		interest |= readiness.InterestWrite
	}
	return reg.Reregister(d.token, interest)
}

// Tick implements [ioendpoint.Endpoint]; TCP devices have no timers.
func (d *TCP) Tick() {}

// Label implements [ioendpoint.Endpoint].
func (d *TCP) Label() string { return d.hostport }
