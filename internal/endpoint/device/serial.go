//go:build linux

package device

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/termbridge/internal/ioendpoint"
	"github.com/ardnew/termbridge/internal/ioerr"
	"github.com/ardnew/termbridge/internal/ioresult"
	"github.com/ardnew/termbridge/internal/readiness"
	"github.com/ardnew/termbridge/pkg/crabctl"
)

// openTimeout bounds the (synchronous) serial open — spec §4.2 allows this
// one blocking call, as it is bounded and only happens on connect/reconnect.
const openTimeout = 2 * time.Second

// quarantineWindow is the post-open window during which read bytes are
// discarded to absorb USB-adapter dribble (spec §4.2).
const quarantineWindow = 10 * time.Millisecond

// baudToSpeed maps a numeric baud rate to the termios speed_t constant.
var baudToSpeed = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// Serial is a blocking-open, then non-blocking, device endpoint for a local
// TTY (spec §4.2). Exclusive mode is requested via TIOCEXCL. A 10ms
// quarantine window discards bytes read immediately after open; the first
// read after the window elapses (not the first read at all) lifts
// quarantine.
type Serial struct {
	path string
	baud int

	fd    int
	token readiness.Token

	connected bool
	zombie    bool

	quarantineUntil  time.Time
	quarantineLifted bool
}

var _ ioendpoint.Endpoint = (*Serial)(nil)

// NewSerial returns an unopened serial device endpoint for path at baud.
func NewSerial(path string, baud int) *Serial {
	return &Serial{path: path, baud: baud, fd: -1}
}

// Connect implements [ioendpoint.Endpoint]. Open is synchronous but bounded
// by openTimeout; there is no non-blocking variant of a TTY open that would
// let the hub verify success on a later readiness event the way TCP does.
func (s *Serial) Connect(reg *readiness.Poller, token readiness.Token) error {
	if s.connected {
		return nil
	}

	deadline := time.Now().Add(openTimeout)
	var fd int
	var err error
	for {
		fd, err = unix.Open(s.path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("open %s: %w", s.path, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		crabctl.LogWarn(crabctl.ComponentDevice, "serial exclusive mode unavailable", "path", s.path, "error", err)
	}

	if err := configureTermios(fd, s.baud); err != nil {
		unix.Close(fd)
		return fmt.Errorf("configure %s: %w", s.path, err)
	}

	s.fd = fd
	s.token = token
	if err := reg.Register(s.fd, token, readiness.InterestRead); err != nil {
		unix.Close(fd)
		s.fd = -1
		return err
	}

	s.connected = true
	s.quarantineUntil = time.Now().Add(quarantineWindow)
	s.quarantineLifted = false
	crabctl.LogInfo(crabctl.ComponentDevice, "serial device connected", "path", s.path, "baud", s.baud)
	return nil
}

func configureTermios(fd int, baud int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	speed, ok := baudToSpeed[baud]
	if !ok {
		speed = unix.B115200
	}

	// Raw mode: no line discipline, no echo, 8N1, no flow control.
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

// Connected implements [ioendpoint.Endpoint].
func (s *Serial) Connected() bool { return s.connected }

// DisconnectNeeded implements [ioendpoint.Endpoint].
func (s *Serial) DisconnectNeeded() bool { return s.zombie }

// Disconnect implements [ioendpoint.Endpoint].
func (s *Serial) Disconnect(reg *readiness.Poller) error {
	if s.fd != -1 {
		_ = reg.Deregister(s.token)
		unix.Close(s.fd)
		s.fd = -1
	}
	s.connected = false
	s.zombie = false
	return nil
}

// Read implements [ioendpoint.Endpoint], applying the quarantine window.
func (s *Serial) Read() (ioresult.Result, error) {
	buf := make([]byte, 64*1024)
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return ioresult.None, nil
		}
		s.zombie = true
		return ioresult.None, err
	}
	if n == 0 {
		s.zombie = true
		return ioresult.None, ioerr.ErrEOF
	}

	if !s.quarantineLifted {
		if time.Now().Before(s.quarantineUntil) {
			return ioresult.None, nil // discard: still inside the quarantine window
		}
		// First read after the window elapsed: lift quarantine, but this
		// read's bytes are still the ones that triggered the lift and are
		// kept (spec §4.2: "the first read after the window" lifts it).
		s.quarantineLifted = true
	}

	return ioresult.Data(buf[:n]), nil
}

// Write implements [ioendpoint.Endpoint].
func (s *Serial) Write(b []byte) (int, error) {
	n, err := unix.Write(s.fd, b)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		s.zombie = true
		return 0, err
	}
	return n, nil
}

// WritableInterest implements [ioendpoint.Endpoint].
func (s *Serial) WritableInterest(reg *readiness.Poller, on bool) error {
	interest := readiness.InterestRead
	if on {
		interest |= readiness.InterestWrite
	}
	return reg.Reregister(s.token, interest)
}

// Tick implements [ioendpoint.Endpoint]; Serial has no timers.
func (s *Serial) Tick() {}

// Label implements [ioendpoint.Endpoint].
func (s *Serial) Label() string { return s.path }
