//go:build linux

package readiness

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// SignalSource registers SIGINT/SIGTERM with the poller under TokenSignal.
// Go's signal delivery is inherently asynchronous (the runtime, not the
// hub's loop, receives the signal), so a small forwarding goroutine turns
// each signal into a single byte on a pipe — the only fd the poller actually
// watches. The goroutine never touches endpoint state; it is pure plumbing
// to get an async OS notification onto an fd the epoll loop can drain,
// mirroring the teacher's wakefd/eventfd trick in host/hal/linux/poller.go.
type SignalSource struct {
	readFD, writeFD int
	ch              chan os.Signal
}

// NewSignalSource creates the self-pipe and starts forwarding SIGINT and
// SIGTERM into it. Call Register to add its read end to a Poller.
func NewSignalSource() (*SignalSource, error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, err
	}

	s := &SignalSource{
		readFD:  fds[0],
		writeFD: fds[1],
		ch:      make(chan os.Signal, 8),
	}
	signal.Notify(s.ch, syscall.SIGINT, syscall.SIGTERM)

	go s.forward()

	return s, nil
}

func (s *SignalSource) forward() {
	for range s.ch {
		unix.Write(s.writeFD, []byte{1})
	}
}

// Register adds the self-pipe's read end to p under TokenSignal.
func (s *SignalSource) Register(p *Poller) error {
	return p.Register(s.readFD, TokenSignal, InterestRead)
}

// Drain consumes every pending signal notification. It returns the number
// of SIGINT/SIGTERM deliveries observed since the last Drain; any count
// greater than zero means a graceful shutdown was requested (spec §4.4.5).
func (s *SignalSource) Drain() int {
	var buf [64]byte
	count := 0
	for {
		n, err := unix.Read(s.readFD, buf[:])
		if n <= 0 || err != nil {
			break
		}
		count += n
	}
	return count
}

// Close stops signal forwarding and releases the pipe.
func (s *SignalSource) Close() error {
	signal.Stop(s.ch)
	close(s.ch)
	unix.Close(s.writeFD)
	return unix.Close(s.readFD)
}
