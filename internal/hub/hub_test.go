//go:build linux

package hub

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/termbridge/internal/endpoint/client"
	"github.com/ardnew/termbridge/internal/endpoint/device"
	"github.com/ardnew/termbridge/internal/readiness"
)

// newTestHub wires an Echo device (a real non-blocking pipe loopback) behind
// a Hub with no listener, matching the minimal headless configuration spec
// §4.2's Echo device variant describes.
func newTestHub(t *testing.T) (*Hub, *readiness.Poller) {
	t.Helper()

	reg, err := readiness.New()
	if err != nil {
		t.Fatalf("readiness.New: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	signals, err := readiness.NewSignalSource()
	if err != nil {
		t.Fatalf("NewSignalSource: %v", err)
	}
	t.Cleanup(func() { signals.Close() })

	dev := device.NewEcho()
	h := New(reg, dev, nil, signals, false)
	return h, reg
}

// newSocketpairClient returns a client.TCP wired to one end of a
// non-blocking AF_UNIX socketpair, plus the peer fd a test drives directly to
// stand in for a real remote TCP client process.
func newSocketpairClient(t *testing.T) (ep *client.TCP, peerFD int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0]) // harmless no-op if the hub already reaped and closed it
		unix.Close(fds[1])
	})
	return client.NewTCP(fds[0]), fds[1]
}

func readWithDeadline(t *testing.T, fd int, timeout time.Duration) []byte {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var buf [4096]byte
	for time.Now().Before(deadline) {
		n, err := unix.Read(fd, buf[:])
		if err == nil && n > 0 {
			return append([]byte(nil), buf[:n]...)
		}
		if err != nil && err != unix.EAGAIN {
			t.Fatalf("Read: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("no data arrived within %s", timeout)
	return nil
}

// TestHubEchoesClientWriteBackToClient drives the full loop: a client writes
// bytes, the hub forwards them to the device, the device (Echo) loops them
// back, and the hub's readability-driven broadcast delivers them back to
// every connected client (scenario-style end-to-end check per spec §4.4).
func TestHubEchoesClientWriteBackToClient(t *testing.T) {
	h, _ := newTestHub(t)

	ep, peerFD := newSocketpairClient(t)
	if _, err := h.AddClient(ep); err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	if _, err := unix.Write(peerFD, []byte("hello")); err != nil {
		t.Fatalf("Write to peer fd: %v", err)
	}

	got := readWithDeadline(t, peerFD, 2*time.Second)
	if string(got) != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub.Run did not return after context cancellation")
	}
}

// TestHubFanOutReachesMultipleClients checks that a single device read is
// broadcast to every connected client, not just the one that triggered it.
func TestHubFanOutReachesMultipleClients(t *testing.T) {
	h, _ := newTestHub(t)

	epA, peerA := newSocketpairClient(t)
	epB, peerB := newSocketpairClient(t)
	if _, err := h.AddClient(epA); err != nil {
		t.Fatalf("AddClient A: %v", err)
	}
	if _, err := h.AddClient(epB); err != nil {
		t.Fatalf("AddClient B: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	if _, err := unix.Write(peerA, []byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	gotA := readWithDeadline(t, peerA, 2*time.Second)
	gotB := readWithDeadline(t, peerB, 2*time.Second)
	if string(gotA) != "hi" {
		t.Errorf("client A got %q, want %q", gotA, "hi")
	}
	if string(gotB) != "hi" {
		t.Errorf("client B got %q, want %q", gotB, "hi")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub.Run did not return after context cancellation")
	}
}

// TestHubReapsClosedClient checks spec §4.4.1/§4.4.6: a client whose peer
// closes the connection is read to EOF, marked not-connected, and removed
// from the hub's client set on the next reap sweep.
func TestHubReapsClosedClient(t *testing.T) {
	h, _ := newTestHub(t)

	ep, peerFD := newSocketpairClient(t)
	token, err := h.AddClient(ep)
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}

	unix.Close(peerFD)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := h.clients[token]; !ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := h.clients[token]; ok {
		t.Error("client was not reaped after its peer closed the connection")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub.Run did not return after context cancellation")
	}
}
