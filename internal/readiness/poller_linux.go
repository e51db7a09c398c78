//go:build linux

package readiness

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// MaxEpollEvents bounds a single epoll_wait batch.
const MaxEpollEvents = 64

// Poller wraps a Linux epoll instance as termbridge's readiness primitive.
// All methods are intended to be called from a single goroutine (the hub's
// event loop); Poller performs no locking of its own beyond what is needed
// to keep its token<->fd tables consistent across registration calls made
// between Poll invocations.
type Poller struct {
	epfd int

	mu        sync.Mutex
	fdByToken map[Token]int
	tokenByFd map[int]Token
}

// New creates an epoll instance.
func New() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Poller{
		epfd:      epfd,
		fdByToken: make(map[Token]int),
		tokenByFd: make(map[int]Token),
	}, nil
}

// Close releases the epoll instance.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}

// epollEvents always sets EPOLLET: spec §4.1 makes edge-triggered readiness
// mandatory, since a level-triggered fd with unread data (e.g. a client held
// back by device backpressure) would be handed back by every Poll call and
// spin the loop at 100% CPU instead of idling until something changes.
func epollEvents(interest Interest) uint32 {
	events := uint32(unix.EPOLLET)
	if interest&InterestRead != 0 {
		events |= unix.EPOLLIN
	}
	if interest&InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

// Register adds fd to the poller under token, watching for interest.
func (p *Poller) Register(fd int, token Token, interest Interest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl(add, fd=%d): %w", fd, err)
	}
	p.fdByToken[token] = fd
	p.tokenByFd[fd] = token
	return nil
}

// Reregister changes the watched interest for token's fd.
func (p *Poller) Reregister(token Token, interest Interest) error {
	p.mu.Lock()
	fd, ok := p.fdByToken[token]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("reregister: unknown token %d", token)
	}

	ev := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl(mod, fd=%d): %w", fd, err)
	}
	return nil
}

// Deregister removes token's fd from the poller. Deregistering an unknown
// token is a no-op: callers may deregister defensively during teardown.
func (p *Poller) Deregister(token Token) error {
	p.mu.Lock()
	fd, ok := p.fdByToken[token]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	delete(p.fdByToken, token)
	delete(p.tokenByFd, fd)
	p.mu.Unlock()

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl(del, fd=%d): %w", fd, err)
	}
	return nil
}

// Poll blocks up to timeout for readiness events. A negative timeout blocks
// indefinitely; zero returns immediately. Spurious wake-ups (an empty batch)
// are permitted and simply yield a nil, nil result.
func (p *Poller) Poll(timeout time.Duration) ([]Event, error) {
	var raw [MaxEpollEvents]unix.EpollEvent

	ms := int(timeout / time.Millisecond)
	if timeout < 0 {
		ms = -1
	}

	n, err := unix.EpollWait(p.epfd, raw[:], ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}

	events := make([]Event, 0, n)
	p.mu.Lock()
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		token, ok := p.tokenByFd[fd]
		if !ok {
			continue // stale token: deregistered between epoll_wait and dispatch
		}
		events = append(events, Event{
			Token:    token,
			Readable: raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: raw[i].Events&unix.EPOLLOUT != 0,
		})
	}
	p.mu.Unlock()

	return events, nil
}
