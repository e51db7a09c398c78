package hub

import (
	"github.com/ardnew/termbridge/internal/endpoint/client"
	"github.com/ardnew/termbridge/internal/ioendpoint"
	"github.com/ardnew/termbridge/internal/readiness"
)

// Hub is the I/O hub: the sole owner of the readiness primitive, the device
// endpoint, the optional listener, the signal source, and every client
// endpoint (spec §3's "Hub state"). Every field below is touched only from
// the goroutine running [Hub.Run].
type Hub struct {
	reg      *readiness.Poller
	device   ioendpoint.Endpoint
	listener *client.Listener
	signals  *readiness.SignalSource

	clients   map[readiness.Token]ioendpoint.Endpoint
	nextToken readiness.Token

	quitRequested    bool
	announceEnabled  bool
	deviceWarnedOnce bool

	deviceWriteBlocked bool
	pendingDeviceWrite []byte
}

// New builds a Hub. listener may be nil (no TCP server configured).
func New(reg *readiness.Poller, device ioendpoint.Endpoint, listener *client.Listener, signals *readiness.SignalSource, announce bool) *Hub {
	return &Hub{
		reg:             reg,
		device:          device,
		listener:        listener,
		signals:         signals,
		clients:         make(map[readiness.Token]ioendpoint.Endpoint),
		nextToken:       readiness.TokenFirstDynamic,
		announceEnabled: announce,
		// The device isn't connected yet, so treat it as write-blocked from
		// the start (spec §4.4.7: connecting "clears" the flag) — otherwise
		// a client write during the connect-in-progress window would be
		// drained straight into a not-yet-connected socket.
		deviceWriteBlocked: true,
	}
}

// AddClient registers a new client endpoint (an accepted TCP connection, or
// the console) under a freshly allocated dynamic token.
func (h *Hub) AddClient(ep ioendpoint.Endpoint) (readiness.Token, error) {
	token := h.nextToken
	h.nextToken++

	if err := ep.Connect(h.reg, token); err != nil {
		return 0, err
	}
	h.clients[token] = ep
	return token, nil
}
