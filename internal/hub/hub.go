package hub

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Pszemocny/4-in-a-row/internal/interfaces"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
	"github.com/Pszemocny/4-in-a-row/internal/metrics"
	"github.com/Pszemocny/4-in-a-row/internal/session"
)

// Hub tracks connected clients and owns one session per client
type Hub struct {
	// Connected clients and their sessions, owned by Run
	Clients map[interfaces.Client]*session.Session

	// Channel to register new clients
	Register chan *Registration

	// Channel to unregister clients
	Unregister chan interfaces.Client

	advisor interfaces.Advisor
	store   interfaces.Store
	metrics *metrics.Metrics

	active  atomic.Int64
	stopped chan struct{}
}

// Registration asks the hub to attach a session to Client. Done is closed
// once the session is running.
type Registration struct {
	Client interfaces.Client
	Done   chan struct{}
}

// NewHub creates a hub whose sessions share adv and st. m may be nil.
func NewHub(adv interfaces.Advisor, st interfaces.Store, m *metrics.Metrics) *Hub {
	return &Hub{
		Clients:    make(map[interfaces.Client]*session.Session),
		Register:   make(chan *Registration),
		Unregister: make(chan interfaces.Client),
		advisor:    adv,
		store:      st,
		metrics:    m,
		stopped:    make(chan struct{}),
	}
}

// RegisterClient implements interfaces.Hub. It returns once the client's
// session is set, or immediately when the hub has stopped.
func (h *Hub) RegisterClient(client interfaces.Client) {
	reg := &Registration{Client: client, Done: make(chan struct{})}
	select {
	case h.Register <- reg:
		<-reg.Done
	case <-h.stopped:
	}
}

// UnregisterClient implements interfaces.Hub
func (h *Hub) UnregisterClient(client interfaces.Client) {
	select {
	case h.Unregister <- client:
	case <-h.stopped:
	}
}

// SessionCount returns the number of running sessions
func (h *Hub) SessionCount() int {
	return int(h.active.Load())
}

// Stopped is closed after Run has shut down every session
func (h *Hub) Stopped() <-chan struct{} {
	return h.stopped
}

// Run is the hub's main loop. Cancelling ctx closes every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Hub shutting down", logger.Fields{"sessions": len(h.Clients)})
			for client := range h.Clients {
				h.remove(client)
			}
			return

		case reg := <-h.Register:
			id := uuid.NewString()
			s := session.NewSession(ctx, id, reg.Client, h.advisor, h.store, session.WithMetrics(h.metrics))
			h.Clients[reg.Client] = s
			reg.Client.SetSession(s)
			go s.Run()

			h.active.Add(1)
			h.metrics.SessionOpened()
			close(reg.Done)

			logger.Info("Client registered", logger.Fields{
				"clientID":  reg.Client.GetID(),
				"sessionID": id,
			})

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				h.remove(client)
				logger.Info("Client unregistered", logger.Fields{"clientID": client.GetID()})
			}
		}
	}
}

// remove stops the client's session before closing its send channel, so the
// session never queues a message after the close
func (h *Hub) remove(client interfaces.Client) {
	s := h.Clients[client]
	delete(h.Clients, client)

	s.Close()
	h.active.Add(-1)
	h.metrics.SessionClosed()

	client.CloseSend()
}
