package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub tracks the live websocket connections, keyed by user, and pushes
// notification events to them. A user may hold several connections at once
// (phone on site, laptop in the trailer).
type Hub struct {
	clients   map[uuid.UUID]map[*Client]bool
	clientsMu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	events     chan *userEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// Event is one message pushed over a websocket connection.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type userEvent struct {
	userID uuid.UUID
	event  *Event
}

func NewHub(ctx context.Context, logger *zap.Logger) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		events:     make(chan *userEvent, 1024),
		ctx:        hubCtx,
		cancel:     cancel,
		logger:     logger,
	}
}

// Run starts the hub's event loop. Call once, usually in a goroutine.
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	staleTicker := time.NewTicker(30 * time.Second)
	defer staleTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.cleanup()
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.clientsMu.Unlock()
			h.logger.Debug("websocket client connected",
				zap.Stringer("user", client.userID), zap.Int("total", h.ClientCount()))

		case client := <-h.unregister:
			h.drop(client)

		case ev := <-h.events:
			h.push(ev.userID, ev.event)

		case <-staleTicker.C:
			h.dropStale()
		}
	}
}

// Push queues an event for every live connection the user holds. Lossy:
// a full queue drops the event rather than blocking a request.
func (h *Hub) Push(userID uuid.UUID, event *Event) {
	select {
	case h.events <- &userEvent{userID: userID, event: event}:
	case <-h.ctx.Done():
	default:
		h.logger.Warn("websocket event queue full, dropping event",
			zap.Stringer("user", userID), zap.String("type", event.Type))
	}
}

func (h *Hub) push(userID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal websocket event", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			h.logger.Debug("websocket client send buffer full, skipping",
				zap.Stringer("user", userID))
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	conns, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}
	client.closed.Store(true)
	close(client.send)
}

func (h *Hub) dropStale() {
	h.clientsMu.RLock()
	var stale []*Client
	for _, conns := range h.clients {
		for client := range conns {
			if time.Since(client.lastHeartbeat()) > 90*time.Second {
				stale = append(stale, client)
			}
		}
	}
	h.clientsMu.RUnlock()

	for _, client := range stale {
		h.logger.Debug("dropping stale websocket client", zap.Stringer("user", client.userID))
		h.unregister <- client
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

func (h *Hub) cleanup() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for _, conns := range h.clients {
		for client := range conns {
			client.closed.Store(true)
			client.conn.Close()
		}
	}
	h.clients = make(map[uuid.UUID]map[*Client]bool)
}

// Shutdown stops the event loop and disconnects everyone.
func (h *Hub) Shutdown() {
	h.cancel()
	h.wg.Wait()
}
