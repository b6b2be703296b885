package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ramenya/ordering-service/internal/notify"
	"github.com/rs/zerolog/log"
)

// Envelope is what subscribers receive on the wire: the event name plus the
// emitter's denormalized payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Hub fans published lifecycle events out to websocket clients grouped by
// room. Room names are the notify topics (kitchen, payment, order.<id>).
// A topic is drained from the subscriber only while at least one client is
// in its room. Delivery is best-effort, at-most-once: a disconnected client
// misses events and reconciles with a re-fetch on reconnect.
type Hub struct {
	subscriber message.Subscriber

	mu      sync.Mutex
	rooms   map[string]map[*Client]bool
	cancels map[string]context.CancelFunc
	ctx     context.Context
}

func NewHub(subscriber message.Subscriber) *Hub {
	return &Hub{
		subscriber: subscriber,
		rooms:      make(map[string]map[*Client]bool),
		cancels:    make(map[string]context.CancelFunc),
		ctx:        context.Background(),
	}
}

// Run keeps the hub alive until ctx is canceled, then disconnects every
// client and stops all topic drains.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for room, cancel := range h.cancels {
		cancel()
		delete(h.cancels, room)
	}
	dropped := make(map[*Client]bool)
	for room, clients := range h.rooms {
		for c := range clients {
			dropped[c] = true
		}
		delete(h.rooms, room)
	}
	for c := range dropped {
		c.closeSend()
	}
	return ctx.Err()
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[room]
	if !ok {
		clients = make(map[*Client]bool)
		h.rooms[room] = clients
		h.startDrain(room)
	}
	clients[c] = true
	c.rooms[room] = true
	log.Debug().Str("room", room).Int("clients", len(clients)).Msg("ws: client joined room")
}

func (h *Hub) leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(clients, c)
	delete(c.rooms, room)
	if len(clients) == 0 {
		delete(h.rooms, room)
		if cancel, ok := h.cancels[room]; ok {
			cancel()
			delete(h.cancels, room)
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
}

// startDrain subscribes to the room's topic and forwards messages until the
// room empties. Caller holds h.mu.
func (h *Hub) startDrain(room string) {
	ctx, cancel := context.WithCancel(h.ctx)
	h.cancels[room] = cancel

	messages, err := h.subscriber.Subscribe(ctx, room)
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("ws: failed to subscribe to topic")
		cancel()
		delete(h.cancels, room)
		return
	}

	go func() {
		for msg := range messages {
			h.deliver(room, msg)
			msg.Ack()
		}
	}()
}

func (h *Hub) deliver(room string, msg *message.Message) {
	envelope := Envelope{
		Event: msg.Metadata.Get(notify.MetaEvent),
		Data:  json.RawMessage(msg.Payload),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("ws: failed to marshal envelope")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- body:
		default:
			// Slow consumer: drop it rather than block the fan-out.
			for r := range c.rooms {
				h.leaveLocked(c, r)
			}
			c.closeSend()
		}
	}
}
