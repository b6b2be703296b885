package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
	"github.com/ramenya/ordering-service/internal/notify"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser origin is enforced upstream; the core accepts any caller.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// controlFrame is what a connected client sends to manage its room
// membership, mirroring the subscribe-order / subscribe-kitchen protocol of
// the customer and kitchen display pages.
type controlFrame struct {
	Action  string `json:"action"`
	OrderID string `json:"order_id,omitempty"`
}

const (
	actionSubscribeOrder     = "subscribe-order"
	actionUnsubscribeOrder   = "unsubscribe-order"
	actionSubscribeKitchen   = "subscribe-kitchen"
	actionUnsubscribeKitchen = "unsubscribe-kitchen"
	actionSubscribePayment   = "subscribe-payment"
	actionUnsubscribePayment = "unsubscribe-payment"
)

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// rooms is guarded by hub.mu.
	rooms map[string]bool

	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 64),
		rooms: make(map[string]bool),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.closeSend()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame controlFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("ws: unexpected close")
			}
			return
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame controlFrame) {
	switch frame.Action {
	case actionSubscribeKitchen:
		c.hub.join(c, notify.TopicKitchen)
	case actionUnsubscribeKitchen:
		c.hub.leave(c, notify.TopicKitchen)
	case actionSubscribePayment:
		c.hub.join(c, notify.TopicPayment)
	case actionUnsubscribePayment:
		c.hub.leave(c, notify.TopicPayment)
	case actionSubscribeOrder, actionUnsubscribeOrder:
		orderID, err := uuid.FromString(frame.OrderID)
		if err != nil {
			log.Warn().Str("order_id", frame.OrderID).Msg("ws: invalid order id in control frame")
			return
		}
		if frame.Action == actionSubscribeOrder {
			c.hub.join(c, notify.OrderTopic(orderID))
		} else {
			c.hub.leave(c, notify.OrderTopic(orderID))
		}
	default:
		log.Warn().Str("action", frame.Action).Msg("ws: unknown control action")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case body, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("ws: upgrade failed")
			return
		}
		client := newClient(hub, conn)
		go client.writePump()
		go client.readPump()
	}
}
