package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parafeur/parafeur/internal/logging"
	"github.com/parafeur/parafeur/internal/notifications"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsClient is one connected operator browser
type wsClient struct {
	conn *websocket.Conn
	send chan interface{}
}

// WebSocketHub fans notifications out to connected operator UIs. Clients
// only ever receive; anything a client writes is drained and dropped.
type WebSocketHub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan interface{}
	done       chan struct{}
	closeOnce  sync.Once
	upgrader   websocket.Upgrader
}

// NewWebSocketHub creates a new hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan interface{}, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // same trust boundary as the CORS policy
			},
		},
	}
}

// Run owns the client set; all membership changes go through its channels
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer: drop it rather than stall the hub
					delete(h.clients, client)
					close(client.send)
				}
			}
		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Broadcast queues a message for every connected client
func (h *WebSocketHub) Broadcast(msg interface{}) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Close stops the hub and disconnects all clients
func (h *WebSocketHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// handleWebSocket upgrades the connection and attaches it to the hub
func (h *WebSocketHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WithField("error", err.Error()).Warn("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan interface{}, 16),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

// writePump serializes all writes to the connection
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames and detects the close
func (c *wsClient) readPump(h *WebSocketHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// hubSubscriber adapts the hub to the notification service's Subscriber
// interface so new notifications reach the feed as they are created.
type hubSubscriber struct {
	id  string
	hub *WebSocketHub
}

func newHubSubscriber(hub *WebSocketHub) *hubSubscriber {
	return &hubSubscriber{id: uuid.New().String(), hub: hub}
}

func (s *hubSubscriber) ID() string {
	return s.id
}

func (s *hubSubscriber) Send(n notifications.Notification) error {
	s.hub.Broadcast(notifications.WebSocketMessage{
		Type:    "notification",
		Payload: n,
	})
	return nil
}
