// Package ws pushes order and chat events to connected browsers. Delivery
// is best effort: a slow or disconnected client drops events and re-fetches
// state on reconnect.
package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 60 * time.Second
	sendBuffer   = 32
)

const (
	EventOrderUpdate = "order_update"
	EventChatReply   = "chat_reply"
)

type Event struct {
	Type    string       `json:"type"`
	Message string       `json:"message,omitempty"`
	Order   *model.Order `json:"order,omitempty"`
}

type conn struct {
	userID string
	staff  bool
	wc     *websocket.Conn
	send   chan Event
}

type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*conn]struct{})}
}

// Serve upgrades the request and blocks until the client goes away. The
// caller has already authenticated the session.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, staff bool) {
	upgr := &websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}
	wc, err := upgr.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	c := &conn{userID: userID, staff: staff, wc: wc, send: make(chan Event, sendBuffer)}
	h.add(c)
	defer h.remove(c)

	go c.writeLoop()
	c.readLoop()
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
}

// PushUser delivers an event to every connection held by one user.
func (h *Hub) PushUser(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if c.userID == userID {
			c.offer(event)
		}
	}
}

// PushStaff delivers an event to every connected staff session.
func (h *Hub) PushStaff(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if c.staff {
			c.offer(event)
		}
	}
}

func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// offer never blocks; a full buffer means the client is too slow and the
// event is dropped.
func (c *conn) offer(event Event) {
	select {
	case c.send <- event:
	default:
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.wc.Close()
	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
				c.wc.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.wc.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.wc.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames to keep the connection alive and returns
// once the peer disconnects.
func (c *conn) readLoop() {
	for {
		if _, _, err := c.wc.ReadMessage(); err != nil {
			return
		}
	}
}
