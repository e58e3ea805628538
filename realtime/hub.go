package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Event is one message pushed to admin websocket clients.
type Event struct {
	Type      string         `json:"type"`
	FolderID  string         `json:"folder_id,omitempty"`
	Title     string         `json:"title,omitempty"`
	Error     string         `json:"error,omitempty"`
	Counts    map[string]int `json:"counts,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected websocket client. Slow clients are
// dropped instead of blocking the publisher.
type Hub struct {
	clients   map[*client]struct{}
	register  chan *client
	broadcast chan []byte
	upgrader  websocket.Upgrader
	mu        sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*client]struct{}),
		register:  make(chan *client),
		broadcast: make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{"bearer"},
			// the route sits behind admin auth; CORS rules do not apply to upgrades
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run dispatches until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client whose connection ended. Safe to call after Run has
// already closed it.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: failed to marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- encoded:
	default:
		log.Printf("realtime: dropping event, broadcast channel full")
	}
}

// ServeWS upgrades the connection and registers a client. It returns when the
// client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: websocket upgrade error: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	select {
	case h.register <- c:
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go func() {
		for msg := range c.send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
	}()

	// clients only listen; reading keeps control frames flowing
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}
