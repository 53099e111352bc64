package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vectra/internal/engine"
)

// statusInterval is how often the hub pushes a status frame to observers.
const statusInterval = 15 * time.Second

// eventFrame is one WebSocket message: a mutation event or a status push.
type eventFrame struct {
	Type   string         `json:"type"` // "event" or "status"
	Event  *engine.Event  `json:"event,omitempty"`
	Status *engine.Status `json:"status,omitempty"`
}

// Hub fans engine events out to WebSocket observers. Publish is called
// with the engine lock held, so it only enqueues; marshaling and delivery
// happen on the hub goroutine.
type Hub struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]bool

	queue chan engine.Event
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an event hub for the engine.
func NewHub(eng *engine.Engine) *Hub {
	return &Hub{
		engine: eng,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]bool),
		queue:   make(chan engine.Event, 256),
	}
}

// Publish enqueues an event without blocking; events are dropped when the
// queue is full.
func (h *Hub) Publish(ev engine.Event) {
	select {
	case h.queue <- ev:
	default:
	}
}

// Run drains the event queue and pushes periodic status frames.
func (h *Hub) Run() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case ev := <-h.queue:
			h.broadcast(eventFrame{Type: "event", Event: &ev})
		case <-ticker.C:
			if !h.hasClients() {
				continue
			}
			status := h.engine.Status()
			h.broadcast(eventFrame{Type: "status", Status: &status})
		}
	}
}

func (h *Hub) hasClients() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0
}

func (h *Hub) broadcast(frame eventFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("failed to marshal event frame: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer; drop the frame rather than stall the hub.
		}
	}
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// handleEvents upgrades the connection and streams frames until the peer
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.events.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	client := &hubClient{conn: conn, send: make(chan []byte, 64)}
	s.events.register(client)

	go func() {
		for data := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				break
			}
		}
		conn.Close()
	}()

	// Reader loop: we never expect messages, but reading detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.events.unregister(client)
	conn.Close()
}
