package events

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wonny/arena/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts bus events to websocket clients (dashboards, monitors)
type Hub struct {
	logger *logger.Logger

	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	done      chan struct{}
	once      sync.Once
}

// NewHub creates a new websocket broadcast hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:    log,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
		done:      make(chan struct{}),
	}
}

// Run pumps broadcast messages to every connected client. Blocks until Close.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeClients()
			return
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Attach forwards every event from the bus as a JSON frame
func (h *Hub) Attach(bus *Bus) {
	ch := bus.Subscribe(64)
	go func() {
		for event := range ch {
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Warn("Failed to encode event for broadcast")
				continue
			}
			h.Broadcast(data)
		}
	}()
}

// Broadcast queues one frame for all clients, dropping when the hub is busy
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.logger.Warn("Broadcast dropped, hub buffer full")
	}
}

// Handler upgrades an HTTP request and registers the client
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.WithError(err).Warn("Websocket upgrade failed")
			return
		}

		h.mu.Lock()
		h.clients[conn] = true
		count := len(h.clients)
		h.mu.Unlock()

		h.logger.WithFields(map[string]interface{}{
			"clients": count,
		}).Debug("Websocket client connected")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops the pump and disconnects all clients
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) closeClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}
