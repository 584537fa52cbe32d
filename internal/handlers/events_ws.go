package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opsimate/opsimate/internal/jobs"
)

// EventsWSHandler pushes service change events to connected dashboard
// clients. The refresh job feeds it through Broadcast; clients that fall
// behind are dropped rather than blocking the broadcast.
type EventsWSHandler struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan jobs.ServiceEvent
}

// NewEventsWSHandler creates a new events WebSocket handler
func NewEventsWSHandler() *EventsWSHandler {
	return &EventsWSHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // same-origin enforcement happens at the proxy
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]chan jobs.ServiceEvent),
	}
}

// SetupRoutes configures WebSocket routes
func (h *EventsWSHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/events", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and streams events until the
// client disconnects.
func (h *EventsWSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return
	}

	events := make(chan jobs.ServiceEvent, 64)

	h.mu.Lock()
	h.clients[conn] = events
	h.mu.Unlock()

	log.Printf("Events client connected from %s", r.RemoteAddr)

	go h.writeLoop(conn, events)
	h.readLoop(conn)
}

// writeLoop forwards events to one client
func (h *EventsWSHandler) writeLoop(conn *websocket.Conn, events <-chan jobs.ServiceEvent) {
	for event := range events {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("Events write failed, dropping client: %v", err)
			h.drop(conn)
			return
		}
	}
}

// readLoop discards client messages and detects disconnects
func (h *EventsWSHandler) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

// drop removes a client and closes its connection
func (h *EventsWSHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if events, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(events)
	}
	h.mu.Unlock()
	conn.Close()
}

// Broadcast fans an event out to every connected client. Clients with a full
// send buffer are dropped.
func (h *EventsWSHandler) Broadcast(event jobs.ServiceEvent) {
	h.mu.Lock()
	var slow []*websocket.Conn
	for conn, events := range h.clients {
		select {
		case events <- event:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range slow {
		log.Printf("Events client too slow, dropping")
		h.drop(conn)
	}
}

// ClientCount returns the number of connected clients
func (h *EventsWSHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
