// Package ws delivers live operational updates to connected dashboards.
// A single Hub tracks every WebSocket client; handlers publish an event after
// each successful mutation and the hub fans it out to all clients.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Event types understood by live feed consumers.
const (
	EventAmbulancesUpdate      = "AMBULANCES_UPDATE"
	EventRequestsUpdate        = "REQUESTS_UPDATE"
	EventAmbulanceStatusChange = "AMBULANCE_STATUS_CHANGE"
	EventRequestStatusChange   = "REQUEST_STATUS_CHANGE"
	EventNewEmergencyRequest   = "NEW_EMERGENCY_REQUEST"
)

// Event is one live-update message pushed to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Client represents a single WebSocket connection.
type Client struct {
	Send chan []byte
	conn *websocket.Conn
}

// Hub is the central connection manager. All operations are thread-safe.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a Hub ready to manage WebSocket clients.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS for the API layer is handled by the router.
	},
}

// HandleConnect upgrades an HTTP connection to WebSocket, registers the
// client with the hub, and starts read/write pumps.
func (h *Hub) HandleConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := &Client{
		Send: make(chan []byte, 256),
		conn: conn,
	}
	h.Register(client)

	go h.writePump(client)
	go h.readPump(client)
}

// readPump drains inbound frames. Clients send nothing meaningful; reading
// only detects the close.
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.Unregister(client)
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes messages from the Send channel to the connection.
func (h *Hub) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
