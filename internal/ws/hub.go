package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// Client -> Server events.
const (
	EventJoinSessionRoom    = "join_session_room"
	EventLeaveSessionRoom   = "leave_session_room"
	EventRequestInitSession = "request_init_session"
	EventPing               = "ping"
)

// Server -> Client events owned by this package. Session events are named in package session.
const (
	EventPong  = "pong"
	EventError = "error"
)

// Message is one frame on the wire.
type Message struct {
	Event     string          `json:"event"`
	SessionID string          `json:"sessionId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage builds a frame with payload encoded as data.
func NewMessage(event, sessionID string, payload any) ([]byte, error) {
	msg := Message{Event: event, SessionID: sessionID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

// Client represents a WebSocket client connection.
type Client struct {
	id   string
	conn *websocket.Conn
	user string
	role model.Role
	send chan []byte

	mu     sync.Mutex
	closed bool
	rooms  map[string]bool
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, user string, role model.Role) *Client {
	return &Client{
		id:    uuid.NewString(),
		conn:  conn,
		user:  user,
		role:  role,
		send:  make(chan []byte, 256),
		rooms: make(map[string]bool),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// User returns the authenticated user name.
func (c *Client) User() string {
	return c.user
}

// Role returns the authenticated user's role.
func (c *Client) Role() model.Role {
	return c.role
}

// Send queues a message to be sent to the client.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, close the client
		c.closeLocked()
	}
}

// Close closes the client's send queue.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Rooms returns the session ids the client joined.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Hub holds the clients in one session's room.
type Hub struct {
	sessionID string
	clients   map[*Client]bool
	mu        sync.RWMutex
}

// NewHub creates a new Hub for the given session.
func NewHub(sessionID string) *Hub {
	return &Hub{
		sessionID: sessionID,
		clients:   make(map[*Client]bool),
	}
}

// SessionID returns the session ID for this hub.
func (h *Hub) SessionID() string {
	return h.sessionID
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the hub and reports how many remain.
func (h *Hub) Unregister(client *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
	return len(h.clients)
}

// Broadcast sends a message to all clients in the room.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.Send(data)
	}
}

// ClientCount returns the number of clients in the room.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager tracks every connected client and the rooms they joined.
type HubManager struct {
	hubs    map[string]*Hub
	clients map[*Client]bool
	mu      sync.RWMutex
}

// NewHubManager creates a new HubManager.
func NewHubManager() *HubManager {
	return &HubManager{
		hubs:    make(map[string]*Hub),
		clients: make(map[*Client]bool),
	}
}

// Connect adds a client to the global set.
func (m *HubManager) Connect(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client] = true
}

// Join puts client in sessionID's room, creating the room if needed.
func (m *HubManager) Join(client *Client, sessionID string) *Hub {
	m.mu.Lock()
	hub, ok := m.hubs[sessionID]
	if !ok {
		hub = NewHub(sessionID)
		m.hubs[sessionID] = hub
	}
	hub.Register(client)
	m.mu.Unlock()

	client.mu.Lock()
	client.rooms[sessionID] = true
	client.mu.Unlock()
	return hub
}

// Leave takes client out of sessionID's room. Empty rooms are dropped.
func (m *HubManager) Leave(client *Client, sessionID string) {
	m.mu.Lock()
	if hub, ok := m.hubs[sessionID]; ok {
		if hub.Unregister(client) == 0 {
			delete(m.hubs, sessionID)
		}
	}
	m.mu.Unlock()

	client.mu.Lock()
	delete(client.rooms, sessionID)
	client.mu.Unlock()
}

// Disconnect removes client from every room and the global set, then closes it.
func (m *HubManager) Disconnect(client *Client) {
	for _, id := range client.Rooms() {
		m.Leave(client, id)
	}
	m.mu.Lock()
	delete(m.clients, client)
	m.mu.Unlock()
	client.Close()
}

// Get returns the hub for the session, or nil if nobody joined it.
func (m *HubManager) Get(sessionID string) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[sessionID]
}

// BroadcastRoom sends data to the clients in sessionID's room.
func (m *HubManager) BroadcastRoom(sessionID string, data []byte) {
	if hub := m.Get(sessionID); hub != nil {
		hub.Broadcast(data)
	}
}

// BroadcastAll sends data to every connected client.
func (m *HubManager) BroadcastAll(data []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for client := range m.clients {
		client.Send(data)
	}
}

// ClientCount returns the number of connected clients.
func (m *HubManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Close disconnects every client.
func (m *HubManager) Close() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for client := range m.clients {
		clients = append(clients, client)
	}
	m.clients = make(map[*Client]bool)
	m.hubs = make(map[string]*Hub)
	m.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
