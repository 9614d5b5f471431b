package relay

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// sendBuffer bounds the per-client outbound queue. Frames beyond it are
// dropped rather than stalling the fan-out loop.
const sendBuffer = 256

// Conn is the subset of the WebSocket connection the hub writes to.
// *websocket.Conn satisfies it; tests substitute a recorder.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a connected WebSocket client.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
	once sync.Once
}

// NewClient wraps a connection for hub delivery.
func NewClient(id string, conn Conn) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// WritePump drains the send queue onto the connection. Run it in its own
// goroutine. The connection is closed as soon as the queue is shut or a
// write fails, so the read loop observes the break without waiting on the
// transport. All writes go through here so the connection is never written
// concurrently.
func (c *Client) WritePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[relay] Write to client %s failed: %v", c.ID, err)
			break
		}
	}
	_ = c.conn.Close()
	for range c.send {
		// Discard frames queued after the failure until the client is
		// unregistered.
	}
}

func (c *Client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// queue enqueues a frame without blocking; slow clients lose frames instead
// of stalling the room fan-out.
func (c *Client) queue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Printf("[relay] Dropping frame for slow client %s", c.ID)
	}
}

// Hub tracks WebSocket connections and their room memberships and fans
// frames out to rooms or individual sockets. A connection may belong to any
// number of rooms; membership here is the only "joined" bookkeeping in the
// server.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client         // socketID -> client
	rooms       map[string]map[string]bool // roomID -> set of socketIDs
	clientRooms map[string]map[string]bool // socketID -> set of roomIDs
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		rooms:       make(map[string]map[string]bool),
		clientRooms: make(map[string]map[string]bool),
	}
}

// Register adds a client to the hub. The caller starts the client's
// WritePump.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	log.Printf("[relay] Client %s registered", client.ID)
}

// Unregister removes a client from the hub and every room it joined, and
// shuts down its send queue.
func (h *Hub) Unregister(socketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[socketID]
	if !ok {
		return
	}
	delete(h.clients, socketID)

	for roomID := range h.clientRooms[socketID] {
		delete(h.rooms[roomID], socketID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.clientRooms, socketID)

	client.closeSend()
	log.Printf("[relay] Client %s unregistered", socketID)
}

// JoinRoom adds a client to a room's group. Re-joining is idempotent.
func (h *Hub) JoinRoom(socketID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[socketID]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][socketID] = true
	if h.clientRooms[socketID] == nil {
		h.clientRooms[socketID] = make(map[string]bool)
	}
	h.clientRooms[socketID][roomID] = true
}

// Rooms returns the ids of all rooms a client belongs to.
func (h *Hub) Rooms(socketID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clientRooms[socketID]))
	for roomID := range h.clientRooms[socketID] {
		ids = append(ids, roomID)
	}
	return ids
}

// RoomClients returns the socket ids currently in a room.
func (h *Hub) RoomClients(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[roomID]))
	for socketID := range h.rooms[roomID] {
		ids = append(ids, socketID)
	}
	return ids
}

// Occupied reports whether a room has any live members.
func (h *Hub) Occupied(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID]) > 0
}

// BroadcastToRoom queues a frame for every member of a room except exceptID.
// Pass an empty exceptID to reach the whole room.
func (h *Hub) BroadcastToRoom(roomID string, data []byte, exceptID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for socketID := range h.rooms[roomID] {
		if socketID == exceptID {
			continue
		}
		if client, ok := h.clients[socketID]; ok {
			client.queue(data)
		}
	}
}

// SendTo queues a frame for one specific socket. Returns false when the
// socket is unknown.
func (h *Hub) SendTo(socketID string, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[socketID]
	if !ok {
		return false
	}
	client.queue(data)
	return true
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// RoomCounts returns a snapshot of member counts per occupied room.
func (h *Hub) RoomCounts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, len(h.rooms))
	for roomID, members := range h.rooms {
		counts[roomID] = len(members)
	}
	return counts
}

// closeAll shuts down every connected client.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.closeSend()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
	h.clientRooms = make(map[string]map[string]bool)
}
