package ws

import "sync"

// RoomService is the room-membership abstraction the gateway publishes
// through. The process-local Hub is the only implementation today; the
// interface exists so a cross-instance pub/sub backend can slot in without
// touching call sites.
type RoomService interface {
	// Subscribe adds the client to the room. Joining the same room twice
	// from the same client holds exactly one subscription.
	Subscribe(roomKey string, c *Client)
	// Unsubscribe removes the client from the room. Idempotent.
	Unsubscribe(roomKey string, c *Client)
	// Publish delivers payload to every client currently subscribed to the
	// room and reports how many sends succeeded.
	Publish(roomKey string, payload []byte) int
	// NotifyUser delivers payload to the user's live connection, if any.
	NotifyUser(userID string, payload []byte) bool
}

// Hub tracks live connections and their room subscriptions for this process.
// Membership is ephemeral: rebuilt on every connection, lost on restart, and
// never shared across instances.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client            // clientID -> client
	userClients map[string]string             // userID -> clientID
	rooms       map[string]map[string]*Client // roomKey -> clientID -> client
	clientRooms map[string]map[string]bool    // clientID -> set of roomKeys
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		userClients: make(map[string]string),
		rooms:       make(map[string]map[string]*Client),
		clientRooms: make(map[string]map[string]bool),
	}
}

var _ RoomService = (*Hub)(nil)

// Attach registers a connection and starts its write loop. A prior
// connection for the same user is replaced and closed.
func (h *Hub) Attach(c *Client) {
	var previous *Client

	h.mu.Lock()
	if existingID, ok := h.userClients[c.UserID]; ok {
		if existing := h.clients[existingID]; existing != nil {
			previous = existing
			h.detachLocked(existingID)
		}
	}
	h.clients[c.ID] = c
	h.userClients[c.UserID] = c.ID
	h.clientRooms[c.ID] = make(map[string]bool)
	h.mu.Unlock()

	c.Start()

	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes a connection from the hub and from every room it joined.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	h.detachLocked(c.ID)
	h.mu.Unlock()
}

func (h *Hub) Subscribe(roomKey string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	room := h.rooms[roomKey]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[roomKey] = room
	}
	room[c.ID] = c
	h.clientRooms[c.ID][roomKey] = true
}

func (h *Hub) Unsubscribe(roomKey string, c *Client) {
	h.mu.Lock()
	h.leaveLocked(roomKey, c.ID)
	h.mu.Unlock()
}

func (h *Hub) Publish(roomKey string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, c := range h.rooms[roomKey] {
		if err := c.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) NotifyUser(userID string, payload []byte) bool {
	h.mu.RLock()
	clientID, ok := h.userClients[userID]
	var c *Client
	if ok {
		c = h.clients[clientID]
	}
	h.mu.RUnlock()
	if c == nil {
		return false
	}
	return c.Send(payload) == nil
}

// RoomSize reports the current subscriber count of a room.
func (h *Hub) RoomSize(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey])
}

func (h *Hub) detachLocked(clientID string) {
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(h.clients, clientID)
	if current, ok := h.userClients[c.UserID]; ok && current == clientID {
		delete(h.userClients, c.UserID)
	}
	for roomKey := range h.clientRooms[clientID] {
		h.leaveLocked(roomKey, clientID)
	}
	delete(h.clientRooms, clientID)
}

func (h *Hub) leaveLocked(roomKey, clientID string) {
	room := h.rooms[roomKey]
	if room == nil {
		return
	}
	delete(room, clientID)
	if len(room) == 0 {
		delete(h.rooms, roomKey)
	}
	if memberships, ok := h.clientRooms[clientID]; ok {
		delete(memberships, roomKey)
	}
}
