package service

import (
	"log"
	"sync"
)

// Client is one live WebSocket connection. Frames are handed to the
// connection's writer goroutine through the buffered Send channel; the
// channel is closed exactly once, by Registry.Leave.
type Client struct {
	UserID   int64
	Username string
	Send     chan []byte
}

func NewClient(userID int64, username string) *Client {
	return &Client{
		UserID:   userID,
		Username: username,
		Send:     make(chan []byte, 256),
	}
}

type room struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

// Registry maps chat ids to their rooms of live connections. The registry
// mutex guards only the room map; each room carries its own lock so traffic
// in one chat never serializes against another.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join registers the client under the chat's room, creating the room on
// first join. Joining twice with the same client is a no-op.
func (r *Registry) Join(chatID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[chatID]
	if !ok {
		rm = &room{clients: make(map[*Client]struct{})}
		r.rooms[chatID] = rm
	}

	rm.mu.Lock()
	if _, ok := rm.clients[c]; ok {
		rm.mu.Unlock()
		log.Printf("[WS] %s re-joined chat %s, ignoring", c.Username, chatID)
		return
	}
	rm.clients[c] = struct{}{}
	total := len(rm.clients)
	rm.mu.Unlock()

	log.Printf("[WS] %s joined chat %s (connections: %d)", c.Username, chatID, total)
}

// Leave removes the client from the chat's room and closes its Send
// channel. The last leaver tears the room down. Leaving a room the client
// is not in, or a chat with no room, is a no-op.
func (r *Registry) Leave(chatID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[chatID]
	if !ok {
		return
	}

	rm.mu.Lock()
	if _, present := rm.clients[c]; present {
		delete(rm.clients, c)
		close(c.Send)
		log.Printf("[WS] %s left chat %s (connections: %d)", c.Username, chatID, len(rm.clients))
	}
	empty := len(rm.clients) == 0
	rm.mu.Unlock()

	if empty {
		delete(r.rooms, chatID)
	}
}

// Broadcast fans the payload out to every connection in the chat's room,
// the sender included. A client whose send buffer is full just misses this
// frame: the failure is logged and the client stays registered, cleanup
// belongs to its own disconnect path. Returns the number of deliveries.
func (r *Registry) Broadcast(chatID string, payload []byte) int {
	r.mu.RLock()
	rm, ok := r.rooms[chatID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	delivered := 0
	for c := range rm.clients {
		select {
		case c.Send <- payload:
			delivered++
		default:
			log.Printf("[WS] dropped frame for %s in chat %s: send buffer full", c.Username, chatID)
		}
	}
	return delivered
}

// RoomSize returns the number of live connections in the chat's room.
func (r *Registry) RoomSize(chatID string) int {
	r.mu.RLock()
	rm, ok := r.rooms[chatID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.clients)
}

// Rooms returns the number of active rooms.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Shutdown closes every connection's Send channel and drops all rooms.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chatID, rm := range r.rooms {
		rm.mu.Lock()
		for c := range rm.clients {
			delete(rm.clients, c)
			close(c.Send)
		}
		rm.mu.Unlock()
		delete(r.rooms, chatID)
	}
}
