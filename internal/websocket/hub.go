package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans session audit events out to the admin-panel clients of each user.
type Hub struct {
	mu         sync.RWMutex
	clients    map[int64]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	log.Printf("Client for user %d registered", client.UserID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	userClients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := userClients[client]; !ok {
		return
	}
	delete(userClients, client)
	close(client.send)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	log.Printf("Client for user %d unregistered", client.UserID)
}

// PublishEvent delivers eventData to every connected client of userID.
// Clients with a full send buffer miss the message; they catch up through
// the event journal.
func (h *Hub) PublishEvent(userID int64, eventData []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- eventData:
		default:
			log.Printf("WARN: Client for user %d send buffer is full. Dropping message.", userID)
		}
	}
}
