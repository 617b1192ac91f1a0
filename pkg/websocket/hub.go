package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hub fans trip events out to connected clients. Each user joins a personal
// room keyed by their id; every delivery is addressed to one of those rooms.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	UserID    primitive.ObjectID     `json:"user_id"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// PushToUser delivers an event to every connection a user has open. It is
// best-effort: no connected client means the event is simply dropped, the
// polling endpoints remain the source of truth.
func (h *Hub) PushToUser(userID primitive.ObjectID, eventType string, data map[string]interface{}) {
	msg := Message{
		Type:      eventType,
		RoomID:    userRoom(userID),
		UserID:    userID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	h.sendToRoom(msg.RoomID, msg)
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	log.Printf("Client registered: %s", client.UserID.Hex())

	h.joinRoom(client, userRoom(client.UserID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		for roomID, room := range h.rooms {
			if _, exists := room[client]; exists {
				delete(room, client)
				if len(room) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}

		log.Printf("Client unregistered: %s", client.UserID.Hex())
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

func (h *Hub) sendToRoom(roomID string, message Message) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	for client := range room {
		h.sendToClient(client, message)
	}
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	select {
	case client.send <- data:
	default:
		// Slow consumer; drop the message rather than block the hub.
	}
}

func userRoom(userID primitive.ObjectID) string {
	return "user_" + userID.Hex()
}
