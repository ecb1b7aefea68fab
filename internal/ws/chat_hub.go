package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// ChatRoom holds the live sockets watching one support conversation.
type ChatRoom struct {
	ConversationID uint
	clients        map[*Client]struct{}
	mu             sync.RWMutex
}

func (r *ChatRoom) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ChatHub holds rooms by conversation id. Empty rooms are dropped.
type ChatHub struct {
	mu    sync.Mutex
	rooms map[uint]*ChatRoom
}

func NewChatHub() *ChatHub {
	return &ChatHub{rooms: make(map[uint]*ChatRoom)}
}

func (h *ChatHub) Join(conversationID uint, c *Client) *ChatRoom {
	h.mu.Lock()
	r, ok := h.rooms[conversationID]
	if !ok {
		r = &ChatRoom{ConversationID: conversationID, clients: make(map[*Client]struct{})}
		h.rooms[conversationID] = r
	}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	h.mu.Unlock()

	c.addCloseHook(func(c *Client) { h.Leave(conversationID, c) })
	return r
}

func (h *ChatHub) Leave(conversationID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.clients, c)
	empty := len(r.clients) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, conversationID)
	}
}

func (h *ChatHub) Room(conversationID uint) *ChatRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[conversationID]
}

// BroadcastToConversation sends payload to everyone in the room, the sender included.
func (h *ChatHub) BroadcastToConversation(conversationID uint, payload interface{}) {
	r := h.Room(conversationID)
	if r == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("component", "ws").Msg("marshal chat payload failed")
		return
	}
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()
	for _, c := range clients {
		c.deliver(data)
	}
}
