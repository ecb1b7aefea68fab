package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

const sendBuffer = 256

// Client is one websocket connection. Send is drained by the write pump.
type Client struct {
	UserID uint
	Role   string
	Send   chan []byte

	mu      sync.Mutex
	closed  bool
	onClose []func(*Client)
}

func NewClient(userID uint, role string) *Client {
	return &Client{UserID: userID, Role: role, Send: make(chan []byte, sendBuffer)}
}

// Close unregisters the client everywhere and closes Send. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	hooks := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(c)
	}
	close(c.Send)
}

// addCloseHook runs fn on Close, or right away when the client is already closed.
func (c *Client) addCloseHook(fn func(*Client)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn(c)
		return
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// deliver drops the frame when the client is slow or gone.
func (c *Client) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Debug().Str("component", "ws").Uint("user_id", c.UserID).Msg("send buffer full, frame dropped")
	}
}

// SendJSON marshals v and queues it like any broadcast frame.
func (c *Client) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("component", "ws").Msg("marshal frame")
		return
	}
	c.deliver(data)
}

// Hub tracks notification sockets per user. One user can have several connections.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
	h.mu.Unlock()
	c.addCloseHook(h.unregister)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// BroadcastToUser sends payload as JSON to every connection of userID.
func (h *Hub) BroadcastToUser(userID uint, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("component", "ws").Msg("marshal push payload failed")
		return
	}
	h.mu.RLock()
	m := h.byUser[userID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.deliver(data)
	}
}

func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}
