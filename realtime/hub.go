package realtime

import (
	"encoding/json"
	"sync"

	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// Event names pushed to websocket clients.
const (
	EventMessagesSnapshot   = "messages_snapshot"
	EventUnreadCount        = "unread_count"
	EventToast              = "toast"
	EventBookingUpdate      = "booking_update"
	EventDashboardUpdate    = "dashboard_update"
	EventTableUpdate        = "table_update"
	EventConversationUpdate = "conversation_update"
	EventAdminUpdate        = "admin_update"
)

// ToastTTLMillis is how long a client shows a toast.
const ToastTTLMillis = 4000

type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks connected clients. Sends never block: a client whose buffer
// is full is disconnected.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	// OnCountChange, when set, is called with the client count after
	// every register and unregister.
	OnCountChange func(n int)
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	utils.InfoLogger.Infof("Realtime client %s connected (role=%s, email=%s)", c.ID, c.Role, c.Email)
	h.countChanged(n)
}

// Unregister removes c and closes its send buffer. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	utils.InfoLogger.Infof("Realtime client %s disconnected", c.ID)
	h.countChanged(n)
}

func (h *Hub) countChanged(n int) {
	if h.OnCountChange != nil {
		h.OnCountChange(n)
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToEmail delivers evt to every customer connection of email except
// the one whose id is skipClientID. It returns the number of clients the
// event was queued for.
func (h *Hub) SendToEmail(email string, evt Event, skipClientID string) int {
	return h.deliver(evt, func(c *Client) bool {
		return c.Email == email && c.Role != models.RoleAdmin && (skipClientID == "" || c.ID != skipClientID)
	})
}

func (h *Hub) SendToAdmins(evt Event) int {
	return h.deliver(evt, func(c *Client) bool {
		return c.Role == models.RoleAdmin
	})
}

func (h *Hub) SendToClient(clientID string, evt Event) bool {
	return h.deliver(evt, func(c *Client) bool {
		return c.ID == clientID
	}) > 0
}

func (h *Hub) deliver(evt Event, match func(*Client) bool) int {
	data, err := json.Marshal(evt)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling %s event: %v", evt.Event, err)
		return 0
	}

	var (
		sent int
		slow []*Client
	)
	h.mu.RLock()
	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		utils.ErrorLogger.Warnf("Realtime client %s is too slow, dropping", c.ID)
		h.Unregister(c)
	}
	return sent
}
