package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-booking/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one websocket connection. Email is empty for admin
// connections that are not also customers.
type Client struct {
	ID    string
	Email string
	Role  string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, id, email, role string) *Client {
	return &Client{
		ID:    id,
		Email: email,
		Role:  role,
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
	}
}

// ReadPump drains inbound frames so control messages are processed. It
// returns when the connection fails and unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.ErrorLogger.Warnf("Realtime client %s read error: %v", c.ID, err)
			}
			return
		}
	}
}

// WritePump is the only writer on the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				utils.ErrorLogger.Warnf("Realtime client %s write error: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
