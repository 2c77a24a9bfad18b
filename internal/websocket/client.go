package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// inbound frames are only keepalives
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

// Client is one websocket connection of an authenticated user. Events are
// only pushed to it; the only inbound message it understands is a ping.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan *Message
	UserID string

	// pending pong replies for this connection only
	pongs chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *Message, sendBufferSize),
		UserID: userID,
		pongs:  make(chan struct{}, 1),
	}
}

// Start runs the writer in its own goroutine and reads until the peer goes away
func (c *Client) Start() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer c.leave()

	c.conn.SetReadLimit(maxMessageSize)
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for user %s: %v", c.UserID, err)
			}
			return
		}
		c.handleInbound(data)
	}
}

// handleInbound queues a pong on this connection for {"type":"ping"}.
// Anything else is ignored.
func (c *Client) handleInbound(data []byte) {
	var frame struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(data, &frame) != nil || frame.Type != "ping" {
		return
	}
	select {
	case c.pongs <- struct{}{}:
	default:
		// a pong is already pending
	}
}

func pongMessage(userID string) *Message {
	return &Message{
		UserID:  userID,
		Type:    EventPong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	}
}

func (c *Client) extendReadDeadline() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// leave detaches from the hub, unless the hub already shut down, and closes the socket
func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	c.conn.Close()
}

func (c *Client) writePump() {
	keepalive := time.NewTicker(pingPeriod)
	defer keepalive.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg, open := <-c.send:
			if !open {
				c.write(websocket.CloseMessage, nil)
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("Failed to write %s event to user %s: %v", msg.Type, c.UserID, err)
				return
			}

		case <-c.pongs:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(pongMessage(c.UserID)); err != nil {
				return
			}

		case <-keepalive.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, payload []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, payload)
}
