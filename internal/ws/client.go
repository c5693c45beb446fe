package ws

import (
	"encoding/json"
	"time"

	"gold_mining/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

type Client struct {
	Address string
	Conn    *websocket.Conn
	Send    chan []byte
	Hub     *Hub
	Done    chan struct{}
}

func NewClient(address string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		Address: address,
		Conn:    conn,
		Send:    make(chan []byte, 64),
		Hub:     hub,
		Done:    make(chan struct{}),
	}
}

// Run registers the client and pumps messages until the socket closes.
// initial, if set, is queued right after the ready handshake.
func (c *Client) Run(initial []byte) {
	c.Hub.Register(c)
	go c.writePump()

	if ready, err := encode(MsgReady, nil); err == nil {
		c.queue(ready)
	}
	if initial != nil {
		c.queue(initial)
	}

	c.readPump()
}

func (c *Client) queue(msg []byte) {
	defer func() {
		// Send was closed by the hub while we were starting up
		_ = recover()
	}()
	select {
	case c.Send <- msg:
	default:
	}
}

//read
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws: read error", "address", c.Address, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			if out, err := encode(MsgError, ErrorPayload{Message: "invalid message"}); err == nil {
				c.queue(out)
			}
			continue
		}
		if msg.Type == MsgPing {
			if out, err := encode(MsgPong, nil); err == nil {
				c.queue(out)
			}
		}
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws: write error", "address", c.Address, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
