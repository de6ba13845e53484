package hub

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	subMu         sync.RWMutex
	subscribeAll  bool
	subscriptions map[string]struct{}
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:            generateID(),
		conn:          conn,
		send:          make(chan []byte, 256),
		hub:           hub,
		subscribeAll:  true,
		subscriptions: make(map[string]struct{}),
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(32768)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.hub.log.Debug("client read ended", "client", c.id, "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.log.Debug("client sent invalid message", "client", c.id, "error", err)
			c.hub.SendError(c, "invalid message format")
			continue
		}

		switch msg.Type {
		case "input":
			if msg.SessionID != "" && msg.Data != "" {
				c.hub.handleInput(msg.SessionID, msg.Data)
			}
		case "resize":
			if msg.SessionID != "" && msg.Rows > 0 && msg.Cols > 0 {
				c.hub.handleResize(msg.SessionID, msg.Rows, msg.Cols)
			}
		case "subscribe":
			c.subscribe(msg.SessionID)
		default:
			c.hub.SendError(c, "unknown message type: "+msg.Type)
		}
	}
}

// subscribe narrows the client to one session. An empty id resets the
// client back to receiving everything.
func (c *Client) subscribe(sessionID string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if sessionID == "" {
		c.subscribeAll = true
		c.subscriptions = make(map[string]struct{})
		return
	}
	c.subscribeAll = false
	c.subscriptions[sessionID] = struct{}{}
}

// wantsSession reports whether a frame about the session should reach
// this client. Frames without a session go to everyone.
func (c *Client) wantsSession(sessionID string) bool {
	if sessionID == "" {
		return true
	}
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if c.subscribeAll {
		return true
	}
	_, ok := c.subscriptions[sessionID]
	return ok
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

func generateID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(6)
}

func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	rand.Read(b)
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
