// Package hub fans terminal output out to websocket clients and routes
// their input back to the session manager.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
)

type Hub struct {
	log        *slog.Logger
	token      string
	clients    map[string]*Client
	register   chan *clientRegistration
	unregister chan *Client
	broadcast  chan hubBroadcast

	onInput  func(sessionID, data string)
	onResize func(sessionID string, rows, cols int)

	mu sync.RWMutex

	sessionsMu sync.RWMutex
	sessions   []string

	running atomic.Bool
}

type clientRegistration struct {
	client       *Client
	initialState []byte
}

func New(token string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:        logger,
		token:      token,
		clients:    make(map[string]*Client),
		register:   make(chan *clientRegistration, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan hubBroadcast, 256),
	}
}

// SetOnInput installs the handler for client keystrokes.
func (h *Hub) SetOnInput(fn func(sessionID, data string)) {
	h.onInput = fn
}

// SetOnResize installs the handler for client-driven terminal resizes.
func (h *Hub) SetOnResize(fn func(sessionID string, rows, cols int)) {
	h.onResize = fn
}

func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.client.id] = reg.client
			h.mu.Unlock()
			if reg.initialState != nil {
				select {
				case reg.client.send <- reg.initialState:
				default:
				}
			}
			go reg.client.writePump(ctx)
			go reg.client.readPump(ctx)
			h.log.Debug("client connected", "client", reg.client.id, "total", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("client disconnected", "client", client.id, "total", h.ClientCount())

		case b := <-h.broadcast:
			h.broadcastToClients(b)
		}
	}
}

func (h *Hub) broadcastToClients(b hubBroadcast) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.wantsSession(b.sessionID) {
			continue
		}
		select {
		case c.send <- b.data:
		default:
			h.log.Warn("client send buffer full, dropping message", "client", c.id)
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || token != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}

	client := newClient(conn, h)

	h.sessionsMu.RLock()
	ids := h.sessions
	h.sessionsMu.RUnlock()
	if ids == nil {
		ids = []string{}
	}

	initialState, _ := json.Marshal(SessionsMessage{Type: "sessions", IDs: ids})

	select {
	case h.register <- &clientRegistration{client: client, initialState: initialState}:
	default:
		h.log.Warn("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
	}
}

// BroadcastOutput sends one chunk of terminal output to every client
// subscribed to the session.
func (h *Hub) BroadcastOutput(sessionID, data string) {
	h.send(sessionID, OutputMessage{Type: "output", SessionID: sessionID, Data: data})
}

// BroadcastExit tells subscribed clients the session's child is gone.
func (h *Hub) BroadcastExit(sessionID string) {
	h.send(sessionID, ExitMessage{Type: "exit", SessionID: sessionID})
}

// BroadcastSessions replaces the session list pushed to new clients and
// announces it to everyone connected.
func (h *Hub) BroadcastSessions(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	h.sessionsMu.Lock()
	h.sessions = ids
	h.sessionsMu.Unlock()

	h.send("", SessionsMessage{Type: "sessions", IDs: ids})
}

func (h *Hub) send(sessionID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal hub message", "error", err)
		return
	}
	select {
	case h.broadcast <- hubBroadcast{data: data, sessionID: sessionID}:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) SendError(client *Client, message string) {
	data, err := json.Marshal(ErrorMessage{Type: "error", Message: message})
	if err != nil {
		h.log.Error("marshal error message", "error", err)
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleInput(sessionID, data string) {
	if h.onInput != nil {
		h.onInput(sessionID, data)
	}
}

func (h *Hub) handleResize(sessionID string, rows, cols int) {
	if h.onResize != nil {
		h.onResize(sessionID, rows, cols)
	}
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		h.log.Warn("unregister channel full, forcing close", "client", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
