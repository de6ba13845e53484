package hub

// Server to client messages.

type OutputMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
}

type ExitMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type SessionsMessage struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClientMessage is everything a client can send: "input", "resize" and
// "subscribe".
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      string `json:"data,omitempty"`
	Rows      int    `json:"rows,omitempty"`
	Cols      int    `json:"cols,omitempty"`
}

// hubBroadcast pairs an encoded frame with the session it concerns so
// fan-out can honor per-client subscriptions.
type hubBroadcast struct {
	data      []byte
	sessionID string
}
