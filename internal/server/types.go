// Package server defines the JSON request exchanged over WebSocket
// connections and helpers shared by the client and hub logic.
package server

import "strings"

// WebSocket request actions.
const (
	ActionJoin = "join"
	ActionSay  = "say"
	ActionPoll = "poll"
)

// Request is one JSON message sent by a WebSocket client. Room and Nickname
// are read on join only; afterwards the connection remembers them.
type Request struct {
	Action   string `json:"action"`
	Room     string `json:"room,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Text     string `json:"text,omitempty"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
