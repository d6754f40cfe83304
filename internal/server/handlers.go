// Package server exposes the HTTP handlers: the polling chat endpoint, the
// room listing, WebSocket upgrades and health checks.
package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomchat/internal/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Handlers serves a chat service over HTTP. Callers of the polling endpoint
// are tracked with a session cookie.
type Handlers struct {
	chat     *chat.Service
	sessions *sessionStore
	hub      *Hub

	// resolveHost maps a caller's IP to a host name.
	resolveHost func(ip string) string
}

// NewHandlers creates handlers for svc backed by the global hub.
func NewHandlers(svc *chat.Service) *Handlers {
	return &Handlers{
		chat:        svc,
		sessions:    newSessionStore(),
		hub:         hub,
		resolveHost: lookupHost,
	}
}

// lookupHost returns the first reverse DNS name of ip, or ip itself.
func lookupHost(ip string) string {
	names, err := net.LookupAddr(ip)
	if err != nil || len(names) == 0 {
		return ip
	}
	return names[0]
}

func kickedReply(svc *chat.Service) string {
	return frame(tagKick, svc.Messages().Format(chat.MsgUserKicked))
}

// joinRoom joins and renders the reply.
func joinRoom(svc *chat.Service, room, nickname, ip, host string) (chat.JoinResult, string) {
	res := svc.Join(room, nickname, ip, host)
	return res, encodeJoin(svc.Messages(), res.Status)
}

// submitText hands text to the room and renders the acknowledgement. A
// caller that is no longer a member is told it was kicked.
func submitText(svc *chat.Service, room, nickname, text string) string {
	if err := svc.Submit(room, nickname, text); err != nil {
		log.WithFields(log.Fields{"room": room, "nickname": nickname}).Debugf("Submit rejected: %v", err)
		return kickedReply(svc)
	}
	return svc.Messages().Format(chat.MsgMessageReceived)
}

func pollRoom(svc *chat.Service, room, nickname string) (chat.PollResult, string) {
	res := svc.Poll(room, nickname)
	return res, encodePoll(res)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := fmt.Fprint(w, body); err != nil {
		log.Errorf("Error writing response: %v", err)
	}
}

// ChatHandler is the polling endpoint.
//
//	POST room, nickname   join and start a session
//	POST msg              submit a line of text
//	GET                   poll for entries, members and topic
func (h *Handlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.poll(w, r)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Malformed form body", http.StatusBadRequest)
			return
		}
		if r.PostForm.Has("msg") {
			h.submit(w, r)
			return
		}
		h.join(w, r)
	default:
		http.Error(w, "Method not allowed. Chat endpoint only accepts GET and POST requests.", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) join(w http.ResponseWriter, r *http.Request) {
	room := r.PostForm.Get("room")
	nickname := r.PostForm.Get("nickname")

	ip := clientIP(r)
	res, reply := joinRoom(h.chat, room, nickname, ip, h.resolveHost(ip))
	if res.Status == chat.Added {
		h.sessions.bind(w, r, room, res.Nickname)
	}
	writeText(w, reply)
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.sessions.lookup(r)
	if !ok {
		writeText(w, kickedReply(h.chat))
		return
	}
	writeText(w, submitText(h.chat, sess.Room, sess.Nickname, r.PostForm.Get("msg")))
}

func (h *Handlers) poll(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.sessions.lookup(r)
	if !ok {
		writeText(w, kickedReply(h.chat))
		return
	}

	res, reply := pollRoom(h.chat, sess.Room, sess.Nickname)
	switch {
	case res.Kicked:
		h.sessions.drop(id)
	case res.Renamed:
		h.sessions.rename(id, res.Nickname)
	}
	writeText(w, reply)
}

// RoomSummary is one row of the room listing.
type RoomSummary struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Users       int                    `json:"users"`
	Display     chat.DisplayAttributes `json:"display"`
}

// RoomsHandler lists every room as JSON.
func (h *Handlers) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rooms := h.chat.Registry().List()
	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, RoomSummary{
			Name:        room.Name(),
			Description: room.Description(),
			Users:       room.UserCount(),
			Display:     room.Display(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Errorf("Error encoding room list: %v", err)
	}
}

// RoomLogHandler renders the recent public traffic of ?room= as frames.
func (h *Handlers) RoomLogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	room, err := h.chat.Registry().Lookup(r.URL.Query().Get("room"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeText(w, encodeEntries(room.Log()))
}

// WebSocketHandler upgrades GET requests and registers the connection with
// the hub, which launches its pumps.
func (h *Handlers) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	ip := clientIP(r)
	client := NewClient(conn, h.hub, h.chat, r.RemoteAddr, ip, h.resolveHost(ip))
	h.hub.register <- client
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat server is running!")
}
