// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and the chat session each connection carries.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Client is one WebSocket connection. After a successful join it remembers
// the room and nickname, which play the part of the HTTP session cookie.
type Client struct {
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	chat           *chat.Service
	addr           string
	ip             string
	host           string
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig

	// room and nickname are only touched by readPump.
	room     string
	nickname string
}

// NewClient creates a Client for conn. addr is the remote address; ip and
// host identify the caller to the chat service.
func NewClient(conn *websocket.Conn, hub *Hub, svc *chat.Service, addr, ip, host string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	limiter := newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval)

	return &Client{
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		chat:           svc,
		addr:           addr,
		ip:             ip,
		host:           host,
		closed:         false,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    limiter,
		rateLimit:      cfg.RateLimit,
	}
}

// GetSendChan returns the client's send channel for reading outgoing replies.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Errorf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			log.Errorf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// handleReadError logs err by kind and reports whether the read loop should
// stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	entry := log.WithField("addr", c.addr)

	if errors.Is(err, websocket.ErrReadLimit) {
		entry.Warnf("Message exceeded maximum size of %d bytes", c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		entry.Infof("Client disconnected: %v", err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		entry.Infof("Client connection closed: %v", err)
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		entry.Warnf("Unexpected WebSocket error: %v", err)
		return true
	}

	entry.Errorf("WebSocket read error: %v", err)
	return true
}

func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.WithField("addr", c.addr).Warnf("Rate limit exceeded (%d messages per %s); discarding message", c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// processMessage decodes a request, runs it against the chat service and
// queues the reply. It returns false when the request was rejected.
func (c *Client) processMessage(rawMessage []byte) bool {
	var req Request
	if err := json.Unmarshal(rawMessage, &req); err != nil {
		log.WithField("addr", c.addr).Warnf("Invalid request: %v", err)
		return false
	}

	var reply string
	switch req.Action {
	case ActionJoin:
		res, text := joinRoom(c.chat, req.Room, req.Nickname, c.ip, c.host)
		if res.Status == chat.Added {
			c.room, c.nickname = req.Room, res.Nickname
		}
		reply = text

	case ActionSay:
		if c.nickname == "" {
			reply = kickedReply(c.chat)
			break
		}
		reply = submitText(c.chat, c.room, c.nickname, req.Text)

	case ActionPoll:
		if c.nickname == "" {
			reply = kickedReply(c.chat)
			break
		}
		res, text := pollRoom(c.chat, c.room, c.nickname)
		switch {
		case res.Kicked:
			c.room, c.nickname = "", ""
		case res.Renamed:
			c.nickname = res.Nickname
		}
		reply = text

	default:
		log.WithFields(log.Fields{"addr": c.addr, "action": req.Action}).Warn("Unknown request action")
		return false
	}

	return c.hub.deliver(c, []byte(reply))
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Errorf("Error closing connection in readPump: %v", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(rawMessage)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Errorf("Error closing connection in writePump: %v", err)
		}
	}
}

// handleMessage writes one reply and returns false if the connection should
// be closed.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Errorf("Error setting write deadline for %s: %v", c.addr, err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			log.Errorf("Error writing close message to %s: %v", c.addr, err)
		}
		return false
	}

	// One reply per text message.
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Errorf("Error writing reply to %s: %v", c.addr, err)
		return false
	}
	return true
}

func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		log.Errorf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		log.Errorf("Error writing ping message to %s: %v", c.addr, err)
		return false
	}
	return true
}
