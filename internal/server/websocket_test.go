package server

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialChat(t *testing.T, baseURL, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	return dialer.Dial(u.String(), header)
}

func mustDial(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	conn, resp, err := dialChat(t, baseURL, "http://localhost:8080")
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, req Request) string {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, reply, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read reply: %v", err)
	}
	return string(reply)
}

func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("Expected no message, but received one")
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}

// TestWebSocketChatSession tests join, say and poll over one connection.
func TestWebSocketChatSession(t *testing.T) {
	_, testServer := newTestHandlers(t)
	conn := mustDial(t, testServer.URL)

	if reply := exchange(t, conn, Request{Action: ActionPoll}); reply != tagKick+"You are no longer in this room"+frameSeparator {
		t.Errorf("Expected kick frame before joining, got %q", reply)
	}

	if reply := exchange(t, conn, Request{Action: ActionJoin, Room: "Lobby", Nickname: "carol"}); reply != tagAddMessage+"Connection established"+frameSeparator {
		t.Fatalf("Expected connection established frame, got %q", reply)
	}

	if reply := exchange(t, conn, Request{Action: ActionSay, Text: "hi from ws"}); reply != "Message received" {
		t.Errorf("Expected submit acknowledgement, got %q", reply)
	}

	reply := exchange(t, conn, Request{Action: ActionPoll})
	assertContainsFrame(t, reply, tagAddMessage, "<carol> hi from ws")
	assertContainsFrame(t, reply, tagAddUser, "carol*")
	assertContainsFrame(t, reply, tagSetTopic, "Welcome")
}

// TestWebSocketSharesRoomsWithHTTP tests that WebSocket and polling users
// meet in the same rooms.
func TestWebSocketSharesRoomsWithHTTP(t *testing.T) {
	_, testServer := newTestHandlers(t)
	browser := newBrowser(t)
	join(t, browser, testServer.URL, "Games", "dan")

	conn := mustDial(t, testServer.URL)
	exchange(t, conn, Request{Action: ActionJoin, Room: "Games", Nickname: "erin"})
	exchange(t, conn, Request{Action: ActionSay, Text: "ready?"})

	body := poll(t, browser, testServer.URL)
	assertContainsFrame(t, body, tagAddMessage, "<erin> ready?")
	assertContainsFrame(t, body, tagAddUser, "erin")
}

// TestWebSocketInvalidRequests tests that undecodable requests and unknown
// actions get no reply and leave the connection open.
func TestWebSocketInvalidRequests(t *testing.T) {
	_, testServer := newTestHandlers(t)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "Invalid JSON", payload: []byte("not json")},
		{name: "Unknown action", payload: []byte(`{"action":"dance"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := mustDial(t, testServer.URL)

			if err := conn.WriteMessage(websocket.TextMessage, tt.payload); err != nil {
				t.Fatalf("Failed to send message: %v", err)
			}

			// No reply to the bad request: the first one answers the join.
			reply := exchange(t, conn, Request{Action: ActionJoin, Room: "Lobby", Nickname: "frank"})
			if reply != tagAddMessage+"Connection established"+frameSeparator {
				t.Errorf("Expected the join reply first, got %q", reply)
			}
		})
	}
}

// TestWebSocketEmptyNickname tests that a join without a nickname fails and
// leaves the connection unjoined.
func TestWebSocketEmptyNickname(t *testing.T) {
	h, testServer := newTestHandlers(t)
	conn := mustDial(t, testServer.URL)

	if reply := exchange(t, conn, Request{Action: ActionJoin, Room: "Lobby"}); reply != "Connection failed" {
		t.Errorf("Expected connection failed, got %q", reply)
	}
	if reply := exchange(t, conn, Request{Action: ActionPoll}); !strings.HasPrefix(reply, tagKick) {
		t.Errorf("Expected kick frame for an unjoined connection, got %q", reply)
	}

	room, _ := h.chat.Registry().Lookup("Lobby")
	if count := room.UserCount(); count != 0 {
		t.Errorf("Expected no member, got %d", count)
	}
}

// TestWebSocketEndpointRejections tests method and origin checks on /ws.
func TestWebSocketEndpointRejections(t *testing.T) {
	_, testServer := newTestHandlers(t)

	t.Run("Invalid HTTP Method", func(t *testing.T) {
		resp, err := http.Post(testServer.URL+"/ws", "text/plain", strings.NewReader("test"))
		if err != nil {
			t.Fatalf("Failed to make POST request: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status %d for POST request, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
		}
	})

	t.Run("Disallowed origin", func(t *testing.T) {
		conn, resp, err := dialChat(t, testServer.URL, "http://evil.example.com")
		if err == nil {
			_ = conn.Close()
			t.Fatal("Expected the handshake to fail for a disallowed origin")
		}
		if resp == nil {
			t.Fatal("Expected an HTTP response for the failed handshake")
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
		}
	})
}

// TestWebSocketRateLimiting tests that requests over the per-connection
// budget are discarded.
func TestWebSocketRateLimiting(t *testing.T) {
	_, testServer := newTestHandlers(t)
	cfg := NewConfig()
	cfg.RateLimit = RateLimitConfig{Burst: 2, RefillInterval: time.Hour}
	SetConfig(cfg)

	conn := mustDial(t, testServer.URL)
	exchange(t, conn, Request{Action: ActionPoll})
	exchange(t, conn, Request{Action: ActionPoll})

	if err := conn.WriteJSON(Request{Action: ActionPoll}); err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	expectNoMessage(t, conn, 200*time.Millisecond)
}

// TestHubShutdownClosesClients tests that shutting the hub down disconnects
// every client and returns once their pumps have exited.
func TestHubShutdownClosesClients(t *testing.T) {
	SetConfig(nil)
	h := NewHandlers(newTestChat(t))
	h.resolveHost = func(ip string) string { return ip }
	h.hub = NewHub()
	go h.hub.Run()

	testServer := newRawServer(t, h)
	conns := []*websocket.Conn{mustDial(t, testServer), mustDial(t, testServer)}

	deadline := time.Now().Add(2 * time.Second)
	for h.hub.ClientCount() != len(conns) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := h.hub.ClientCount(); got != len(conns) {
		t.Fatalf("Expected %d registered clients, got %d", len(conns), got)
	}

	if err := h.hub.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("Expected clean shutdown, got %v", err)
	}

	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Errorf("Client %d still connected after shutdown", i)
		}
	}
}
