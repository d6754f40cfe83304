package server

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/roomchat/internal/catalog"
	"github.com/Tyrowin/roomchat/internal/chat"
)

// newTestChat builds a stopped service with the default English catalog over
// "Lobby" (admin password "chatadmin") and "Games".
func newTestChat(t *testing.T) *chat.Service {
	t.Helper()
	reg, err := chat.NewRegistry([]chat.RoomDefinition{
		{Name: "Lobby", Description: "Welcome", AdminPassword: "chatadmin", Display: defaultDisplay},
		{Name: "Games", Description: "Play", AdminPassword: "chatadmin", Display: defaultDisplay},
	}, nil)
	if err != nil {
		t.Fatalf("NewRegistry() returned error: %v", err)
	}
	return chat.NewService(reg, catalog.New(nil, ""), chat.DefaultConfig(), nil)
}

// newTestHandlers serves a fresh service with its own hub. Reverse DNS is
// replaced by the identity.
func newTestHandlers(t *testing.T) (*Handlers, *httptest.Server) {
	t.Helper()
	SetConfig(nil)
	t.Cleanup(func() { SetConfig(nil) })

	h := NewHandlers(newTestChat(t))
	h.resolveHost = func(ip string) string { return ip }
	h.hub = NewHub()
	go h.hub.Run()
	t.Cleanup(func() {
		if err := h.hub.Shutdown(2 * time.Second); err != nil {
			t.Errorf("Hub shutdown returned error: %v", err)
		}
	})

	testServer := httptest.NewServer(h.Routes())
	t.Cleanup(testServer.Close)
	return h, testServer
}

// newBrowser returns an HTTP client that keeps cookies, like a browser tab.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

func postForm(t *testing.T, client *http.Client, target string, values url.Values) string {
	t.Helper()
	resp, err := client.PostForm(target, values)
	if err != nil {
		t.Fatalf("POST %s failed: %v", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status %d for POST %s, got %d", http.StatusOK, target, resp.StatusCode)
	}
	return readBody(t, resp)
}

func getText(t *testing.T, client *http.Client, target string) string {
	t.Helper()
	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("GET %s failed: %v", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status %d for GET %s, got %d", http.StatusOK, target, resp.StatusCode)
	}
	return readBody(t, resp)
}

func join(t *testing.T, client *http.Client, baseURL, room, nickname string) string {
	t.Helper()
	return postForm(t, client, baseURL+"/chat", url.Values{"room": {room}, "nickname": {nickname}})
}

func say(t *testing.T, client *http.Client, baseURL, text string) string {
	t.Helper()
	return postForm(t, client, baseURL+"/chat", url.Values{"msg": {text}})
}

func poll(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	return getText(t, client, baseURL+"/chat")
}

func assertContainsFrame(t *testing.T, body, tag, payload string) {
	t.Helper()
	want := tag + payload + frameSeparator
	if !strings.Contains(body, want) {
		t.Errorf("Expected %q in reply, got %q", want, body)
	}
}
