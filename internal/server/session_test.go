package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func requestWithCookie(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/chat", http.NoBody)
	if id != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
	}
	return req
}

// TestSessionBindAndLookup tests that a bound session is found through its
// cookie and that an existing cookie is reused on rebind.
func TestSessionBindAndLookup(t *testing.T) {
	store := newSessionStore()

	rr := httptest.NewRecorder()
	id := store.bind(rr, requestWithCookie(""), "Lobby", "alice")
	if id == "" {
		t.Fatal("Expected a session id")
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName || cookies[0].Value != id {
		t.Fatalf("Expected the session cookie to be set, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("Expected an HttpOnly cookie")
	}

	gotID, sess, ok := store.lookup(requestWithCookie(id))
	if !ok || gotID != id || sess.Room != "Lobby" || sess.Nickname != "alice" {
		t.Errorf("Expected Lobby/alice under %s, got %s %+v %v", id, gotID, sess, ok)
	}

	again := store.bind(httptest.NewRecorder(), requestWithCookie(id), "Games", "alice")
	if again != id {
		t.Errorf("Expected the session id to be reused, got %s", again)
	}
	if store.count() != 1 {
		t.Errorf("Expected 1 session, got %d", store.count())
	}
}

// TestSessionUnknownCookie tests that a stale cookie is not trusted.
func TestSessionUnknownCookie(t *testing.T) {
	store := newSessionStore()

	if _, _, ok := store.lookup(requestWithCookie("stale")); ok {
		t.Error("Expected an unknown id to miss")
	}
	if _, _, ok := store.lookup(requestWithCookie("")); ok {
		t.Error("Expected a request without cookie to miss")
	}

	id := store.bind(httptest.NewRecorder(), requestWithCookie("stale"), "Lobby", "bob")
	if id == "stale" {
		t.Error("Expected a fresh id instead of the stale cookie value")
	}
}

// TestSessionRenameAndDrop tests the rename and drop transitions.
func TestSessionRenameAndDrop(t *testing.T) {
	store := newSessionStore()
	id := store.bind(httptest.NewRecorder(), requestWithCookie(""), "Lobby", "alice")

	store.rename(id, "alicia")
	if _, sess, _ := store.lookup(requestWithCookie(id)); sess.Nickname != "alicia" {
		t.Errorf("Expected alicia, got %s", sess.Nickname)
	}

	store.drop(id)
	if _, _, ok := store.lookup(requestWithCookie(id)); ok {
		t.Error("Expected the session to be gone")
	}

	store.rename(id, "ghost")
	if store.count() != 0 {
		t.Errorf("Expected rename of a dropped session to do nothing, got %d sessions", store.count())
	}
}
