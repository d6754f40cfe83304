// Package server binds HTTP callers to a room and nickname across requests
// with a session cookie.
package server

import (
	"net/http"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "CHATSESSION"

// session is the room and nickname a caller joined as.
type session struct {
	Room     string
	Nickname string
}

type sessionStore struct {
	sessions cmap.ConcurrentMap[string, session]
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: cmap.New[session]()}
}

// bind stores room and nickname under the caller's session, creating the
// session and its cookie when needed.
func (s *sessionStore) bind(w http.ResponseWriter, r *http.Request, room, nickname string) string {
	id := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil && s.sessions.Has(cookie.Value) {
		id = cookie.Value
	} else {
		id = uuid.NewString()
	}

	s.sessions.Set(id, session{Room: room, Nickname: nickname})
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// lookup returns the caller's session, if any.
func (s *sessionStore) lookup(r *http.Request) (string, session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", session{}, false
	}
	sess, ok := s.sessions.Get(cookie.Value)
	return cookie.Value, sess, ok
}

// rename points the session at the caller's new nickname.
func (s *sessionStore) rename(id, nickname string) {
	if sess, ok := s.sessions.Get(id); ok {
		sess.Nickname = nickname
		s.sessions.Set(id, sess)
	}
}

func (s *sessionStore) drop(id string) {
	s.sessions.Remove(id)
}

func (s *sessionStore) count() int {
	return s.sessions.Count()
}
