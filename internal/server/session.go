package server

import (
	"net/http"
	"strings"
	"sync"

	"github.com/playsync/playsync/internal/shared"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "playsync_session"

// SessionStore maps opaque session tokens to user IDs. The serve command
// and tests use [MemorySessionStore]; deployments can plug in a persistent
// implementation.
type SessionStore interface {
	// Create issues a new session token for the user.
	Create(userID string) (string, error)

	// Get resolves a token to its user ID. ok is false for unknown or
	// expired tokens.
	Get(token string) (userID string, ok bool)

	// Delete revokes a token. Deleting an unknown token is a no-op.
	Delete(token string)
}

// MemorySessionStore is an in-memory [SessionStore].
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]string),
	}
}

func (s *MemorySessionStore) Create(userID string) (string, error) {
	token, err := shared.GenerateState()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[token] = userID
	s.mu.Unlock()

	return token, nil
}

func (s *MemorySessionStore) Get(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.sessions[token]
	return userID, ok
}

func (s *MemorySessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// sessionToken extracts the session token from the request: the session
// cookie, or a Bearer token as a fallback for non-browser clients.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	auth := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(auth, "Bearer "); found {
		return token
	}

	return ""
}

// userFromRequest resolves the request's session to a user ID.
func userFromRequest(r *http.Request, sessions SessionStore) (string, bool) {
	token := sessionToken(r)
	if token == "" {
		return "", false
	}
	return sessions.Get(token)
}
