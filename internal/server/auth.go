package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/playsync/playsync/internal/services"
	"github.com/playsync/playsync/internal/shared"
	"github.com/playsync/playsync/internal/tasks"
)

// AuthHandler serves the web account-linking flow: session issuance, the
// Spotify authorization redirect and callback, and the YouTube public-access
// link.
type AuthHandler struct {
	spotify  *services.SpotifyService
	linker   *tasks.Linker
	sessions SessionStore
	logger   *log.Logger

	mu     sync.Mutex
	states map[string]string // state token -> user ID
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(spotify *services.SpotifyService, linker *tasks.Linker, sessions SessionStore, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		spotify:  spotify,
		linker:   linker,
		sessions: sessions,
		logger:   logger,
		states:   make(map[string]string),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{
		"/api/login",
		"/auth/spotify",
		"/api/spotify/callback",
		"/api/link/youtube",
	}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/login":
		h.handleLogin(w, r)
	case "/auth/spotify":
		h.handleAuthRedirect(w, r)
	case "/api/spotify/callback":
		h.handleCallback(w, r)
	case "/api/link/youtube":
		h.handleLinkYouTube(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleLogin issues a session for a user ID. The service runs as a local,
// single-operator tool; sessions exist to scope linked accounts and sync
// history, not to authenticate against a user directory.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := h.sessions.Create(body.UserID)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}

// handleAuthRedirect sends the user to the Spotify consent screen with a
// fresh state bound to their session.
func (h *AuthHandler) handleAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := userFromRequest(r, h.sessions)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	h.mu.Lock()
	h.states[state] = userID
	h.mu.Unlock()

	http.Redirect(w, r, h.spotify.AuthURL(state), http.StatusFound)
}

// handleCallback completes the authorization flow: a provider error or an
// uncorrelatable state is terminal, otherwise the code is exchanged and the
// account linked.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("authorization denied", "error", errParam)
		h.redirectWithMessage(w, r, "Spotify authorization was denied")
		return
	}

	userID, ok := h.takeState(query.Get("state"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown or expired state")
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	credential, err := h.spotify.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", "error", err)
		writeError(w, http.StatusInternalServerError, "token exchange failed")
		return
	}

	account, err := h.linker.LinkSpotify(r.Context(), userID, credential)
	if err != nil {
		h.logger.Error("account link failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to link account")
		return
	}

	h.logger.Info("spotify account linked", "user", userID, "identity", account.PlatformUserID())
	h.redirectWithMessage(w, r, "Spotify account linked")
}

// handleLinkYouTube links the public-access YouTube Music pseudo-account.
func (h *AuthHandler) handleLinkYouTube(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := userFromRequest(r, h.sessions)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	account, err := h.linker.LinkYouTube(r.Context(), userID)
	if err != nil {
		h.logger.Error("youtube link failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to link account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"account_id": account.ID(),
		"platform":   account.Platform(),
	})
}

// takeState resolves and consumes a state token; each state is single-use.
func (h *AuthHandler) takeState(state string) (string, bool) {
	if state == "" {
		return "", false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	userID, ok := h.states[state]
	if ok {
		delete(h.states, state)
	}
	return userID, ok
}

func (h *AuthHandler) redirectWithMessage(w http.ResponseWriter, r *http.Request, message string) {
	target := fmt.Sprintf("/?message=%s", url.QueryEscape(message))
	http.Redirect(w, r, target, http.StatusFound)
}
