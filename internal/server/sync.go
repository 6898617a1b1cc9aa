package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/services"
	"github.com/playsync/playsync/internal/shared"
	"github.com/playsync/playsync/internal/tasks"
)

// AccountLister is the slice of the account repository the API needs.
type AccountLister interface {
	List(criteria map[string]any) ([]*models.Account, error)
}

// SyncLogLister reads a user's sync history.
type SyncLogLister interface {
	ListByUser(userID string) ([]*models.SyncLog, error)
}

// SyncHandler serves playlist listing, sync runs, and sync history.
type SyncHandler struct {
	engine   tasks.SyncEngine
	source   services.Service
	accounts AccountLister
	logs     SyncLogLister
	sessions SessionStore
	logger   *log.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(engine tasks.SyncEngine, source services.Service, accounts AccountLister, logs SyncLogLister, sessions SessionStore, logger *log.Logger) *SyncHandler {
	return &SyncHandler{
		engine:   engine,
		source:   source,
		accounts: accounts,
		logs:     logs,
		sessions: sessions,
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SyncHandler) Routes() []string {
	return []string{
		"/api/playlists",
		"/api/sync",
		"/api/sync/log",
		"/api/accounts",
	}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(r, h.sessions)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	switch r.URL.Path {
	case "/api/playlists":
		h.handlePlaylists(w, r, userID)
	case "/api/sync":
		h.handleSync(w, r, userID)
	case "/api/sync/log":
		h.handleSyncLog(w, r, userID)
	case "/api/accounts":
		h.handleAccounts(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

// handlePlaylists lists playlists on the user's linked source account.
func (h *SyncHandler) handlePlaylists(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accounts, err := h.accounts.List(map[string]any{
		"user_id":  userID,
		"platform": models.PlatformSpotify,
	})
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}
	if len(accounts) == 0 {
		writeError(w, http.StatusBadRequest, "no linked spotify account")
		return
	}

	account := accounts[0]
	if err := h.source.Authenticate(r.Context(), map[string]string{"credential": account.Credential()}); err != nil {
		h.logger.Error("source authentication failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to authenticate with spotify")
		return
	}

	playlists, err := h.source.GetPlaylists(r.Context())
	if err != nil {
		h.logger.Error("playlist listing failed", "error", err)
		writeError(w, statusForError(err), "failed to fetch playlists")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"account_id": account.ID(),
		"playlists":  playlists,
	})
}

// handleSync runs a playlist sync and reports the summary counts.
func (h *SyncHandler) handleSync(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		SourceAccountID      string `json:"source_account_id"`
		DestinationAccountID string `json:"destination_account_id"`
		PlaylistID           string `json:"playlist_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := h.engine.Sync(r.Context(), tasks.SyncRequest{
		UserID:               userID,
		SourceAccountID:      body.SourceAccountID,
		DestinationAccountID: body.DestinationAccountID,
		PlaylistID:           body.PlaylistID,
	}, nil)
	if err != nil {
		h.logger.Error("sync failed", "user", userID, "playlist", body.PlaylistID, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	h.logger.Info("sync complete",
		"user", userID,
		"playlist", body.PlaylistID,
		"added", result.SongsAdded,
		"not_found", result.SongsNotFound,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"songs_added":     result.SongsAdded,
		"songs_not_found": result.SongsNotFound,
		"message":         result.Message,
	})
}

// handleSyncLog lists the user's sync history, most recent first.
func (h *SyncHandler) handleSyncLog(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logs, err := h.logs.ListByUser(userID)
	if err != nil {
		h.logger.Error("failed to list sync logs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load sync history")
		return
	}

	entries := make([]map[string]any, len(logs))
	for i, l := range logs {
		entries[i] = map[string]any{
			"id":              l.ID(),
			"playlist_id":     l.PlaylistID(),
			"total_songs":     l.TotalSongs(),
			"songs_added":     l.SongsAdded(),
			"songs_not_found": l.SongsNotFound(),
			"created_at":      l.CreatedAt(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"logs":    entries,
	})
}

// handleAccounts lists the user's linked accounts.
func (h *SyncHandler) handleAccounts(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accounts, err := h.accounts.List(map[string]any{"user_id": userID})
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}

	entries := make([]map[string]any, len(accounts))
	for i, a := range accounts {
		entries[i] = map[string]any{
			"id":               a.ID(),
			"platform":         a.Platform(),
			"platform_user_id": a.PlatformUserID(),
			"linked_at":        a.CreatedAt(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accounts": entries,
	})
}

// HealthHandler reports service liveness.
type HealthHandler struct{}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// statusForError maps sentinel errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidRequest),
		errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
