package services

import (
	"context"
	"time"

	"github.com/playsync/playsync/internal/models"
)

// DefaultRequestTimeout bounds each outbound platform HTTP call unless a
// service is given a different timeout. A hung upstream therefore fails the
// single call, not the whole sync.
const DefaultRequestTimeout = 15 * time.Second

// Service defines the operations the sync engine needs from a music platform.
// A platform can sit on either side of a sync: the source is read with
// ExportPlaylist, the destination is probed with SearchTrack.
type Service interface {
	// Authenticate attaches credentials to the service for subsequent
	// requests. The credential keys are platform specific.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID without its tracks.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist retrieves a playlist together with every track in it,
	// following pagination until the platform reports no further pages.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// SearchTrack resolves a (title, artists) pair to the platform's best
	// candidate. Returns [shared.ErrTrackNotFound] when the platform has no
	// candidate at all, which is distinct from a request failure.
	SearchTrack(ctx context.Context, title string, artists []string) (*models.Track, error)

	// Name returns the human-readable platform name.
	Name() string
}

// OAuthService is implemented by platforms that link accounts through an
// OAuth2 authorization-code flow.
type OAuthService interface {
	Service

	// AuthURL returns the authorization URL the user must visit, bound to
	// the given anti-forgery state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token and attaches it to
	// the service.
	Exchange(ctx context.Context, code string) (string, error)
}
