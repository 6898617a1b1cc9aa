// package models defines the data model for the playsync service
package models

import (
	"time"
)

// Platform identifiers for linked accounts and song mappings.
const (
	PlatformSpotify = "spotify"
	PlatformYouTube = "youtube_music"
)

// PublicAccessCredential is the sentinel credential recorded for platforms
// that need no per-user authentication (public-catalog access).
const PublicAccessCredential = "public_access"

// PublicAccessIdentity is the fixed pseudo-identity used when linking a
// public-access platform account.
const PublicAccessIdentity = "public_access"

// Model defines the base interface for all persistent models in the playsync service.
// Implementations include Account, Song, PlatformSong, SyncLog.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Playlist represents a music playlist from any platform
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}

// PlaylistExport represents a playlist with all its tracks
type PlaylistExport struct {
	Playlist Playlist
	Tracks   []Track
}

// Track is the platform-agnostic representation of one song drawn from any
// source catalog.
type Track struct {
	ID       string   // Platform-native track id
	Title    string   // Track title
	Artists  []string // Artist names, flattened
	Album    string   // Album name, empty if absent
	Duration int      // Duration in whole seconds
}

// Artist returns the primary artist name, or an empty string for a track with no artists.
func (t Track) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}
