package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/services"
	"github.com/playsync/playsync/internal/shared"
	"golang.org/x/time/rate"
)

// SyncRequest identifies what to sync and on whose behalf.
type SyncRequest struct {
	UserID               string // Requesting user; must own both accounts
	SourceAccountID      string // Linked account tracks are read from
	DestinationAccountID string // Linked account tracks are matched against
	PlaylistID           string // Source platform playlist reference
}

// TrackMatchResult represents the result of attempting to match a single track.
type TrackMatchResult struct {
	Original models.Track  // Original track from source
	Matched  *models.Track // Matched track (nil if not found)
	Err      error         // ErrTrackNotFound for no-match, anything else for upstream failure
}

// NotFound reports whether the destination had no candidate at all, as
// opposed to the search failing.
func (r TrackMatchResult) NotFound() bool {
	return errors.Is(r.Err, shared.ErrTrackNotFound)
}

// SyncResult contains all data from a full sync run.
type SyncResult struct {
	Playlist      *models.Playlist   // Source playlist
	Matches       []TrackMatchResult // Individual track match results
	TotalTracks   int                // Tracks processed
	SongsAdded    int                // Matched and persisted
	SongsNotFound int                // Unmatched, failed, or unpersistable
	PersistErrors []error            // Per-track persistence failures (skipped, not fatal)
	Message       string             // Human-readable summary
	Log           *models.SyncLog    // Recorded log row
}

// MatchPercentage returns the share of tracks persisted, as a percentage.
func (r *SyncResult) MatchPercentage() float64 {
	if r.TotalTracks == 0 {
		return 0
	}
	return float64(r.SongsAdded) / float64(r.TotalTracks) * 100
}

// AccountStore is the slice of the account repository the engine needs.
type AccountStore interface {
	Get(id string) (*models.Account, error)
}

// SongStore resolves tracks to canonical song rows.
type SongStore interface {
	GetOrCreate(title, artist, album string, duration int) (*models.Song, error)
}

// MappingStore records platform provenance for canonical songs.
type MappingStore interface {
	Link(songID, platform, platformTrackID string) (*models.PlatformSong, error)
}

// SyncLogStore appends sync log rows.
type SyncLogStore interface {
	Create(log *models.SyncLog) error
}

// SyncEngine defines the playlist sync operation.
type SyncEngine interface {
	// Sync runs a full source → destination sync for the request.
	Sync(ctx context.Context, req SyncRequest, progress chan<- ProgressUpdate) (*SyncResult, error)
}

// PlaylistEngine implements [SyncEngine] for a (source, destination) pair of
// platform services. The shipped instantiation is Spotify → YouTube Music,
// but the engine only relies on the [services.Service] contract.
type PlaylistEngine struct {
	source      services.Service
	destination services.Service
	accounts    AccountStore
	songs       SongStore
	mappings    MappingStore
	logs        SyncLogStore
	limiter     *rate.Limiter
}

// NewPlaylistEngine creates a PlaylistEngine wired to the given services and
// stores. searchesPerSecond throttles the destination match loop; zero or
// negative disables throttling.
func NewPlaylistEngine(source, destination services.Service, accounts AccountStore, songs SongStore, mappings MappingStore, logs SyncLogStore, searchesPerSecond float64) *PlaylistEngine {
	var limiter *rate.Limiter
	if searchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(searchesPerSecond), 1)
	}

	return &PlaylistEngine{
		source:      source,
		destination: destination,
		accounts:    accounts,
		songs:       songs,
		mappings:    mappings,
		logs:        logs,
		limiter:     limiter,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Sync runs the full pipeline: validate, fetch, match, persist, log.
//
// Per-track match and persistence failures are collected and the loop
// continues; the run only aborts before any log row is written (bad request,
// unusable services, or an empty/unfetchable source playlist).
func (e *PlaylistEngine) Sync(ctx context.Context, req SyncRequest, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if e.source == nil || e.destination == nil {
		return nil, fmt.Errorf("%w: sync services not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, validatingUpdate())

	srcAccount, dstAccount, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	if err := e.source.Authenticate(ctx, map[string]string{"credential": srcAccount.Credential()}); err != nil {
		return nil, fmt.Errorf("%w: source: %v", shared.ErrServiceUnavailable, err)
	}
	if err := e.destination.Authenticate(ctx, map[string]string{"credential": dstAccount.Credential()}); err != nil {
		return nil, fmt.Errorf("%w: destination: %v", shared.ErrServiceUnavailable, err)
	}

	e.sendProgress(progress, fetchSourceUpdate(e.source.Name()))

	export, err := e.source.ExportPlaylist(ctx, req.PlaylistID)
	if err != nil {
		return nil, err
	}
	if len(export.Tracks) == 0 {
		return nil, fmt.Errorf("%w: playlist %s has no tracks", shared.ErrInvalidRequest, req.PlaylistID)
	}

	e.sendProgress(progress, foundPlaylistUpdate(export))

	result := &SyncResult{
		Playlist:    &export.Playlist,
		TotalTracks: len(export.Tracks),
	}

	result.Matches, err = e.matchTracks(ctx, export.Tracks, progress)
	if err != nil {
		return nil, err
	}

	for i, match := range result.Matches {
		if match.Matched == nil {
			result.SongsNotFound++
			continue
		}

		e.sendProgress(progress, persistTracksUpdate(i+1, result.TotalTracks))

		if err := e.persistMatch(match, dstAccount.Platform()); err != nil {
			result.PersistErrors = append(result.PersistErrors, err)
			result.SongsNotFound++
			continue
		}
		result.SongsAdded++
	}

	result.Message = fmt.Sprintf("Synced %d of %d tracks (%d not found)",
		result.SongsAdded, result.TotalTracks, result.SongsNotFound)

	e.sendProgress(progress, writeLogUpdate())

	log := models.NewSyncLog(req.UserID, srcAccount.ID(), dstAccount.ID(), req.PlaylistID,
		result.TotalTracks, result.SongsAdded, result.SongsNotFound)
	if err := e.logs.Create(log); err != nil {
		return result, fmt.Errorf("failed to record sync log: %w", err)
	}
	result.Log = log

	e.sendProgress(progress, completeUpdate(result))
	return result, nil
}

// validate checks the request references accounts owned by the requesting
// user and a non-empty playlist.
func (e *PlaylistEngine) validate(req SyncRequest) (*models.Account, *models.Account, error) {
	if req.UserID == "" {
		return nil, nil, fmt.Errorf("%w: missing user", shared.ErrInvalidRequest)
	}
	if req.PlaylistID == "" {
		return nil, nil, fmt.Errorf("%w: missing playlist", shared.ErrInvalidRequest)
	}
	if req.SourceAccountID == "" || req.DestinationAccountID == "" {
		return nil, nil, fmt.Errorf("%w: missing account", shared.ErrInvalidRequest)
	}

	srcAccount, err := e.accounts.Get(req.SourceAccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: source account: %v", shared.ErrInvalidRequest, err)
	}
	dstAccount, err := e.accounts.Get(req.DestinationAccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: destination account: %v", shared.ErrInvalidRequest, err)
	}

	if srcAccount.UserID() != req.UserID || dstAccount.UserID() != req.UserID {
		return nil, nil, fmt.Errorf("%w: account not owned by user", shared.ErrInvalidRequest)
	}

	return srcAccount, dstAccount, nil
}

// matchTracks runs the sequential, rate-limited match loop. Per-track errors
// are recorded on the match result; only context cancellation aborts.
func (e *PlaylistEngine) matchTracks(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) ([]TrackMatchResult, error) {
	total := len(tracks)
	matches := make([]TrackMatchResult, total)

	e.sendProgress(progress, searchTracksUpdate(0, total, nil))

	for i, track := range tracks {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("match loop canceled: %w", err)
			}
		}

		e.sendProgress(progress, searchTracksUpdate(i+1, total, &track))

		matched, err := e.destination.SearchTrack(ctx, track.Title, track.Artists)
		matches[i] = TrackMatchResult{
			Original: track,
			Matched:  matched,
			Err:      err,
		}
	}

	return matches, nil
}

// persistMatch records the canonical song and the destination-platform
// mapping for the matched track. Both writes are idempotent, so a re-run
// converges on the same rows.
func (e *PlaylistEngine) persistMatch(match TrackMatchResult, destinationPlatform string) error {
	track := match.Original

	song, err := e.songs.GetOrCreate(track.Title, strings.Join(track.Artists, ", "), track.Album, track.Duration)
	if err != nil {
		return fmt.Errorf("song %q: %w", track.Title, err)
	}

	if _, err := e.mappings.Link(song.ID(), destinationPlatform, match.Matched.ID); err != nil {
		return fmt.Errorf("destination mapping for %q: %w", track.Title, err)
	}

	return nil
}
