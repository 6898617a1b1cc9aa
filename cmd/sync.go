package main

import (
	"context"
	"fmt"
	"time"

	"github.com/playsync/playsync/internal/formatter"
	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
	"github.com/playsync/playsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// resolveSyncRequest looks up the user's linked accounts and builds the
// request for the engine.
func (r *Runner) resolveSyncRequest(userID, playlistID string, stores *stores) (tasks.SyncRequest, error) {
	var req tasks.SyncRequest

	sources, err := stores.accounts.List(map[string]any{"user_id": userID, "platform": models.PlatformSpotify})
	if err != nil {
		return req, fmt.Errorf("failed to load accounts: %w", err)
	}
	if len(sources) == 0 {
		return req, fmt.Errorf("%w: no linked Spotify account, run 'playsync auth spotify'", shared.ErrNotAuthenticated)
	}

	destinations, err := stores.accounts.List(map[string]any{"user_id": userID, "platform": models.PlatformYouTube})
	if err != nil {
		return req, fmt.Errorf("failed to load accounts: %w", err)
	}
	if len(destinations) == 0 {
		return req, fmt.Errorf("%w: no linked YouTube Music account, run 'playsync auth youtube'", shared.ErrNotAuthenticated)
	}

	return tasks.SyncRequest{
		UserID:               userID,
		SourceAccountID:      sources[0].ID(),
		DestinationAccountID: destinations[0].ID(),
		PlaylistID:           playlistID,
	}, nil
}

// SyncRun runs a full Spotify → YouTube Music playlist sync.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	playlistID := cmd.String("playlist")
	save := cmd.Bool("save")
	format := cmd.String("format")
	outputFile := cmd.String("output")

	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if r.youtube == nil {
		return fmt.Errorf("%w: YouTube Music service not initialized", shared.ErrServiceUnavailable)
	}

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	req, err := r.resolveSyncRequest(userID, playlistID, stores)
	if err != nil {
		return err
	}

	engine := tasks.NewPlaylistEngine(
		r.spotify, r.youtube,
		stores.accounts, stores.songs, stores.mappings, stores.logs,
		r.config.Sync.SearchesPerSecond,
	)

	r.logger.Info("starting sync", "user", userID, "playlist", playlistID)
	r.writePlain("Starting playlist sync...\n")
	r.writePlain("Playlist: %s\n\n", playlistID)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SearchTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.PersistTracks:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Sync(ctx, req, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Playlist: %s (%d tracks)\n", result.Playlist.Name, result.TotalTracks)
	r.writePlain("Matched: %d/%d (%.1f%%)\n", result.SongsAdded, result.TotalTracks, result.MatchPercentage())

	if result.SongsNotFound > 0 {
		r.writePlain("\nUnmatched tracks (%d):\n", result.SongsNotFound)
		for _, match := range result.Matches {
			if match.Matched == nil {
				r.writePlain("  - %s - %s\n", match.Original.Artist(), match.Original.Title)
			}
		}
	}

	for _, persistErr := range result.PersistErrors {
		r.logger.Warn("persistence failure", "error", persistErr)
	}

	if save {
		path, err := formatter.WriteReport(result, format, outputFile)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		r.writePlain("\n✓ Report saved to %s\n", path)
	}

	return nil
}

// SyncLog shows the user's sync history, most recent first.
func (r *Runner) SyncLog(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	logs, err := stores.logs.ListByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to list sync logs: %w", err)
	}

	if len(logs) == 0 {
		r.writePlain("No syncs recorded for user %s\n", userID)
		return nil
	}

	r.writePlain("Sync history for %s:\n\n", userID)
	for _, entry := range logs {
		r.writePlain("• %s\n", entry.CreatedAt().Format(time.RFC3339))
		r.writePlain("  Playlist: %s\n", entry.PlaylistID())
		r.writePlain("  Added: %d/%d (%d not found)\n\n", entry.SongsAdded(), entry.TotalSongs(), entry.SongsNotFound())
	}

	return nil
}
