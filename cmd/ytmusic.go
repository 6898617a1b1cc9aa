package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/playsync/playsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// YTMusicSearch searches YouTube Music for a track.
func (r *Runner) YTMusicSearch(ctx context.Context, cmd *cli.Command) error {
	if r.youtube == nil {
		return fmt.Errorf("%w: YouTube Music service not initialized", shared.ErrServiceUnavailable)
	}

	query := cmd.StringArg("query")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	r.logger.Info("searching youtube music", "query", query)

	track, err := r.youtube.SearchTrack(ctx, query, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(track, pretty)
	}

	r.writePlain("Found track:\n\n")
	r.writePlain("Title: %s\n", track.Title)
	if len(track.Artists) > 0 {
		r.writePlain("Artists: %s\n", strings.Join(track.Artists, ", "))
	}
	if track.Album != "" {
		r.writePlain("Album: %s\n", track.Album)
	}
	r.writePlain("ID: %s\n", track.ID)
	if track.Duration > 0 {
		r.writePlain("Duration: %s\n", shared.FormatDuration(track.Duration))
	}

	return nil
}

// YTMusicPlaylists lists playlists from the YouTube Music library.
func (r *Runner) YTMusicPlaylists(ctx context.Context, cmd *cli.Command) error {
	if r.youtube == nil {
		return fmt.Errorf("%w: YouTube Music service not initialized", shared.ErrServiceUnavailable)
	}

	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	playlists, err := r.youtube.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s (%d tracks)\n", i+1, p.Name, p.TrackCount)
		r.writePlain("   ID: %s\n", p.ID)
	}

	return nil
}
