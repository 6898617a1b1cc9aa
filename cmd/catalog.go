package main

import (
	"context"
	"fmt"

	"github.com/playsync/playsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogSongs lists canonical songs, optionally filtered by artist or album.
func (r *Runner) CatalogSongs(ctx context.Context, cmd *cli.Command) error {
	artist := cmd.String("artist")
	album := cmd.String("album")
	useJSON := cmd.Bool("json")

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if artist != "" {
		criteria["artist"] = artist
	}
	if album != "" {
		criteria["album"] = album
	}

	songs, err := stores.songs.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list songs: %w", err)
	}

	if useJSON {
		entries := make([]map[string]any, len(songs))
		for i, song := range songs {
			entries[i] = map[string]any{
				"id":       song.ID(),
				"title":    song.Title(),
				"artist":   song.Artist(),
				"album":    song.Album(),
				"duration": song.Duration(),
			}
		}
		return r.writeJSON(entries, true)
	}

	r.writePlain("Found %d songs:\n\n", len(songs))
	for i, song := range songs {
		r.writePlain("%d. %s - %s", i+1, song.Artist(), song.Title())
		if song.Album() != "" {
			r.writePlain(" (%s)", song.Album())
		}
		if song.Duration() > 0 {
			r.writePlain(" [%s]", shared.FormatDuration(song.Duration()))
		}
		r.writePlain("\n   ID: %s\n", song.ID())
	}

	return nil
}

// CatalogMappings shows the platform provenance recorded for one song.
func (r *Runner) CatalogMappings(ctx context.Context, cmd *cli.Command) error {
	songID := cmd.String("song")

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	song, err := stores.songs.Get(songID)
	if err != nil {
		return fmt.Errorf("failed to load song: %w", err)
	}

	mappings, err := stores.mappings.ListBySong(songID)
	if err != nil {
		return fmt.Errorf("failed to list mappings: %w", err)
	}

	r.writePlain("Song: %s - %s\n", song.Artist(), song.Title())
	r.writePlain("Mappings: %d\n\n", len(mappings))

	for _, mapping := range mappings {
		r.writePlain("• %s\n", mapping.Platform())
		r.writePlain("  Track ID: %s\n", mapping.PlatformTrackID())
	}

	return nil
}
