package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/playsync/playsync/internal/formatter"
	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// authenticateSpotify loads the user's stored Spotify credential and
// authenticates the service with it. Falls back to the token saved in
// config.toml when no linked account exists yet.
func (r *Runner) authenticateSpotify(ctx context.Context, userID string) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	accounts, err := stores.accounts.List(map[string]any{
		"user_id":  userID,
		"platform": models.PlatformSpotify,
	})
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	if len(accounts) > 0 {
		return r.spotify.Authenticate(ctx, map[string]string{"credential": accounts[0].Credential()})
	}

	if r.config.Credentials.Spotify.AccessToken != "" {
		return r.spotify.Authenticate(ctx, map[string]string{"access_token": r.config.Credentials.Spotify.AccessToken})
	}

	return fmt.Errorf("%w: no linked Spotify account, run 'playsync auth spotify'", shared.ErrNotAuthenticated)
}

// SpotifyPlaylists lists Spotify playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if err := r.authenticateSpotify(ctx, userID); err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	playlists, err := r.spotify.GetPlaylists(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			return fmt.Errorf("%w: run 'playsync auth spotify' to reauthorize", err)
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("   Visibility: %s\n", shared.VisibilityString(p.Public))
		r.writePlain("\n")
	}

	return nil
}

// SpotifyExport exports a playlist with all tracks to the requested format.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	playlistID := cmd.String("id")
	format := cmd.String("format")
	outputFile := cmd.String("output")
	pretty := cmd.Bool("pretty")

	if err := r.authenticateSpotify(ctx, userID); err != nil {
		return err
	}

	r.logger.Infof("exporting spotify playlist %v", playlistID)

	export, err := r.spotify.ExportPlaylist(ctx, playlistID)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			return fmt.Errorf("%w: run 'playsync auth spotify' to reauthorize", err)
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, outputFile)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", result.TracksFile)
		r.writePlain("✓ Metadata written to %s\n", result.MetadataFile)
		return nil
	case "txt", "text":
		path, err := formatter.WriteTextExport(export, outputFile)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", path)
		return nil
	case "json", "":
		if outputFile != "" {
			data, err := shared.MarshalJSON(export, true)
			if err != nil {
				return fmt.Errorf("failed to marshal export: %w", err)
			}
			if err := os.WriteFile(outputFile, data, 0644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}

			r.logger.Infof("playlist exported to %v with %v tracks", outputFile, len(export.Tracks))

			r.writePlain("✓ Playlist exported to %s\n", outputFile)
			r.writePlain("  Playlist: %s\n", export.Playlist.Name)
			r.writePlain("  Tracks: %d\n", len(export.Tracks))
			return nil
		}
		return r.writeJSON(export, pretty)
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
}
