package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/playsync/playsync/internal/services"
	"github.com/playsync/playsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	var spotifyService services.Service
	var youtubeService services.Service

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	requestTimeout := services.DefaultRequestTimeout
	if config.Sync.RequestTimeoutSec > 0 {
		requestTimeout = time.Duration(config.Sync.RequestTimeoutSec) * time.Second
	}

	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(
			config.Credentials.Spotify.ClientID,
			config.Credentials.Spotify.ClientSecret,
			config.Credentials.Spotify.RedirectURI,
		); err == nil {
			svc.SetTimeout(requestTimeout)
			spotifyService = svc
		}
	}

	ytService := services.NewYouTubeService(config.Credentials.YouTube.BaseURL)
	ytService.SetTimeout(requestTimeout)
	youtubeService = ytService

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Spotify:    spotifyService,
		YouTube:    youtubeService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "playsync",
		Usage:    "Sync playlists from Spotify to YouTube Music",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
