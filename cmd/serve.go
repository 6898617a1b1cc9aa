package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/playsync/playsync/internal/server"
	"github.com/playsync/playsync/internal/shared"
	"github.com/playsync/playsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP API server.
//
// Exposes login and account linking, playlist listing, sync, and sync history
// on the configured host and port.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.spotifyOAuth()
	if err != nil {
		return err
	}
	if r.youtube == nil {
		return fmt.Errorf("%w: YouTube Music service not initialized", shared.ErrServiceUnavailable)
	}

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	sessions := server.NewMemorySessionStore()
	linker := tasks.NewLinker(spotify, stores.accounts)
	engine := tasks.NewPlaylistEngine(
		r.spotify, r.youtube,
		stores.accounts, stores.songs, stores.mappings, stores.logs,
		r.config.Sync.SearchesPerSecond,
	)

	router := server.NewBasicRouter()
	router.Use(server.RecoverMiddleware(r.logger))
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(server.NewAuthHandler(spotify, linker, sessions, r.logger))
	router.Handler(server.NewSyncHandler(engine, r.spotify, stores.accounts, stores.logs, sessions, r.logger))
	router.Handler(&server.HealthHandler{})

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	r.logger.Info("starting HTTP server", "addr", addr)
	r.writePlain("Listening on http://%s\n", addr)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
