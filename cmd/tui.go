package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/playsync/playsync/internal/shared"
	"github.com/playsync/playsync/internal/tasks"
	"github.com/playsync/playsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for playlist syncing.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	if r.youtube == nil {
		return fmt.Errorf("%w: YouTube Music service not initialized", shared.ErrServiceUnavailable)
	}
	if err := r.authenticateSpotify(ctx, userID); err != nil {
		return err
	}

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	request, err := r.resolveSyncRequest(userID, "", stores)
	if err != nil {
		return err
	}

	engine := tasks.NewPlaylistEngine(
		r.spotify, r.youtube,
		stores.accounts, stores.songs, stores.mappings, stores.logs,
		r.config.Sync.SearchesPerSecond,
	)

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/playsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.spotify, engine, request)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
