package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/playsync/playsync/internal/server"
	"github.com/playsync/playsync/internal/shared"
	"github.com/playsync/playsync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthSpotify performs the OAuth2 authorization flow and links the resulting
// Spotify account to the user.
//
// Starts a local HTTP server, opens the browser for user authorization,
// exchanges the code, and persists the credential on the linked account row.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	configPath := cmd.String("config")

	spotify, err := r.spotifyOAuth()
	if err != nil {
		return err
	}

	credential, err := r.doOAuth()
	if err != nil {
		return err
	}

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	linker := tasks.NewLinker(spotify, stores.accounts)
	account, err := linker.LinkSpotify(ctx, userID, credential)
	if err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}

	// Mirror the fresh token into config.toml so catalog commands keep
	// working after a restart without re-reading the database.
	var token oauth2.Token
	if err := json.Unmarshal([]byte(credential), &token); err == nil {
		if err := r.config.Credentials.Spotify.Update(&token); err == nil {
			if err := shared.SaveConfig(configPath, r.config); err != nil {
				r.logger.Warn("failed to save config", "error", err)
			}
		}
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Linked Spotify account %s for user %s\n\n", account.PlatformUserID(), userID)
	r.writePlain("You can now use: playsync spotify playlists\n")

	return nil
}

// AuthYouTube links YouTube Music with the public-access pseudo-identity.
//
// Search needs no user credential, so linking records a placeholder row that
// the sync engine validates like any other account.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	linker := tasks.NewLinker(nil, stores.accounts)
	account, err := linker.LinkYouTube(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}

	r.writePlain("✓ YouTube Music linked with public catalog access\n")
	r.writePlain("Account ID: %s\n", account.ID())

	return nil
}

// AuthStatus lists the accounts linked to a user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	stores, err := r.openStores()
	if err != nil {
		return err
	}

	accounts, err := stores.accounts.List(map[string]any{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		r.writePlain("No linked accounts for user %s\n", userID)
		r.writePlain("Run 'playsync auth spotify' and 'playsync auth youtube' to link.\n")
		return nil
	}

	r.writePlain("Linked accounts for %s:\n\n", userID)
	for _, account := range accounts {
		r.writePlain("• %s\n", account.Platform())
		r.writePlain("  Account ID: %s\n", account.ID())
		r.writePlain("  Platform user: %s\n", account.PlatformUserID())
		if account.Metadata() != "" {
			r.writePlain("  Display name: %s\n", account.Metadata())
		}
		r.writePlain("  Linked: %s\n\n", account.CreatedAt().Format(time.RFC3339))
	}

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server and
// returns the serialized credential.
func (r *Runner) doOAuth() (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthSvc, err := r.spotifyOAuth()
	if err != nil {
		return "", err
	}

	authURL := oauthSvc.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSvc, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return "", fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return "", fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return "", fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Credential == "" {
		return "", fmt.Errorf("no credential received")
	}

	return result.Credential, nil
}
