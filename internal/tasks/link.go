package tasks

import (
	"context"
	"fmt"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/services"
	"github.com/playsync/playsync/internal/shared"
)

// AccountUpserter is the slice of the account repository the linker needs.
type AccountUpserter interface {
	Upsert(account *models.Account) error
}

// Linker binds platform identities to local users. Re-linking an identity
// rotates the stored credential; it never produces a second row.
type Linker struct {
	spotify  *services.SpotifyService
	accounts AccountUpserter
}

// NewLinker creates a Linker backed by the given Spotify client and account
// store.
func NewLinker(spotify *services.SpotifyService, accounts AccountUpserter) *Linker {
	return &Linker{
		spotify:  spotify,
		accounts: accounts,
	}
}

// LinkSpotify binds the Spotify identity behind the credential to the user.
//
// The credential is a serialized token as returned by the exchange. The
// platform identity comes from the /me profile; a profile fetch failure
// leaves no row behind.
func (l *Linker) LinkSpotify(ctx context.Context, userID, credential string) (*models.Account, error) {
	if l.spotify == nil {
		return nil, fmt.Errorf("%w: spotify service not initialized", shared.ErrServiceUnavailable)
	}

	if err := l.spotify.Authenticate(ctx, map[string]string{"credential": credential}); err != nil {
		return nil, err
	}

	profile, err := l.spotify.UserProfile(ctx)
	if err != nil {
		return nil, err
	}

	account := models.NewAccount(0, userID, models.PlatformSpotify, profile.ID, credential)
	account.SetMetadata(profile.DisplayName)

	if err := l.accounts.Upsert(account); err != nil {
		return nil, fmt.Errorf("failed to link spotify account: %w", err)
	}

	return account, nil
}

// LinkYouTube binds the fixed public-access identity to the user. YouTube
// Music search and public playlist reads need no per-user credential, so the
// link is a sentinel row; calling it again is a no-op.
func (l *Linker) LinkYouTube(ctx context.Context, userID string) (*models.Account, error) {
	account := models.NewAccount(0, userID, models.PlatformYouTube, models.PublicAccessIdentity, models.PublicAccessCredential)

	if err := l.accounts.Upsert(account); err != nil {
		return nil, fmt.Errorf("failed to link youtube account: %w", err)
	}

	return account, nil
}
