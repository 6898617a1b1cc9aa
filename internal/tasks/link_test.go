package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/repositories"
	"github.com/playsync/playsync/internal/services"
	"github.com/playsync/playsync/internal/shared"
	"golang.org/x/oauth2"
)

func newLinkerFixture(t *testing.T, profileHandler http.HandlerFunc) (*Linker, *repositories.AccountRepository) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := shared.NewDatabase(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	accounts := repositories.NewAccountRepository(db)

	var spotify *services.SpotifyService
	if profileHandler != nil {
		server := httptest.NewServer(profileHandler)
		t.Cleanup(server.Close)

		spotify, err = services.NewSpotifyService("test-client", "test-secret", "http://localhost:5000/api/spotify/callback")
		if err != nil {
			t.Fatalf("NewSpotifyService failed: %v", err)
		}
		spotify.SetBaseURL(server.URL)
	}

	return NewLinker(spotify, accounts), accounts
}

func testCredential(t *testing.T) string {
	t.Helper()
	credential, err := json.Marshal(&oauth2.Token{AccessToken: "linked-token"})
	if err != nil {
		t.Fatalf("failed to build credential: %v", err)
	}
	return string(credential)
}

func TestLinkSpotify(t *testing.T) {
	ctx := context.Background()

	t.Run("links and relinks a single row", func(t *testing.T) {
		linker, accounts := newLinkerFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":           "sp-user-9",
				"display_name": "Linked User",
			})
		})

		credential := testCredential(t)

		first, err := linker.LinkSpotify(ctx, "user-1", credential)
		if err != nil {
			t.Fatalf("LinkSpotify failed: %v", err)
		}
		if first.PlatformUserID() != "sp-user-9" {
			t.Errorf("expected identity sp-user-9, got %s", first.PlatformUserID())
		}
		if first.Metadata() != "Linked User" {
			t.Errorf("expected display name stored, got %s", first.Metadata())
		}

		second, err := linker.LinkSpotify(ctx, "user-1", credential)
		if err != nil {
			t.Fatalf("re-link failed: %v", err)
		}
		if second.ID() != first.ID() {
			t.Errorf("expected re-link to reuse row %s, got %s", first.ID(), second.ID())
		}

		rows, err := accounts.List(map[string]any{"user_id": "user-1", "platform": models.PlatformSpotify})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("expected 1 account row, got %d", len(rows))
		}
	})

	t.Run("profile failure leaves no row", func(t *testing.T) {
		linker, accounts := newLinkerFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := linker.LinkSpotify(ctx, "user-1", testCredential(t))
		if !errors.Is(err, shared.ErrProfileFetch) {
			t.Fatalf("expected ErrProfileFetch, got %v", err)
		}

		rows, _ := accounts.List(map[string]any{"user_id": "user-1"})
		if len(rows) != 0 {
			t.Errorf("expected no rows after failed link, got %d", len(rows))
		}
	})

	t.Run("concurrent links converge on one row", func(t *testing.T) {
		linker, accounts := newLinkerFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"id": "sp-user-9"})
		})

		credential := testCredential(t)

		const workers = 6
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = linker.LinkSpotify(ctx, "user-1", credential)
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("worker %d failed: %v", i, err)
			}
		}

		rows, _ := accounts.List(map[string]any{"user_id": "user-1", "platform": models.PlatformSpotify})
		if len(rows) != 1 {
			t.Errorf("expected exactly 1 row after concurrent links, got %d", len(rows))
		}
	})
}

func TestLinkYouTube(t *testing.T) {
	ctx := context.Background()

	linker, accounts := newLinkerFixture(t, nil)

	first, err := linker.LinkYouTube(ctx, "user-1")
	if err != nil {
		t.Fatalf("LinkYouTube failed: %v", err)
	}
	if first.Credential() != models.PublicAccessCredential {
		t.Errorf("expected public access credential, got %s", first.Credential())
	}
	if first.PlatformUserID() != models.PublicAccessIdentity {
		t.Errorf("expected public access identity, got %s", first.PlatformUserID())
	}

	second, err := linker.LinkYouTube(ctx, "user-1")
	if err != nil {
		t.Fatalf("second LinkYouTube failed: %v", err)
	}
	if second.ID() != first.ID() {
		t.Errorf("expected no-op re-link, got new row %s", second.ID())
	}

	rows, _ := accounts.List(map[string]any{"user_id": "user-1", "platform": models.PlatformYouTube})
	if len(rows) != 1 {
		t.Errorf("expected 1 youtube row, got %d", len(rows))
	}
}
