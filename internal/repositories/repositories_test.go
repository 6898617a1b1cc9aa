package repositories

import (
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := shared.NewDatabase(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A single connection serializes writers, so the concurrency tests
	// exercise the schema's uniqueness guarantees rather than SQLITE_BUSY.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestAccountRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db)

	t.Run("Create and Get", func(t *testing.T) {
		account := models.NewAccount(0, "user-1", models.PlatformSpotify, "spotify-user-1", "token-a")
		if err := repo.Create(account); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if account.ID() == "" {
			t.Error("expected generated ID")
		}
		if account.Sequence() == 0 {
			t.Error("expected assigned sequence")
		}

		got, err := repo.Get(account.ID())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.PlatformUserID() != "spotify-user-1" {
			t.Errorf("expected platform user spotify-user-1, got %s", got.PlatformUserID())
		}
		if got.Credential() != "token-a" {
			t.Errorf("expected credential token-a, got %s", got.Credential())
		}
	})

	t.Run("Upsert rotates credential in place", func(t *testing.T) {
		first := models.NewAccount(0, "user-2", models.PlatformSpotify, "spotify-user-2", "token-old")
		if err := repo.Upsert(first); err != nil {
			t.Fatalf("first Upsert failed: %v", err)
		}

		second := models.NewAccount(0, "user-2", models.PlatformSpotify, "spotify-user-2", "token-new")
		if err := repo.Upsert(second); err != nil {
			t.Fatalf("second Upsert failed: %v", err)
		}

		if second.ID() != first.ID() {
			t.Errorf("expected upsert to keep row %s, got %s", first.ID(), second.ID())
		}

		accounts, err := repo.List(map[string]any{"user_id": "user-2"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(accounts) != 1 {
			t.Fatalf("expected 1 account after repeated upsert, got %d", len(accounts))
		}
		if accounts[0].Credential() != "token-new" {
			t.Errorf("expected latest credential token-new, got %s", accounts[0].Credential())
		}
	})

	t.Run("Upsert keeps distinct identities apart", func(t *testing.T) {
		a := models.NewAccount(0, "user-3", models.PlatformSpotify, "sp-3", "tok")
		b := models.NewAccount(0, "user-3", models.PlatformYouTube, models.PublicAccessIdentity, models.PublicAccessCredential)
		if err := repo.Upsert(a); err != nil {
			t.Fatalf("Upsert spotify failed: %v", err)
		}
		if err := repo.Upsert(b); err != nil {
			t.Fatalf("Upsert youtube failed: %v", err)
		}

		accounts, err := repo.List(map[string]any{"user_id": "user-3"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(accounts) != 2 {
			t.Fatalf("expected 2 accounts, got %d", len(accounts))
		}
	})

	t.Run("GetByIdentity", func(t *testing.T) {
		got, err := repo.GetByIdentity("user-2", models.PlatformSpotify, "spotify-user-2")
		if err != nil {
			t.Fatalf("GetByIdentity failed: %v", err)
		}
		if got.Credential() != "token-new" {
			t.Errorf("expected token-new, got %s", got.Credential())
		}

		_, err = repo.GetByIdentity("user-2", models.PlatformSpotify, "no-such-user")
		if !errors.Is(err, shared.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("Update missing account", func(t *testing.T) {
		ghost := models.NewAccount(1, "user-x", models.PlatformSpotify, "sp-x", "tok")
		ghost.SetID("does-not-exist")
		err := repo.Update(ghost)
		if !errors.Is(err, shared.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("List filters by platform", func(t *testing.T) {
		accounts, err := repo.List(map[string]any{"user_id": "user-3", "platform": models.PlatformYouTube})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(accounts) != 1 {
			t.Fatalf("expected 1 account, got %d", len(accounts))
		}
		if accounts[0].Credential() != models.PublicAccessCredential {
			t.Errorf("expected public access credential, got %s", accounts[0].Credential())
		}
	})
}

func TestSongRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSongRepository(db)

	t.Run("GetOrCreate is idempotent", func(t *testing.T) {
		first, err := repo.GetOrCreate("Bohemian Rhapsody", "Queen", "A Night at the Opera", 354)
		if err != nil {
			t.Fatalf("first GetOrCreate failed: %v", err)
		}

		second, err := repo.GetOrCreate("Bohemian Rhapsody", "Queen", "A Night at the Opera", 354)
		if err != nil {
			t.Fatalf("second GetOrCreate failed: %v", err)
		}

		if first.ID() != second.ID() {
			t.Errorf("expected same song row, got %s and %s", first.ID(), second.ID())
		}
	})

	t.Run("GetOrCreate normalizes case and whitespace", func(t *testing.T) {
		first, err := repo.GetOrCreate("Paranoid  Android", "Radiohead", "OK Computer", 383)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}

		second, err := repo.GetOrCreate("paranoid android", "RADIOHEAD", "ok computer", 383)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}

		if first.ID() != second.ID() {
			t.Errorf("expected normalized variants to dedupe, got %s and %s", first.ID(), second.ID())
		}
	})

	t.Run("distinct albums are distinct songs", func(t *testing.T) {
		live, err := repo.GetOrCreate("Creep", "Radiohead", "Pablo Honey", 238)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}

		acoustic, err := repo.GetOrCreate("Creep", "Radiohead", "Acoustic Sessions", 251)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}

		if live.ID() == acoustic.ID() {
			t.Error("expected different songs for different albums")
		}
	})

	t.Run("concurrent GetOrCreate converges", func(t *testing.T) {
		const workers = 8

		ids := make([]string, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				song, err := repo.GetOrCreate("Karma Police", "Radiohead", "OK Computer", 261)
				if err != nil {
					errs[i] = err
					return
				}
				ids[i] = song.ID()
			}(i)
		}
		wg.Wait()

		for i := 0; i < workers; i++ {
			if errs[i] != nil {
				t.Fatalf("worker %d failed: %v", i, errs[i])
			}
			if ids[i] != ids[0] {
				t.Errorf("worker %d got song %s, worker 0 got %s", i, ids[i], ids[0])
			}
		}
	})

	t.Run("Get missing song", func(t *testing.T) {
		_, err := repo.Get("no-such-id")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("List filters by artist", func(t *testing.T) {
		songs, err := repo.List(map[string]any{"artist": "Radiohead"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(songs) < 3 {
			t.Errorf("expected at least 3 Radiohead songs, got %d", len(songs))
		}
	})
}

func TestMappingRepository(t *testing.T) {
	db := setupTestDB(t)
	songs := NewSongRepository(db)
	repo := NewMappingRepository(db)

	song, err := songs.GetOrCreate("No Surprises", "Radiohead", "OK Computer", 229)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	t.Run("Link is idempotent", func(t *testing.T) {
		first, err := repo.Link(song.ID(), models.PlatformSpotify, "sp-track-1")
		if err != nil {
			t.Fatalf("first Link failed: %v", err)
		}

		second, err := repo.Link(song.ID(), models.PlatformSpotify, "sp-track-1")
		if err != nil {
			t.Fatalf("second Link failed: %v", err)
		}

		if first.ID() != second.ID() {
			t.Errorf("expected same mapping row, got %s and %s", first.ID(), second.ID())
		}
	})

	t.Run("ListBySong returns all platforms", func(t *testing.T) {
		if _, err := repo.Link(song.ID(), models.PlatformYouTube, "yt-track-1"); err != nil {
			t.Fatalf("Link failed: %v", err)
		}

		mappings, err := repo.ListBySong(song.ID())
		if err != nil {
			t.Fatalf("ListBySong failed: %v", err)
		}
		if len(mappings) != 2 {
			t.Fatalf("expected 2 mappings, got %d", len(mappings))
		}

		platforms := map[string]bool{}
		for _, m := range mappings {
			platforms[m.Platform()] = true
		}
		if !platforms[models.PlatformSpotify] || !platforms[models.PlatformYouTube] {
			t.Errorf("expected mappings on both platforms, got %v", platforms)
		}
	})

	t.Run("concurrent Link converges", func(t *testing.T) {
		const workers = 8

		ids := make([]string, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				mapping, err := repo.Link(song.ID(), models.PlatformYouTube, "yt-race")
				if err != nil {
					errs[i] = err
					return
				}
				ids[i] = mapping.ID()
			}(i)
		}
		wg.Wait()

		for i := 0; i < workers; i++ {
			if errs[i] != nil {
				t.Fatalf("worker %d failed: %v", i, errs[i])
			}
			if ids[i] != ids[0] {
				t.Errorf("worker %d got mapping %s, worker 0 got %s", i, ids[i], ids[0])
			}
		}
	})
}

func TestSyncLogRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSyncLogRepository(db)

	t.Run("Create and ListByUser", func(t *testing.T) {
		first := models.NewSyncLog("user-1", "acct-src", "acct-dst", "pl-1", 10, 8, 2)
		if err := repo.Create(first); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		second := models.NewSyncLog("user-1", "acct-src", "acct-dst", "pl-2", 5, 5, 0)
		if err := repo.Create(second); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		logs, err := repo.ListByUser("user-1")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(logs) != 2 {
			t.Fatalf("expected 2 logs, got %d", len(logs))
		}
		if logs[0].TotalSongs() != logs[0].SongsAdded()+logs[0].SongsNotFound() {
			t.Error("expected counts to reconcile")
		}
	})

	t.Run("invalid counts rejected", func(t *testing.T) {
		bad := models.NewSyncLog("user-1", "acct-src", "acct-dst", "pl-3", 5, 4, 2)
		if err := repo.Create(bad); err == nil {
			t.Error("expected validation error for mismatched counts")
		}
	})

	t.Run("ListByUser scopes to user", func(t *testing.T) {
		logs, err := repo.ListByUser("someone-else")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(logs) != 0 {
			t.Errorf("expected no logs for other user, got %d", len(logs))
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	first, err := NextSequence(db, "songs")
	if err != nil {
		t.Fatalf("NextSequence failed: %v", err)
	}
	second, err := NextSequence(db, "songs")
	if err != nil {
		t.Fatalf("NextSequence failed: %v", err)
	}
	if second != first+1 {
		t.Errorf("expected monotonic sequence, got %d then %d", first, second)
	}
}
