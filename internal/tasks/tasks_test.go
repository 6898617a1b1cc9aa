package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/repositories"
	"github.com/playsync/playsync/internal/shared"
	mocks "github.com/playsync/playsync/internal/testing"
)

type engineFixture struct {
	db          *sql.DB
	accounts    *repositories.AccountRepository
	songs       *repositories.SongRepository
	mappings    *repositories.MappingRepository
	logs        *repositories.SyncLogRepository
	source      *mocks.MockService
	destination *mocks.MockService
	srcAccount  *models.Account
	dstAccount  *models.Account
}

func newEngineFixture(t *testing.T) *engineFixture {
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

	f := &engineFixture{
		db:          db,
		accounts:    repositories.NewAccountRepository(db),
		songs:       repositories.NewSongRepository(db),
		mappings:    repositories.NewMappingRepository(db),
		logs:        repositories.NewSyncLogRepository(db),
		source:      &mocks.MockService{ServiceName: "Spotify"},
		destination: &mocks.MockService{ServiceName: "YouTube Music"},
	}

	f.srcAccount = models.NewAccount(0, "user-1", models.PlatformSpotify, "sp-user", "src-credential")
	if err := f.accounts.Create(f.srcAccount); err != nil {
		t.Fatalf("failed to create source account: %v", err)
	}

	f.dstAccount = models.NewAccount(0, "user-1", models.PlatformYouTube, models.PublicAccessIdentity, models.PublicAccessCredential)
	if err := f.accounts.Create(f.dstAccount); err != nil {
		t.Fatalf("failed to create destination account: %v", err)
	}

	return f
}

func (f *engineFixture) engine() *PlaylistEngine {
	return NewPlaylistEngine(f.source, f.destination, f.accounts, f.songs, f.mappings, f.logs, 0)
}

func (f *engineFixture) request(playlistID string) SyncRequest {
	return SyncRequest{
		UserID:               "user-1",
		SourceAccountID:      f.srcAccount.ID(),
		DestinationAccountID: f.dstAccount.ID(),
		PlaylistID:           playlistID,
	}
}

func twoTrackExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{ID: "pl1", Name: "Test Mix", TrackCount: 2},
		Tracks: []models.Track{
			{ID: "sp-tr1", Title: "Found Song", Artists: []string{"Artist A"}, Album: "Album A", Duration: 200},
			{ID: "sp-tr2", Title: "Missing Song", Artists: []string{"Artist B"}, Album: "Album B", Duration: 180},
		},
	}
}

func matchFirstOnly(ctx context.Context, title string, artists []string) (*models.Track, error) {
	if title == "Found Song" {
		return &models.Track{ID: "yt-tr1", Title: "Found Song", Artists: artists}, nil
	}
	return nil, fmt.Errorf("%w: no results", shared.ErrTrackNotFound)
}

func TestPlaylistEngineSync(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		f := newEngineFixture(t)
		engine := f.engine()

		cases := []struct {
			name string
			req  SyncRequest
		}{
			{"missing user", SyncRequest{SourceAccountID: f.srcAccount.ID(), DestinationAccountID: f.dstAccount.ID(), PlaylistID: "pl1"}},
			{"missing playlist", SyncRequest{UserID: "user-1", SourceAccountID: f.srcAccount.ID(), DestinationAccountID: f.dstAccount.ID()}},
			{"missing source account", SyncRequest{UserID: "user-1", DestinationAccountID: f.dstAccount.ID(), PlaylistID: "pl1"}},
			{"unknown source account", SyncRequest{UserID: "user-1", SourceAccountID: "ghost", DestinationAccountID: f.dstAccount.ID(), PlaylistID: "pl1"}},
			{"account owned by someone else", SyncRequest{UserID: "user-2", SourceAccountID: f.srcAccount.ID(), DestinationAccountID: f.dstAccount.ID(), PlaylistID: "pl1"}},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := engine.Sync(ctx, tc.req, nil)
				if !errors.Is(err, shared.ErrInvalidRequest) {
					t.Errorf("expected ErrInvalidRequest, got %v", err)
				}
			})
		}

		logs, err := f.logs.ListByUser("user-1")
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if len(logs) != 0 {
			t.Errorf("expected no sync logs after rejected requests, got %d", len(logs))
		}
	})

	t.Run("empty playlist is terminal and unlogged", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return &models.PlaylistExport{Playlist: models.Playlist{ID: playlistID, Name: "Empty"}}, nil
		}

		_, err := f.engine().Sync(ctx, f.request("pl-empty"), nil)
		if !errors.Is(err, shared.ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}

		logs, _ := f.logs.ListByUser("user-1")
		if len(logs) != 0 {
			t.Errorf("expected no sync log for empty playlist, got %d", len(logs))
		}
	})

	t.Run("fetch failure is terminal and unlogged", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return nil, fmt.Errorf("%w: boom", shared.ErrCatalogFetch)
		}

		_, err := f.engine().Sync(ctx, f.request("pl1"), nil)
		if !errors.Is(err, shared.ErrCatalogFetch) {
			t.Fatalf("expected ErrCatalogFetch, got %v", err)
		}

		logs, _ := f.logs.ListByUser("user-1")
		if len(logs) != 0 {
			t.Errorf("expected no sync log after fetch failure, got %d", len(logs))
		}
	})

	t.Run("two track run", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return twoTrackExport(), nil
		}
		f.destination.SearchFunc = matchFirstOnly

		result, err := f.engine().Sync(ctx, f.request("pl1"), nil)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}

		if result.TotalTracks != 2 {
			t.Errorf("expected 2 total tracks, got %d", result.TotalTracks)
		}
		if result.SongsAdded != 1 {
			t.Errorf("expected 1 song added, got %d", result.SongsAdded)
		}
		if result.SongsNotFound != 1 {
			t.Errorf("expected 1 song not found, got %d", result.SongsNotFound)
		}
		if !result.Matches[1].NotFound() {
			t.Errorf("expected second track to report no-match, got %v", result.Matches[1].Err)
		}

		// matched track persisted once with only the destination mapping
		songs, err := f.songs.List(map[string]any{"artist": "Artist A"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(songs) != 1 {
			t.Fatalf("expected 1 persisted song, got %d", len(songs))
		}

		mappings, err := f.mappings.ListBySong(songs[0].ID())
		if err != nil {
			t.Fatalf("ListBySong failed: %v", err)
		}
		if len(mappings) != 1 {
			t.Fatalf("expected 1 platform mapping, got %d", len(mappings))
		}
		if mappings[0].Platform() != models.PlatformYouTube {
			t.Errorf("expected mapping platform %s, got %s", models.PlatformYouTube, mappings[0].Platform())
		}
		if mappings[0].PlatformTrackID() != "yt-tr1" {
			t.Errorf("expected mapping track id yt-tr1, got %s", mappings[0].PlatformTrackID())
		}

		// unmatched track left nothing behind
		missing, _ := f.songs.List(map[string]any{"artist": "Artist B"})
		if len(missing) != 0 {
			t.Errorf("expected no song rows for unmatched track, got %d", len(missing))
		}

		if result.Log == nil {
			t.Fatal("expected a recorded sync log")
		}
		if result.Log.TotalSongs() != 2 || result.Log.SongsAdded() != 1 || result.Log.SongsNotFound() != 1 {
			t.Errorf("unexpected log counts: %d/%d/%d",
				result.Log.TotalSongs(), result.Log.SongsAdded(), result.Log.SongsNotFound())
		}
	})

	t.Run("re-run is idempotent except for the log", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return twoTrackExport(), nil
		}
		f.destination.SearchFunc = matchFirstOnly

		engine := f.engine()
		for i := 0; i < 2; i++ {
			if _, err := engine.Sync(ctx, f.request("pl1"), nil); err != nil {
				t.Fatalf("run %d failed: %v", i+1, err)
			}
		}

		songs, _ := f.songs.List(map[string]any{"artist": "Artist A"})
		if len(songs) != 1 {
			t.Fatalf("expected 1 song after re-run, got %d", len(songs))
		}

		mappings, _ := f.mappings.ListBySong(songs[0].ID())
		if len(mappings) != 1 {
			t.Errorf("expected 1 mapping after re-run, got %d", len(mappings))
		}

		logs, _ := f.logs.ListByUser("user-1")
		if len(logs) != 2 {
			t.Errorf("expected 2 sync logs after two runs, got %d", len(logs))
		}
	})

	t.Run("upstream search failure is unmatched but not a no-match", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return twoTrackExport(), nil
		}
		f.destination.SearchFunc = func(ctx context.Context, title string, artists []string) (*models.Track, error) {
			return nil, fmt.Errorf("%w: proxy down", shared.ErrAPIRequest)
		}

		result, err := f.engine().Sync(ctx, f.request("pl1"), nil)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.SongsNotFound != 2 {
			t.Errorf("expected both tracks unmatched, got %d", result.SongsNotFound)
		}
		for _, match := range result.Matches {
			if match.NotFound() {
				t.Errorf("upstream failure must not read as no-match: %v", match.Err)
			}
		}
	})

	t.Run("persistence failure skips the track and continues", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return twoTrackExport(), nil
		}
		f.destination.SearchFunc = func(ctx context.Context, title string, artists []string) (*models.Track, error) {
			return &models.Track{ID: "yt-" + title, Title: title, Artists: artists}, nil
		}

		engine := NewPlaylistEngine(f.source, f.destination, f.accounts,
			failingSongStore{failTitle: "Found Song", inner: f.songs}, f.mappings, f.logs, 0)

		result, err := engine.Sync(ctx, f.request("pl1"), nil)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.SongsAdded != 1 {
			t.Errorf("expected 1 song added, got %d", result.SongsAdded)
		}
		if result.SongsNotFound != 1 {
			t.Errorf("expected failed track counted unmatched, got %d", result.SongsNotFound)
		}
		if len(result.PersistErrors) != 1 {
			t.Errorf("expected 1 recorded persistence error, got %d", len(result.PersistErrors))
		}
		if result.Log == nil {
			t.Error("expected the run to still be logged")
		}
	})

	t.Run("emits progress without blocking on a full channel", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return twoTrackExport(), nil
		}
		f.destination.SearchFunc = matchFirstOnly

		// capacity 1 and never drained; Sync must still complete
		progress := make(chan ProgressUpdate, 1)
		if _, err := f.engine().Sync(ctx, f.request("pl1"), progress); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}

		update := <-progress
		if update.Phase != Validate {
			t.Errorf("expected first update to be validate, got %s", update.Phase)
		}
	})

	t.Run("canceled context aborts the match loop", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return twoTrackExport(), nil
		}

		engine := NewPlaylistEngine(f.source, f.destination, f.accounts, f.songs, f.mappings, f.logs, 1)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := engine.Sync(canceled, f.request("pl1"), nil); err == nil {
			t.Fatal("expected error from canceled context")
		}
	})

	t.Run("authenticates both services with account credentials", func(t *testing.T) {
		f := newEngineFixture(t)
		f.source.ExportFunc = func(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
			return twoTrackExport(), nil
		}
		f.destination.SearchFunc = matchFirstOnly

		if _, err := f.engine().Sync(ctx, f.request("pl1"), nil); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}

		if len(f.source.AuthenticateCalls) != 1 || f.source.AuthenticateCalls[0]["credential"] != "src-credential" {
			t.Errorf("expected source authenticated with stored credential, got %v", f.source.AuthenticateCalls)
		}
		if len(f.destination.AuthenticateCalls) != 1 || f.destination.AuthenticateCalls[0]["credential"] != models.PublicAccessCredential {
			t.Errorf("expected destination authenticated with public access credential, got %v", f.destination.AuthenticateCalls)
		}
	})
}

// failingSongStore fails GetOrCreate for one title and delegates the rest.
type failingSongStore struct {
	failTitle string
	inner     SongStore
}

func (s failingSongStore) GetOrCreate(title, artist, album string, duration int) (*models.Song, error) {
	if title == s.failTitle {
		return nil, errors.New("disk full")
	}
	return s.inner.GetOrCreate(title, artist, album, duration)
}
