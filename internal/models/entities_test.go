package models

import (
	"strings"
	"testing"
)

func TestAccountValidate(t *testing.T) {
	valid := func() *Account {
		return NewAccount(1, "user-1", PlatformSpotify, "spotify-user", "credential")
	}

	t.Run("Valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("expected valid account, got %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Account)
		message string
	}{
		{
			name:    "Missing UserID",
			mutate:  func(a *Account) { a.userID = "" },
			message: "user id",
		},
		{
			name:    "Missing Platform",
			mutate:  func(a *Account) { a.platform = "" },
			message: "platform",
		},
		{
			name:    "Missing PlatformUserID",
			mutate:  func(a *Account) { a.platformUserID = "" },
			message: "platform user id",
		},
		{
			name:    "Missing Credential",
			mutate:  func(a *Account) { a.credential = "" },
			message: "credential",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := valid()
			tt.mutate(account)

			err := account.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}

			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected error mentioning %q, got %v", tt.message, err)
			}
		})
	}
}

func TestSongValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		song := NewSong(1, "Title", "Artist", "Album", 180)
		if err := song.Validate(); err != nil {
			t.Errorf("expected valid song, got %v", err)
		}
	})

	t.Run("Blank Title", func(t *testing.T) {
		song := NewSong(1, "   ", "Artist", "Album", 180)
		if err := song.Validate(); err == nil {
			t.Error("expected error for blank title")
		}
	})

	t.Run("Negative Duration", func(t *testing.T) {
		song := NewSong(1, "Title", "Artist", "Album", -1)
		if err := song.Validate(); err == nil {
			t.Error("expected error for negative duration")
		}
	})

	t.Run("Missing Album Allowed", func(t *testing.T) {
		song := NewSong(1, "Title", "Artist", "", 180)
		if err := song.Validate(); err != nil {
			t.Errorf("songs without an album should validate, got %v", err)
		}
	})
}

func TestPlatformSongValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		mapping := NewPlatformSong("song-1", PlatformYouTube, "yt-track-1")
		if err := mapping.Validate(); err != nil {
			t.Errorf("expected valid mapping, got %v", err)
		}
	})

	t.Run("Missing Fields", func(t *testing.T) {
		for name, mapping := range map[string]*PlatformSong{
			"song id":  NewPlatformSong("", PlatformYouTube, "yt-track-1"),
			"platform": NewPlatformSong("song-1", "", "yt-track-1"),
			"track id": NewPlatformSong("song-1", PlatformYouTube, ""),
		} {
			if err := mapping.Validate(); err == nil {
				t.Errorf("expected error for missing %s", name)
			}
		}
	})
}

func TestSyncLogValidate(t *testing.T) {
	valid := func() *SyncLog {
		return NewSyncLog("user-1", "acct-src", "acct-dst", "pl-1", 10, 8, 2)
	}

	t.Run("Valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("expected valid sync log, got %v", err)
		}
	})

	t.Run("Missing UserID", func(t *testing.T) {
		log := NewSyncLog("", "acct-src", "acct-dst", "pl-1", 10, 8, 2)
		if err := log.Validate(); err == nil {
			t.Error("expected error for missing user id")
		}
	})

	t.Run("Missing Accounts", func(t *testing.T) {
		log := NewSyncLog("user-1", "", "acct-dst", "pl-1", 10, 8, 2)
		if err := log.Validate(); err == nil {
			t.Error("expected error for missing source account")
		}

		log = NewSyncLog("user-1", "acct-src", "", "pl-1", 10, 8, 2)
		if err := log.Validate(); err == nil {
			t.Error("expected error for missing destination account")
		}
	})

	t.Run("Missing Playlist", func(t *testing.T) {
		log := NewSyncLog("user-1", "acct-src", "acct-dst", "", 10, 8, 2)
		if err := log.Validate(); err == nil {
			t.Error("expected error for missing playlist id")
		}
	})

	t.Run("Negative Counts", func(t *testing.T) {
		log := NewSyncLog("user-1", "acct-src", "acct-dst", "pl-1", -1, 0, 0)
		if err := log.Validate(); err == nil {
			t.Error("expected error for negative total")
		}
	})

	t.Run("Counts Exceed Total", func(t *testing.T) {
		log := NewSyncLog("user-1", "acct-src", "acct-dst", "pl-1", 5, 4, 2)
		if err := log.Validate(); err == nil {
			t.Error("expected error when added plus not found exceeds total")
		}
	})

	t.Run("Partial Counts Allowed", func(t *testing.T) {
		// Persist failures can leave added + not found below total.
		log := NewSyncLog("user-1", "acct-src", "acct-dst", "pl-1", 10, 6, 2)
		if err := log.Validate(); err != nil {
			t.Errorf("expected partial counts to validate, got %v", err)
		}
	})
}

func TestTrackArtist(t *testing.T) {
	track := Track{Title: "Title", Artists: []string{"Lead", "Feature"}}
	if got := track.Artist(); got != "Lead" {
		t.Errorf("expected primary artist Lead, got %s", got)
	}

	empty := Track{Title: "Title"}
	if got := empty.Artist(); got != "" {
		t.Errorf("expected empty artist, got %s", got)
	}
}
