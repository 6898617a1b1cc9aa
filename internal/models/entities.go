package models

import (
	"fmt"
	"strings"
	"time"
)

// Account binds a local user to an identity on one external platform.
//
// The (user, platform, platform user id) triple is unique per link; the
// credential may be rotated in place on re-link.
type Account struct {
	id             string
	sequence       int
	userID         string
	platform       string
	platformUserID string
	credential     string
	metadata       string
	createdAt      time.Time
	updatedAt      time.Time
}

// NewAccount creates an Account for the given user, platform, and platform identity.
func NewAccount(sequence int, userID, platform, platformUserID, credential string) *Account {
	now := time.Now()
	return &Account{
		sequence:       sequence,
		userID:         userID,
		platform:       platform,
		platformUserID: platformUserID,
		credential:     credential,
		createdAt:      now,
		updatedAt:      now,
	}
}

func (a *Account) ID() string             { return a.id }
func (a *Account) Sequence() int          { return a.sequence }
func (a *Account) UserID() string         { return a.userID }
func (a *Account) Platform() string       { return a.platform }
func (a *Account) PlatformUserID() string { return a.platformUserID }
func (a *Account) Credential() string     { return a.credential }
func (a *Account) Metadata() string       { return a.metadata }
func (a *Account) CreatedAt() time.Time   { return a.createdAt }
func (a *Account) UpdatedAt() time.Time   { return a.updatedAt }

func (a *Account) SetID(id string)          { a.id = id }
func (a *Account) SetSequence(seq int)      { a.sequence = seq }
func (a *Account) SetCredential(c string)   { a.credential = c }
func (a *Account) SetMetadata(m string)     { a.metadata = m }
func (a *Account) SetCreatedAt(t time.Time) { a.createdAt = t }
func (a *Account) SetUpdatedAt(t time.Time) { a.updatedAt = t }

// Validate checks the account's required fields.
func (a *Account) Validate() error {
	if a.userID == "" {
		return fmt.Errorf("account user id is required")
	}
	if a.platform == "" {
		return fmt.Errorf("account platform is required")
	}
	if a.platformUserID == "" {
		return fmt.Errorf("account platform user id is required")
	}
	if a.credential == "" {
		return fmt.Errorf("account credential is required")
	}
	return nil
}

// Song is the canonical, deduplicated record of one song independent of any
// platform. Identity is the normalized (title, artist, album) triple.
type Song struct {
	id        string
	sequence  int
	title     string
	artist    string
	album     string
	duration  int
	createdAt time.Time
}

// NewSong creates a Song. The artist argument is the flattened artist string
// ("A, B" for multiple artists); duration is whole seconds.
func NewSong(sequence int, title, artist, album string, duration int) *Song {
	return &Song{
		sequence:  sequence,
		title:     title,
		artist:    artist,
		album:     album,
		duration:  duration,
		createdAt: time.Now(),
	}
}

func (s *Song) ID() string           { return s.id }
func (s *Song) Sequence() int        { return s.sequence }
func (s *Song) Title() string        { return s.title }
func (s *Song) Artist() string       { return s.artist }
func (s *Song) Album() string        { return s.album }
func (s *Song) Duration() int        { return s.duration }
func (s *Song) CreatedAt() time.Time { return s.createdAt }

func (s *Song) SetID(id string)          { s.id = id }
func (s *Song) SetSequence(seq int)      { s.sequence = seq }
func (s *Song) SetCreatedAt(t time.Time) { s.createdAt = t }

// Validate checks the song's required fields.
func (s *Song) Validate() error {
	if strings.TrimSpace(s.title) == "" {
		return fmt.Errorf("song title is required")
	}
	if s.duration < 0 {
		return fmt.Errorf("song duration cannot be negative")
	}
	return nil
}

// PlatformSong links a canonical song to its native identifier on one platform.
type PlatformSong struct {
	id              string
	songID          string
	platform        string
	platformTrackID string
	createdAt       time.Time
}

// NewPlatformSong creates a mapping from a canonical song to a platform-native track id.
func NewPlatformSong(songID, platform, platformTrackID string) *PlatformSong {
	return &PlatformSong{
		songID:          songID,
		platform:        platform,
		platformTrackID: platformTrackID,
		createdAt:       time.Now(),
	}
}

func (p *PlatformSong) ID() string              { return p.id }
func (p *PlatformSong) SongID() string          { return p.songID }
func (p *PlatformSong) Platform() string        { return p.platform }
func (p *PlatformSong) PlatformTrackID() string { return p.platformTrackID }
func (p *PlatformSong) CreatedAt() time.Time    { return p.createdAt }

func (p *PlatformSong) SetID(id string)          { p.id = id }
func (p *PlatformSong) SetCreatedAt(t time.Time) { p.createdAt = t }

// Validate checks the mapping's required fields.
func (p *PlatformSong) Validate() error {
	if p.songID == "" {
		return fmt.Errorf("platform song requires a song id")
	}
	if p.platform == "" {
		return fmt.Errorf("platform song requires a platform")
	}
	if p.platformTrackID == "" {
		return fmt.Errorf("platform song requires a platform track id")
	}
	return nil
}

// SyncLog records the outcome of one sync attempt. Immutable after creation.
type SyncLog struct {
	id                   string
	userID               string
	sourceAccountID      string
	destinationAccountID string
	playlistID           string
	totalSongs           int
	songsAdded           int
	songsNotFound        int
	createdAt            time.Time
}

// NewSyncLog creates a SyncLog with the given outcome counts.
func NewSyncLog(userID, sourceAccountID, destinationAccountID, playlistID string, totalSongs, songsAdded, songsNotFound int) *SyncLog {
	return &SyncLog{
		userID:               userID,
		sourceAccountID:      sourceAccountID,
		destinationAccountID: destinationAccountID,
		playlistID:           playlistID,
		totalSongs:           totalSongs,
		songsAdded:           songsAdded,
		songsNotFound:        songsNotFound,
		createdAt:            time.Now(),
	}
}

func (l *SyncLog) ID() string                   { return l.id }
func (l *SyncLog) UserID() string               { return l.userID }
func (l *SyncLog) SourceAccountID() string      { return l.sourceAccountID }
func (l *SyncLog) DestinationAccountID() string { return l.destinationAccountID }
func (l *SyncLog) PlaylistID() string           { return l.playlistID }
func (l *SyncLog) TotalSongs() int              { return l.totalSongs }
func (l *SyncLog) SongsAdded() int              { return l.songsAdded }
func (l *SyncLog) SongsNotFound() int           { return l.songsNotFound }
func (l *SyncLog) CreatedAt() time.Time         { return l.createdAt }

func (l *SyncLog) SetID(id string)          { l.id = id }
func (l *SyncLog) SetCreatedAt(t time.Time) { l.createdAt = t }

// Validate checks the log's required fields and count consistency.
func (l *SyncLog) Validate() error {
	if l.userID == "" {
		return fmt.Errorf("sync log requires a user id")
	}
	if l.sourceAccountID == "" || l.destinationAccountID == "" {
		return fmt.Errorf("sync log requires source and destination account ids")
	}
	if l.playlistID == "" {
		return fmt.Errorf("sync log requires a playlist id")
	}
	if l.totalSongs < 0 || l.songsAdded < 0 || l.songsNotFound < 0 {
		return fmt.Errorf("sync log counts cannot be negative")
	}
	if l.songsAdded+l.songsNotFound > l.totalSongs {
		return fmt.Errorf("sync log counts exceed total songs")
	}
	return nil
}
