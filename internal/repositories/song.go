package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
)

// SongRepository implements persistence for canonical [models.Song] records.
// Songs are deduplicated on a normalized (title, artist, album) key enforced
// by a unique index, so concurrent writers for the same song converge on one
// row.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new [SongRepository] with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// GetOrCreate returns the canonical song for the given (title, artist, album),
// inserting it first when no such song exists. The insert is an INSERT OR
// IGNORE against the normalized-key index followed by a re-read, so two
// callers racing on the same song both get the same row back.
func (r *SongRepository) GetOrCreate(title, artist, album string, duration int) (*models.Song, error) {
	key := shared.NormalizeSongKey(title, artist, album)

	sequence, err := NextSequence(r.db, "songs")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	song := models.NewSong(sequence, title, artist, album, duration)
	song.SetID(shared.GenerateID())

	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO songs (id, sequence, title, artist, album, duration, normalized_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		song.ID(),
		song.Sequence(),
		song.Title(),
		song.Artist(),
		song.Album(),
		song.Duration(),
		key,
		song.CreatedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert song: %w", err)
	}

	return r.getByKey(key)
}

// Get retrieves a song by ID
func (r *SongRepository) Get(id string) (*models.Song, error) {
	query := `
		SELECT id, sequence, title, artist, album, duration, created_at
		FROM songs
		WHERE id = ?
	`

	return r.scanOne(r.db.QueryRow(query, id), id)
}

func (r *SongRepository) getByKey(key string) (*models.Song, error) {
	query := `
		SELECT id, sequence, title, artist, album, duration, created_at
		FROM songs
		WHERE normalized_key = ?
	`

	return r.scanOne(r.db.QueryRow(query, key), key)
}

// List retrieves all songs matching the given criteria
func (r *SongRepository) List(criteria map[string]any) ([]*models.Song, error) {
	query := `
		SELECT id, sequence, title, artist, album, duration, created_at
		FROM songs
		WHERE 1 = 1
	`

	args := []any{}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}

	if album, ok := criteria["album"].(string); ok && album != "" {
		query += " AND album = ?"
		args = append(args, album)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []*models.Song
	for rows.Next() {
		var (
			id        string
			sequence  int
			title     string
			artist    string
			album     string
			duration  int
			createdAt time.Time
		)

		if err := rows.Scan(&id, &sequence, &title, &artist, &album, &duration, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}

		songs = append(songs, buildSong(id, sequence, title, artist, album, duration, createdAt))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

func (r *SongRepository) scanOne(row *sql.Row, ref string) (*models.Song, error) {
	var (
		id        string
		sequence  int
		title     string
		artist    string
		album     string
		duration  int
		createdAt time.Time
	)

	err := row.Scan(&id, &sequence, &title, &artist, &album, &duration, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: song %s", shared.ErrTrackNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query song: %w", err)
	}

	return buildSong(id, sequence, title, artist, album, duration, createdAt), nil
}

func buildSong(id string, sequence int, title, artist, album string, duration int, createdAt time.Time) *models.Song {
	song := models.NewSong(sequence, title, artist, album, duration)
	song.SetID(id)
	song.SetCreatedAt(createdAt)
	return song
}
