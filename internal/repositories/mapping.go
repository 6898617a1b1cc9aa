package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
)

// MappingRepository implements persistence for [models.PlatformSong] rows,
// the provenance links between a canonical song and its platform-specific
// track identifiers.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new [MappingRepository] with the given database connection
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Link records that the song is known on the platform under the given track
// ID. Linking the same triple again is a no-op, enforced by the unique
// constraint on (song_id, platform, platform_track_id).
func (r *MappingRepository) Link(songID, platform, platformTrackID string) (*models.PlatformSong, error) {
	mapping := models.NewPlatformSong(songID, platform, platformTrackID)
	mapping.SetID(shared.GenerateID())

	if err := mapping.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO platform_songs (id, song_id, platform, platform_track_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		mapping.ID(),
		mapping.SongID(),
		mapping.Platform(),
		mapping.PlatformTrackID(),
		mapping.CreatedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert mapping: %w", err)
	}

	return r.get(songID, platform, platformTrackID)
}

func (r *MappingRepository) get(songID, platform, platformTrackID string) (*models.PlatformSong, error) {
	query := `
		SELECT id, song_id, platform, platform_track_id, created_at
		FROM platform_songs
		WHERE song_id = ? AND platform = ? AND platform_track_id = ?
	`

	var (
		id        string
		createdAt time.Time
	)

	err := r.db.QueryRow(query, songID, platform, platformTrackID).Scan(&id, &songID, &platform, &platformTrackID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: mapping for song %s on %s", shared.ErrTrackNotFound, songID, platform)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping: %w", err)
	}

	mapping := models.NewPlatformSong(songID, platform, platformTrackID)
	mapping.SetID(id)
	mapping.SetCreatedAt(createdAt)

	return mapping, nil
}

// ListBySong retrieves all platform mappings for a song
func (r *MappingRepository) ListBySong(songID string) ([]*models.PlatformSong, error) {
	query := `
		SELECT id, song_id, platform, platform_track_id, created_at
		FROM platform_songs
		WHERE song_id = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.PlatformSong
	for rows.Next() {
		var (
			id              string
			sid             string
			platform        string
			platformTrackID string
			createdAt       time.Time
		)

		if err := rows.Scan(&id, &sid, &platform, &platformTrackID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}

		mapping := models.NewPlatformSong(sid, platform, platformTrackID)
		mapping.SetID(id)
		mapping.SetCreatedAt(createdAt)
		mappings = append(mappings, mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return mappings, nil
}
