package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
)

// SyncLogRepository implements append-only persistence for [models.SyncLog]
// records. Logs are never updated or deleted.
type SyncLogRepository struct {
	db *sql.DB
}

// NewSyncLogRepository creates a new [SyncLogRepository] with the given database connection
func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Create inserts a new sync log entry with a generated ID
func (r *SyncLogRepository) Create(log *models.SyncLog) error {
	log.SetID(shared.GenerateID())

	if err := log.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_logs (id, user_id, source_account_id, destination_account_id, playlist_id, total_songs, songs_added, songs_not_found, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		log.ID(),
		log.UserID(),
		log.SourceAccountID(),
		log.DestinationAccountID(),
		log.PlaylistID(),
		log.TotalSongs(),
		log.SongsAdded(),
		log.SongsNotFound(),
		log.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync log: %w", err)
	}

	return nil
}

// ListByUser retrieves all sync logs for a user, most recent first
func (r *SyncLogRepository) ListByUser(userID string) ([]*models.SyncLog, error) {
	query := `
		SELECT id, user_id, source_account_id, destination_account_id, playlist_id, total_songs, songs_added, songs_not_found, created_at
		FROM sync_logs
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.SyncLog
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return logs, nil
}

func scanSyncLog(rows *sql.Rows) (*models.SyncLog, error) {
	var (
		id                   string
		userID               string
		sourceAccountID      string
		destinationAccountID string
		playlistID           string
		totalSongs           int
		songsAdded           int
		songsNotFound        int
		createdAt            time.Time
	)

	err := rows.Scan(&id, &userID, &sourceAccountID, &destinationAccountID, &playlistID, &totalSongs, &songsAdded, &songsNotFound, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync log: %w", err)
	}

	log := models.NewSyncLog(userID, sourceAccountID, destinationAccountID, playlistID, totalSongs, songsAdded, songsNotFound)
	log.SetID(id)
	log.SetCreatedAt(createdAt)

	return log, nil
}
