package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
)

// AccountRepository implements persistence for [models.Account] links.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new [AccountRepository] with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account into the database with generated ID and sequence
func (r *AccountRepository) Create(account *models.Account) error {
	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	account.SetSequence(sequence)
	account.SetID(shared.GenerateID())

	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO accounts (id, sequence, user_id, platform, platform_user_id, credential, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		account.ID(),
		account.Sequence(),
		account.UserID(),
		account.Platform(),
		account.PlatformUserID(),
		account.Credential(),
		account.Metadata(),
		account.CreatedAt(),
		account.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// Upsert inserts the account, or rotates the credential in place when the
// (user, platform, platform identity) link already exists. The unique
// constraint makes concurrent links for the same identity converge to one row
// with the latest credential.
func (r *AccountRepository) Upsert(account *models.Account) error {
	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	account.SetSequence(sequence)
	account.SetID(shared.GenerateID())

	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO accounts (id, sequence, user_id, platform, platform_user_id, credential, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, platform, platform_user_id)
		DO UPDATE SET credential = excluded.credential, updated_at = excluded.updated_at
	`

	_, err = r.db.Exec(query,
		account.ID(),
		account.Sequence(),
		account.UserID(),
		account.Platform(),
		account.PlatformUserID(),
		account.Credential(),
		account.Metadata(),
		account.CreatedAt(),
		account.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	// Re-read so the caller sees the canonical row (the original id survives
	// an update, not the freshly generated one).
	existing, err := r.GetByIdentity(account.UserID(), account.Platform(), account.PlatformUserID())
	if err != nil {
		return err
	}

	account.SetID(existing.ID())
	account.SetSequence(existing.Sequence())
	account.SetCreatedAt(existing.CreatedAt())

	return nil
}

// Get retrieves an account by ID
func (r *AccountRepository) Get(id string) (*models.Account, error) {
	query := `
		SELECT id, sequence, user_id, platform, platform_user_id, credential, metadata, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByIdentity retrieves an account by its (user, platform, platform identity) link key
func (r *AccountRepository) GetByIdentity(userID, platform, platformUserID string) (*models.Account, error) {
	query := `
		SELECT id, sequence, user_id, platform, platform_user_id, credential, metadata, created_at, updated_at
		FROM accounts
		WHERE user_id = ? AND platform = ? AND platform_user_id = ?
	`

	return r.scanOne(r.db.QueryRow(query, userID, platform, platformUserID))
}

// Update modifies an existing account's credential and metadata
func (r *AccountRepository) Update(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	account.SetUpdatedAt(now)

	query := `
		UPDATE accounts
		SET credential = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, account.Credential(), account.Metadata(), now, account.ID())
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, account.ID())
	}

	return nil
}

// Delete removes an account by ID
func (r *AccountRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}

	return nil
}

// List retrieves all accounts matching the given criteria
func (r *AccountRepository) List(criteria map[string]any) ([]*models.Account, error) {
	query := `
		SELECT id, sequence, user_id, platform, platform_user_id, credential, metadata, created_at, updated_at
		FROM accounts
		WHERE 1 = 1
	`

	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if platform, ok := criteria["platform"].(string); ok && platform != "" {
		query += " AND platform = ?"
		args = append(args, platform)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) scanOne(row *sql.Row) (*models.Account, error) {
	var (
		id             string
		sequence       int
		userID         string
		platform       string
		platformUserID string
		credential     string
		metadata       string
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(&id, &sequence, &userID, &platform, &platformUserID, &credential, &metadata, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	return buildAccount(id, sequence, userID, platform, platformUserID, credential, metadata, createdAt, updatedAt), nil
}

func (r *AccountRepository) scanRow(rows *sql.Rows) (*models.Account, error) {
	var (
		id             string
		sequence       int
		userID         string
		platform       string
		platformUserID string
		credential     string
		metadata       string
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := rows.Scan(&id, &sequence, &userID, &platform, &platformUserID, &credential, &metadata, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	return buildAccount(id, sequence, userID, platform, platformUserID, credential, metadata, createdAt, updatedAt), nil
}

func buildAccount(id string, sequence int, userID, platform, platformUserID, credential, metadata string, createdAt, updatedAt time.Time) *models.Account {
	account := models.NewAccount(sequence, userID, platform, platformUserID, credential)
	account.SetID(id)
	account.SetMetadata(metadata)
	account.SetCreatedAt(createdAt)
	account.SetUpdatedAt(updatedAt)
	return account
}
