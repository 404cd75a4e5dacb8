package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/shared"
)

// SessionRepository persists the single active session so CLI invocations share a login.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save stores s, replacing any previously stored session.
func (r *SessionRepository) Save(s *models.Session) error {
	if !s.Valid() {
		return fmt.Errorf("%w: session has no credential", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO sessions (id, credential, display_name, avatar_url, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			credential = excluded.credential,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`

	var avatar sql.NullString
	if s.AvatarURL != nil {
		avatar = sql.NullString{String: *s.AvatarURL, Valid: true}
	}

	if _, err := r.db.Exec(query, s.Credential, s.DisplayName, avatar, s.CreatedAt, time.Now()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns the stored session or an error matching [shared.ErrNotFound].
func (r *SessionRepository) Get() (*models.Session, error) {
	query := `SELECT credential, display_name, avatar_url, created_at FROM sessions WHERE id = 1`

	var (
		credential  string
		displayName string
		avatar      sql.NullString
		createdAt   time.Time
	)

	err := r.db.QueryRow(query).Scan(&credential, &displayName, &avatar, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no saved session", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	s := models.NewSession(credential, displayName, avatar.String)
	s.CreatedAt = createdAt
	return s, nil
}

// Clear removes the stored session. Clearing when none is stored is not an error.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
