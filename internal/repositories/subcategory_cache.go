package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/botanica/internal/models"
)

// SubcategoryCacheRepository stores a snapshot of the last fetched job list.
//
// The snapshot is only ever replaced as a whole; it is never merged with newer data.
type SubcategoryCacheRepository struct {
	db *sql.DB
}

// NewSubcategoryCacheRepository creates a new [SubcategoryCacheRepository] with the given database connection
func NewSubcategoryCacheRepository(db *sql.DB) *SubcategoryCacheRepository {
	return &SubcategoryCacheRepository{db: db}
}

// ReplaceAll swaps the snapshot for subs in a single transaction, preserving server order.
func (r *SubcategoryCacheRepository) ReplaceAll(subs []models.Subcategory) error {
	now := time.Now()

	return withTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM subcategory_cache`); err != nil {
			return fmt.Errorf("failed to clear subcategory cache: %w", err)
		}

		query := `
			INSERT OR REPLACE INTO subcategory_cache
				(id, position, name, short_description, long_description, is_active, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		for i, s := range subs {
			_, err := tx.Exec(query, s.ID.String(), i, s.Name, s.ShortDescription, s.LongDescription, s.IsActive, now)
			if err != nil {
				return fmt.Errorf("failed to cache subcategory %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

// List returns the snapshot in server order and the time it was fetched.
// An empty snapshot yields a nil slice and a zero time.
func (r *SubcategoryCacheRepository) List() ([]models.Subcategory, time.Time, error) {
	query := `
		SELECT id, name, short_description, long_description, is_active, fetched_at
		FROM subcategory_cache
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query subcategory cache: %w", err)
	}
	defer rows.Close()

	var (
		subs      []models.Subcategory
		fetchedAt time.Time
	)
	for rows.Next() {
		var (
			s  models.Subcategory
			id string
		)
		if err := rows.Scan(&id, &s.Name, &s.ShortDescription, &s.LongDescription, &s.IsActive, &fetchedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		s.ID = models.ID(id)
		subs = append(subs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("error iterating subcategory cache: %w", err)
	}
	return subs, fetchedAt, nil
}

// Clear empties the snapshot.
func (r *SubcategoryCacheRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM subcategory_cache`); err != nil {
		return fmt.Errorf("failed to clear subcategory cache: %w", err)
	}
	return nil
}
