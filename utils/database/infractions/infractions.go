// Package infractions persists moderation infraction records. The table is
// append-only: records are deactivated on expiry or pardon, never deleted.
package infractions

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"modbot/model"
	"modbot/utils/database"
)

// Store provides CRUD over the infractions table. All methods are safe for
// concurrent use.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over an initialized database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new active infraction and returns it. expiresAt may be
// nil for permanent infractions.
func (s *Store) Create(targetID, actorID int64, kind model.InfractionKind, reason string, expiresAt *time.Time) (model.Infraction, error) {
	inf := model.Infraction{
		ID:        uuid.NewString(),
		TargetID:  targetID,
		ActorID:   actorID,
		Kind:      kind,
		Reason:    reason,
		CreatedAt: time.Now().Unix(),
		Active:    true,
	}
	if expiresAt != nil {
		unix := expiresAt.Unix()
		inf.ExpiresAt = &unix
	}

	query := `INSERT INTO infractions (id, target_id, actor_id, kind, reason, created_at, expires_at, active)
		VALUES (:id, :target_id, :actor_id, :kind, :reason, :created_at, :expires_at, :active)`
	if _, err := s.db.NamedExec(query, inf); err != nil {
		return model.Infraction{}, fmt.Errorf("failed to insert infraction: %w", err)
	}
	return inf, nil
}

// Get retrieves an infraction by ID. Returns database.ErrNotFound if no
// such record exists.
func (s *Store) Get(id string) (model.Infraction, error) {
	var inf model.Infraction
	err := s.db.Get(&inf, "SELECT * FROM infractions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Infraction{}, database.ErrNotFound
	}
	if err != nil {
		return model.Infraction{}, fmt.Errorf("failed to get infraction %s: %w", id, err)
	}
	return inf, nil
}

// ListActiveByUser returns all active infractions against a target.
func (s *Store) ListActiveByUser(targetID int64) ([]model.Infraction, error) {
	return s.list("SELECT * FROM infractions WHERE target_id = ? AND active = 1 ORDER BY created_at", targetID)
}

// ListByUser returns a target's full infraction history, newest first.
func (s *Store) ListByUser(targetID int64) ([]model.Infraction, error) {
	return s.list("SELECT * FROM infractions WHERE target_id = ? ORDER BY created_at DESC", targetID)
}

// ListActiveExpirable returns all active infractions that carry an expiry.
// This is the working set for restart recovery.
func (s *Store) ListActiveExpirable() ([]model.Infraction, error) {
	return s.list("SELECT * FROM infractions WHERE active = 1 AND expires_at IS NOT NULL")
}

func (s *Store) list(query string, args ...interface{}) ([]model.Infraction, error) {
	rows, err := s.db.Queryx(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query infractions: %w", err)
	}
	defer rows.Close()

	var records []model.Infraction
	for rows.Next() {
		var inf model.Infraction
		if err := rows.StructScan(&inf); err != nil {
			// A malformed row is excluded from the working set but kept
			// in storage for manual inspection.
			log.Printf("Skipping malformed infraction row: %v", err)
			continue
		}
		records = append(records, inf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate infractions: %w", err)
	}
	return records, nil
}

// SetActive updates an infraction's active flag. A missing ID is reported
// as database.ErrNotFound; setting an unchanged value is a no-op.
func (s *Store) SetActive(id string, active bool) error {
	result, err := s.db.Exec("UPDATE infractions SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("failed to update infraction %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for infraction %s: %w", id, err)
	}
	if affected == 0 {
		// Either the row is missing or the flag already had this value.
		var count int
		if err := s.db.Get(&count, "SELECT COUNT(*) FROM infractions WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to check infraction %s: %w", id, err)
		}
		if count == 0 {
			return database.ErrNotFound
		}
	}
	return nil
}

// Count returns the total number of infraction records.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM infractions"); err != nil {
		return 0, fmt.Errorf("failed to count infractions: %w", err)
	}
	return count, nil
}
