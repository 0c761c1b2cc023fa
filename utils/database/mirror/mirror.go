// Package mirror persists the local copy of guild member and role state.
// Writes are full-row last-write-wins with the freshest observed snapshot;
// upserts report whether a row actually changed so sync passes can count
// real mutations.
package mirror

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"modbot/model"
	"modbot/utils/database"
)

// Store provides CRUD over the members, roles and member_roles tables.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over an initialized database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetMember retrieves a mirrored member, or database.ErrNotFound.
func (s *Store) GetMember(id int64) (model.MemberRecord, error) {
	var rec model.MemberRecord
	err := s.db.Get(&rec, "SELECT * FROM members WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MemberRecord{}, database.ErrNotFound
	}
	if err != nil {
		return model.MemberRecord{}, fmt.Errorf("failed to get member %d: %w", id, err)
	}
	return rec, nil
}

// UpsertMember writes the member record, overwriting every tracked field.
// Returns true if the write changed anything.
func (s *Store) UpsertMember(rec model.MemberRecord) (bool, error) {
	existing, err := s.GetMember(rec.ID)
	if err == nil && existing == rec {
		return false, nil
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return false, err
	}

	query := `INSERT INTO members (id, username, discriminator, avatar_url, present)
		VALUES (:id, :username, :discriminator, :avatar_url, :present)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			discriminator = excluded.discriminator,
			avatar_url = excluded.avatar_url,
			present = excluded.present`
	if _, err := s.db.NamedExec(query, rec); err != nil {
		return false, fmt.Errorf("failed to upsert member %d: %w", rec.ID, err)
	}
	return true, nil
}

// SetPresent flips a member's presence flag. Unknown members are a no-op.
func (s *Store) SetPresent(id int64, present bool) (bool, error) {
	result, err := s.db.Exec("UPDATE members SET present = ? WHERE id = ? AND present != ?", present, id, present)
	if err != nil {
		return false, fmt.Errorf("failed to set presence for member %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for member %d: %w", id, err)
	}
	return affected > 0, nil
}

// ListPresentMemberIDs returns the IDs of all members marked present.
func (s *Store) ListPresentMemberIDs() ([]int64, error) {
	var ids []int64
	if err := s.db.Select(&ids, "SELECT id FROM members WHERE present = 1"); err != nil {
		return nil, fmt.Errorf("failed to list present members: %w", err)
	}
	return ids, nil
}

// GetRole retrieves a mirrored role, or database.ErrNotFound.
func (s *Store) GetRole(id int64) (model.RoleRecord, error) {
	var rec model.RoleRecord
	err := s.db.Get(&rec, "SELECT * FROM roles WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RoleRecord{}, database.ErrNotFound
	}
	if err != nil {
		return model.RoleRecord{}, fmt.Errorf("failed to get role %d: %w", id, err)
	}
	return rec, nil
}

// UpsertRole writes the role record. Returns true if the write changed
// anything.
func (s *Store) UpsertRole(rec model.RoleRecord) (bool, error) {
	existing, err := s.GetRole(rec.ID)
	if err == nil && existing == rec {
		return false, nil
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return false, err
	}

	query := `INSERT INTO roles (id, name, colour) VALUES (:id, :name, :colour)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, colour = excluded.colour`
	if _, err := s.db.NamedExec(query, rec); err != nil {
		return false, fmt.Errorf("failed to upsert role %d: %w", rec.ID, err)
	}
	return true, nil
}

// DeleteRole removes a role and its junction rows.
func (s *Store) DeleteRole(id int64) error {
	if _, err := s.db.Exec("DELETE FROM member_roles WHERE role_id = ?", id); err != nil {
		return fmt.Errorf("failed to drop junction rows for role %d: %w", id, err)
	}
	if _, err := s.db.Exec("DELETE FROM roles WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete role %d: %w", id, err)
	}
	return nil
}

// ListRoleIDs returns all mirrored role IDs.
func (s *Store) ListRoleIDs() ([]int64, error) {
	var ids []int64
	if err := s.db.Select(&ids, "SELECT id FROM roles"); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return ids, nil
}

// GetMemberRoles returns the mirrored role-ID set for a member, sorted.
func (s *Store) GetMemberRoles(memberID int64) ([]int64, error) {
	var ids []int64
	if err := s.db.Select(&ids, "SELECT role_id FROM member_roles WHERE member_id = ?", memberID); err != nil {
		return nil, fmt.Errorf("failed to get roles for member %d: %w", memberID, err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ReplaceMemberRoles overwrites a member's mirrored role set with the
// freshly observed one. Returns true if the set changed.
func (s *Store) ReplaceMemberRoles(memberID int64, roleIDs []int64) (bool, error) {
	current, err := s.GetMemberRoles(memberID)
	if err != nil {
		return false, err
	}
	observed := append([]int64(nil), roleIDs...)
	sort.Slice(observed, func(i, j int) bool { return observed[i] < observed[j] })
	if equalIDs(current, observed) {
		return false, nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin role replacement for member %d: %w", memberID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM member_roles WHERE member_id = ?", memberID); err != nil {
		return false, fmt.Errorf("failed to clear roles for member %d: %w", memberID, err)
	}
	for _, roleID := range observed {
		if _, err := tx.Exec("INSERT INTO member_roles (member_id, role_id) VALUES (?, ?)", memberID, roleID); err != nil {
			return false, fmt.Errorf("failed to insert role %d for member %d: %w", roleID, memberID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit role replacement for member %d: %w", memberID, err)
	}
	return true, nil
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
