package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ivymeadows/finmirror/internal/models"
	"github.com/ivymeadows/finmirror/internal/shared"
	"github.com/mattn/go-sqlite3"
)

const defaultGroupColor = "#6366f1"

// GroupStore persists account groups and their membership rows.
type GroupStore struct {
	db *sql.DB
}

// NewGroupStore creates a GroupStore over the given database handle.
func NewGroupStore(db *sql.DB) *GroupStore {
	return &GroupStore{db: db}
}

// List returns all groups with their member account ids, ordered by name.
func (s *GroupStore) List() ([]models.Group, error) {
	rows, err := s.db.Query("SELECT id, name, color, created_at FROM account_groups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Name, &g.Color, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			g.CreatedAt = ts
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		members, err := s.memberIDs(groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].AccountIDs = members
	}

	return groups, nil
}

// Get returns one group with its member account ids.
func (s *GroupStore) Get(id string) (*models.Group, error) {
	var g models.Group
	var createdAt string
	err := s.db.QueryRow(
		"SELECT id, name, color, created_at FROM account_groups WHERE id = ?", id,
	).Scan(&g.ID, &g.Name, &g.Color, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrGroupNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		g.CreatedAt = ts
	}
	members, err := s.memberIDs(g.ID)
	if err != nil {
		return nil, err
	}
	g.AccountIDs = members

	return &g, nil
}

// Create inserts a new group with its member set. Group names are unique;
// a clash returns [shared.ErrDuplicateGroup].
func (s *GroupStore) Create(name, color string, accountIDs []string) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrInvalidInput)
	}
	if color == "" {
		color = defaultGroupColor
	}

	group := &models.Group{
		ID:         shared.GenerateID(),
		Name:       name,
		Color:      color,
		AccountIDs: accountIDs,
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO account_groups (id, name, color, created_at) VALUES (?, ?, ?, ?)",
		group.ID, group.Name, group.Color, group.CreatedAt.Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %q", shared.ErrDuplicateGroup, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	if err := insertMembers(tx, group.ID, accountIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group: %w", err)
	}
	return group, nil
}

// Update replaces a group's name, color, and member set.
func (s *GroupStore) Update(id, name, color string, accountIDs []string) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrInvalidInput)
	}
	if color == "" {
		color = defaultGroupColor
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE account_groups SET name = ?, color = ? WHERE id = ?", name, color, id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %q", shared.ErrDuplicateGroup, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check group update: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrGroupNotFound, id)
	}

	if _, err := tx.Exec("DELETE FROM account_group_members WHERE group_id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to clear group members: %w", err)
	}
	if err := insertMembers(tx, id, accountIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group update: %w", err)
	}

	return s.Get(id)
}

// Delete removes a group; membership rows cascade via foreign key.
func (s *GroupStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM account_groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check group delete: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", shared.ErrGroupNotFound, id)
	}
	return nil
}

// Snapshot returns per-group balance totals and member counts for the
// selection view, largest totals first.
func (s *GroupStore) Snapshot() ([]models.GroupSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT ag.id, ag.name, ag.color,
		       COALESCE(SUM(a.current_balance), 0) AS total,
		       COUNT(a.id) AS account_count
		FROM account_groups ag
		JOIN account_group_members agm ON ag.id = agm.group_id
		JOIN accounts a                ON agm.account_id = a.id
		GROUP BY ag.id
		ORDER BY total DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query group snapshot: %w", err)
	}
	defer rows.Close()

	snapshots := []models.GroupSnapshot{}
	for rows.Next() {
		var snap models.GroupSnapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.Color, &snap.Total, &snap.AccountCount); err != nil {
			return nil, fmt.Errorf("failed to scan group snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

func (s *GroupStore) memberIDs(groupID string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT account_id FROM account_group_members WHERE group_id = ? ORDER BY account_id", groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertMembers(tx *sql.Tx, groupID string, accountIDs []string) error {
	for _, accountID := range accountIDs {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO account_group_members (group_id, account_id) VALUES (?, ?)",
			groupID, accountID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
