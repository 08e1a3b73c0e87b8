package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/storage"
)

const groupColumns = `id, name, equb_amount, selection_method, grace_period_days, payment_deadline_days,
	penalty_amount, current_round_number, current_winner_id, last_draw_at, created_at`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateGroup persists a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate ID if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.EqubAmount, string(group.SelectionMethod),
		group.GracePeriodDays, group.PaymentDeadlineDays, group.PenaltyAmount,
		group.CurrentRoundNumber, group.CurrentWinnerID, toUnix(group.LastDrawAt), toUnix(group.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var method string
	var lastDrawAt, createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.Name, &group.EqubAmount, &method, &group.GracePeriodDays,
		&group.PaymentDeadlineDays, &group.PenaltyAmount, &group.CurrentRoundNumber,
		&group.CurrentWinnerID, &lastDrawAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.SelectionMethod = models.SelectionMethod(method)
	group.LastDrawAt = fromUnix(lastDrawAt)
	group.CreatedAt = fromUnix(createdAt)

	return group, nil
}

// SaveGroup updates an existing group.
func (s *SQLiteStore) SaveGroup(ctx context.Context, group *models.Group) error {
	return saveGroup(ctx, s.db, group)
}

func saveGroup(ctx context.Context, db execer, group *models.Group) error {
	result, err := db.ExecContext(ctx,
		`UPDATE groups SET name = ?, equb_amount = ?, selection_method = ?, grace_period_days = ?,
			payment_deadline_days = ?, penalty_amount = ?, current_round_number = ?,
			current_winner_id = ?, last_draw_at = ?
		 WHERE id = ?`,
		group.Name, group.EqubAmount, string(group.SelectionMethod), group.GracePeriodDays,
		group.PaymentDeadlineDays, group.PenaltyAmount, group.CurrentRoundNumber,
		group.CurrentWinnerID, toUnix(group.LastDrawAt), group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("group %s: %w", group.ID, storage.ErrNotFound)
	}

	return nil
}

// AddMember inserts a membership, or updates role and status if it already exists.
// Updating keeps the original join position.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.GroupMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC().Truncate(time.Second)
	}

	// seq is the next join position in the group; an upsert keeps the old one.
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO group_members (group_id, member_id, role, status, joined_at, seq)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM group_members WHERE group_id = ?))
		 ON CONFLICT (group_id, member_id) DO UPDATE SET role = excluded.role, status = excluded.status
		 RETURNING seq`,
		member.GroupID, member.MemberID, string(member.Role), string(member.Status), toUnix(member.JoinedAt),
		member.GroupID,
	).Scan(&member.Seq)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("group %s: %w", member.GroupID, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// GetMember retrieves one membership.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, memberID string) (*models.GroupMember, error) {
	rows, err := s.queryMembers(ctx,
		`WHERE group_id = ? AND member_id = ?`, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("member %s in group %s: %w", memberID, groupID, storage.ErrNotFound)
	}
	return rows[0], nil
}

// GetEligibleMembers returns ACTIVE members in join order.
func (s *SQLiteStore) GetEligibleMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error) {
	return s.queryMembers(ctx,
		`WHERE group_id = ? AND status = ? ORDER BY joined_at, seq`,
		groupID, string(models.MemberActive))
}

// ListAdmins returns ACTIVE admins in join order.
func (s *SQLiteStore) ListAdmins(ctx context.Context, groupID string) ([]*models.GroupMember, error) {
	return s.queryMembers(ctx,
		`WHERE group_id = ? AND status = ? AND role = ? ORDER BY joined_at, seq`,
		groupID, string(models.MemberActive), string(models.RoleAdmin))
}

func (s *SQLiteStore) queryMembers(ctx context.Context, where string, args ...any) ([]*models.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, group_id, member_id, role, status, joined_at FROM group_members `+where,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []*models.GroupMember
	for rows.Next() {
		member := &models.GroupMember{}
		var role, status string
		var joinedAt int64
		if err := rows.Scan(&member.Seq, &member.GroupID, &member.MemberID, &role, &status, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.Role = models.MemberRole(role)
		member.Status = models.MemberStatus(status)
		member.JoinedAt = fromUnix(joinedAt)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}
