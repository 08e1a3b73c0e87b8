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

const roundColumns = `id, group_id, round_number, status, expected_amount, total_amount, winner_id,
	member_count, start_date, payment_deadline, grace_period_days, penalty_amount,
	winner_selected_at, version, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateRound inserts a round, its contributions and the updated group in one transaction.
func (s *SQLiteStore) CreateRound(ctx context.Context, round *models.Round, contributions []*models.Contribution, group *models.Group) error {
	// Generate IDs if not set
	if round.ID == "" {
		round.ID = uuid.New().String()
	}
	now := time.Now().UTC().Truncate(time.Second)
	if round.CreatedAt.IsZero() {
		round.CreatedAt = now
	}
	round.UpdatedAt = round.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rounds (`+roundColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.GroupID, round.RoundNumber, string(round.Status), round.ExpectedAmount,
		round.TotalAmount, round.WinnerID, round.MemberCount, toUnix(round.StartDate),
		toUnix(round.PaymentDeadline), round.GracePeriodDays, round.PenaltyAmount,
		toUnix(round.WinnerSelectedAt), round.Version, toUnix(round.CreatedAt), toUnix(round.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("round %d of group %s: %w", round.RoundNumber, round.GroupID, storage.ErrConflict)
		}
		return fmt.Errorf("failed to insert round: %w", err)
	}

	for _, c := range contributions {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = round.CreatedAt
		}
		c.RoundID = round.ID

		_, err = tx.ExecContext(ctx,
			`INSERT INTO contributions (id, round_id, group_id, member_id, position, amount, status,
				transaction_id, paid_at, late, penalty_amount, penalized_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.RoundID, c.GroupID, c.MemberID, c.Position, c.Amount, string(c.Status),
			c.TransactionID, toUnix(c.PaidAt), boolToInt(c.Late), c.PenaltyAmount,
			toUnix(c.PenalizedAt), toUnix(c.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert contribution: %w", err)
		}
	}

	if group != nil {
		if err := saveGroup(ctx, tx, group); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRound retrieves a round by ID.
func (s *SQLiteStore) GetRound(ctx context.Context, roundID string) (*models.Round, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = ?`, roundID)
	round, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("round %s: %w", roundID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// GetActiveRound retrieves the single ACTIVE round of a group.
func (s *SQLiteStore) GetActiveRound(ctx context.Context, groupID string) (*models.Round, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+roundColumns+` FROM rounds WHERE group_id = ? AND status = ?`,
		groupID, string(models.RoundActive),
	)
	round, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active round of group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active round: %w", err)
	}
	return round, nil
}

// SaveRound writes round (and optionally group) guarded by the round's version.
func (s *SQLiteStore) SaveRound(ctx context.Context, round *models.Round, group *models.Group) error {
	updatedAt := time.Now().UTC().Truncate(time.Second)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE rounds SET status = ?, total_amount = ?, winner_id = ?, winner_selected_at = ?,
			version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND status = ?`,
		string(round.Status), round.TotalAmount, round.WinnerID, toUnix(round.WinnerSelectedAt),
		toUnix(updatedAt), round.ID, round.Version, string(models.RoundActive),
	)
	if err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("round %s at version %d: %w", round.ID, round.Version, storage.ErrConflict)
	}

	if group != nil {
		if err := saveGroup(ctx, tx, group); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	round.Version++
	round.UpdatedAt = updatedAt
	return nil
}

// ListRounds returns a group's rounds, newest first.
func (s *SQLiteStore) ListRounds(ctx context.Context, groupID string) ([]*models.Round, error) {
	return s.queryRounds(ctx,
		`WHERE group_id = ? ORDER BY round_number DESC`, groupID)
}

// ListActiveRounds returns all ACTIVE rounds ordered by payment deadline.
func (s *SQLiteStore) ListActiveRounds(ctx context.Context) ([]*models.Round, error) {
	return s.queryRounds(ctx,
		`WHERE status = ? ORDER BY payment_deadline, id`, string(models.RoundActive))
}

func (s *SQLiteStore) queryRounds(ctx context.Context, where string, args ...any) ([]*models.Round, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roundColumns+` FROM rounds `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rounds: %w", err)
	}

	return rounds, nil
}

func scanRound(row rowScanner) (*models.Round, error) {
	round := &models.Round{}
	var status string
	var startDate, deadline, selectedAt, createdAt, updatedAt int64

	err := row.Scan(&round.ID, &round.GroupID, &round.RoundNumber, &status, &round.ExpectedAmount,
		&round.TotalAmount, &round.WinnerID, &round.MemberCount, &startDate, &deadline,
		&round.GracePeriodDays, &round.PenaltyAmount, &selectedAt, &round.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	round.Status = models.RoundStatus(status)
	round.StartDate = fromUnix(startDate)
	round.PaymentDeadline = fromUnix(deadline)
	round.WinnerSelectedAt = fromUnix(selectedAt)
	round.CreatedAt = fromUnix(createdAt)
	round.UpdatedAt = fromUnix(updatedAt)
	return round, nil
}
