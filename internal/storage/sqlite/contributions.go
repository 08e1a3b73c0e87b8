package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/storage"
)

const contributionColumns = `id, round_id, group_id, member_id, position, amount, status,
	transaction_id, paid_at, late, penalty_amount, penalized_at, created_at`

// GetContribution retrieves a contribution by ID.
func (s *SQLiteStore) GetContribution(ctx context.Context, contributionID string) (*models.Contribution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contributionColumns+` FROM contributions WHERE id = ?`, contributionID)
	c, err := scanContribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contribution %s: %w", contributionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

// ListContributions returns a round's contributions in frozen eligibility order.
func (s *SQLiteStore) ListContributions(ctx context.Context, roundID string) ([]*models.Contribution, error) {
	return s.queryContributions(ctx, `WHERE round_id = ? ORDER BY position`, roundID)
}

// ListPending returns a round's PENDING contributions.
func (s *SQLiteStore) ListPending(ctx context.Context, roundID string) ([]*models.Contribution, error) {
	return s.queryContributions(ctx,
		`WHERE round_id = ? AND status = ? ORDER BY position`,
		roundID, string(models.ContributionPending))
}

// CountByRoundAndStatus counts a round's contributions in one status.
func (s *SQLiteStore) CountByRoundAndStatus(ctx context.Context, roundID string, status models.ContributionStatus) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contributions WHERE round_id = ? AND status = ?",
		roundID, string(status),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count contributions: %w", err)
	}
	return n, nil
}

// CompleteContribution marks a PENDING contribution as paid.
func (s *SQLiteStore) CompleteContribution(ctx context.Context, contributionID, transactionID string, paidAt time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE contributions
		 SET status = ?, paid_at = ?, transaction_id = CASE WHEN ? = '' THEN transaction_id ELSE ? END
		 WHERE id = ? AND status = ?`,
		string(models.ContributionCompleted), toUnix(paidAt), transactionID, transactionID,
		contributionID, string(models.ContributionPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete contribution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	// Nothing changed: find out why.
	c, err := s.GetContribution(ctx, contributionID)
	if err != nil {
		return false, err
	}
	if c.Status == models.ContributionCompleted {
		return false, nil
	}
	return false, fmt.Errorf("contribution %s is %s: %w", contributionID, c.Status, storage.ErrConflict)
}

// ApplyPenalty flags a PENDING contribution late. The late = 0 guard makes it idempotent.
func (s *SQLiteStore) ApplyPenalty(ctx context.Context, contributionID string, amount decimal.Decimal, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE contributions SET late = 1, penalty_amount = ?, penalized_at = ?
		 WHERE id = ? AND status = ? AND late = 0`,
		amount, toUnix(at), contributionID, string(models.ContributionPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply penalty: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check update result: %w", err)
	}
	return rows == 1, nil
}

func (s *SQLiteStore) queryContributions(ctx context.Context, where string, args ...any) ([]*models.Contribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contributionColumns+` FROM contributions `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}

	return contributions, nil
}

func scanContribution(row rowScanner) (*models.Contribution, error) {
	c := &models.Contribution{}
	var status string
	var late int
	var paidAt, penalizedAt, createdAt int64

	err := row.Scan(&c.ID, &c.RoundID, &c.GroupID, &c.MemberID, &c.Position, &c.Amount, &status,
		&c.TransactionID, &paidAt, &late, &c.PenaltyAmount, &penalizedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	c.Status = models.ContributionStatus(status)
	c.Late = late != 0
	c.PaidAt = fromUnix(paidAt)
	c.PenalizedAt = fromUnix(penalizedAt)
	c.CreatedAt = fromUnix(createdAt)
	return c, nil
}
