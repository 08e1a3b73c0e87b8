package equb

import (
	"context"
	"fmt"

	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/storage"
)

// Progress is a round's payment progress.
type Progress struct {
	RoundID     string
	RoundNumber int
	Paid        int
	Total       int
}

// Complete reports whether every eligible member has paid.
func (p Progress) Complete() bool {
	return p.Total > 0 && p.Paid == p.Total
}

func (p Progress) String() string {
	return fmt.Sprintf("%d of %d members paid", p.Paid, p.Total)
}

// Tracker evaluates contribution completeness. It never caches: every answer is
// read from the store at call time.
type Tracker struct {
	contributions storage.ContributionStore
}

// NewTracker creates a Tracker over the given contribution store.
func NewTracker(contributions storage.ContributionStore) *Tracker {
	return &Tracker{contributions: contributions}
}

// CountPaid returns the number of COMPLETED contributions of the round.
func (t *Tracker) CountPaid(ctx context.Context, round *models.Round) (int, error) {
	n, err := t.contributions.CountByRoundAndStatus(ctx, round.ID, models.ContributionCompleted)
	if err != nil {
		return 0, fmt.Errorf("failed to count paid contributions: %w", err)
	}
	return n, nil
}

// CountTotal returns the size of the eligible member set frozen at round start.
func (t *Tracker) CountTotal(round *models.Round) int {
	return round.MemberCount
}

// IsRoundComplete reports whether paid contributions cover the frozen member count.
func (t *Tracker) IsRoundComplete(ctx context.Context, round *models.Round) (bool, error) {
	p, err := t.Progress(ctx, round)
	if err != nil {
		return false, err
	}
	return p.Complete(), nil
}

// Progress returns paid and total counts for the round.
func (t *Tracker) Progress(ctx context.Context, round *models.Round) (Progress, error) {
	paid, err := t.CountPaid(ctx, round)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		RoundID:     round.ID,
		RoundNumber: round.RoundNumber,
		Paid:        paid,
		Total:       t.CountTotal(round),
	}, nil
}
