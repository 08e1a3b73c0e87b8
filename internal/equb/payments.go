package equb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/storage"
)

// ConfirmPayment is the payment collaborator's completion signal for one
// contribution. Confirming an already completed contribution is a no-op.
// When the confirmation completes the round, the group's admins are told a
// winner can be drawn.
func (m *Manager) ConfirmPayment(ctx context.Context, contributionID, transactionID string) (Progress, error) {
	c, err := m.contributions.GetContribution(ctx, contributionID)
	if err != nil {
		return Progress{}, translate(err, "contribution "+contributionID)
	}
	if c.Status == models.ContributionCancelled {
		return Progress{}, fmt.Errorf("%w: contribution %s is cancelled", ErrInvalidState, contributionID)
	}

	changed, err := m.contributions.CompleteContribution(ctx, contributionID, transactionID, m.clock())
	if errors.Is(err, storage.ErrConflict) {
		return Progress{}, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if err != nil {
		return Progress{}, fmt.Errorf("failed to complete contribution: %w", err)
	}

	round, err := m.rounds.GetRound(ctx, c.RoundID)
	if err != nil {
		return Progress{}, translate(err, "round "+c.RoundID)
	}
	progress, err := m.tracker.Progress(ctx, round)
	if err != nil {
		return Progress{}, err
	}
	if !changed {
		return progress, nil
	}

	m.metrics.PaymentsConfirmed.Inc()
	slog.Info("Contribution paid",
		"group_id", c.GroupID,
		"round_number", round.RoundNumber,
		"member_id", c.MemberID,
		"progress", progress.String(),
	)

	if progress.Complete() && round.IsActive() {
		admins, err := m.groups.ListAdmins(ctx, c.GroupID)
		if err != nil {
			slog.Warn("Failed to load admins for completion notice", "group_id", c.GroupID, "error", err)
			return progress, nil
		}
		msg := fmt.Sprintf("All %d members have paid equb round %d. A winner can now be selected.", progress.Total, round.RoundNumber)
		for _, admin := range admins {
			emit(ctx, m.notifier, m.notifyTimeout, admin.MemberID, c.GroupID, msg)
		}
	}

	return progress, nil
}
