package equb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/storage"
)

// EqubConfig is the equb configuration an admin applies to a group.
// Nil day counts take the defaults (7 grace days, 15 deadline days).
type EqubConfig struct {
	Amount              decimal.Decimal
	SelectionMethod     models.SelectionMethod
	GracePeriodDays     *int
	PaymentDeadlineDays *int
	PenaltyAmount       decimal.Decimal
}

func (c EqubConfig) validate() error {
	var errs []error
	if !c.Amount.IsPositive() {
		errs = append(errs, fmt.Errorf("equb amount must be positive, got %s", c.Amount))
	}
	if !c.SelectionMethod.Valid() {
		errs = append(errs, fmt.Errorf("unknown selection method %q", c.SelectionMethod))
	}
	if c.GracePeriodDays != nil && *c.GracePeriodDays < 0 {
		errs = append(errs, fmt.Errorf("grace period days must not be negative, got %d", *c.GracePeriodDays))
	}
	if c.PaymentDeadlineDays != nil && *c.PaymentDeadlineDays <= 0 {
		errs = append(errs, fmt.Errorf("payment deadline days must be positive, got %d", *c.PaymentDeadlineDays))
	}
	if c.PenaltyAmount.IsNegative() {
		errs = append(errs, fmt.Errorf("penalty amount must not be negative, got %s", c.PenaltyAmount))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ConfigureEqub turns a group into an equb group, or changes its settings.
// Settings cannot change while a round is active; rounds copy what they need at start.
func (m *Manager) ConfigureEqub(ctx context.Context, groupID, requester string, cfg EqubConfig) (*models.Group, error) {
	unlock := m.locks.lock(groupID)
	defer unlock()

	group, err := m.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := m.authorize(ctx, groupID, requester, "configure equb", isGroupAdmin); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	active, err := m.rounds.GetActiveRound(ctx, groupID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: cannot reconfigure while round %d is active", ErrInvalidState, active.RoundNumber)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check active round: %w", err)
	}

	group.EqubAmount = cfg.Amount
	group.SelectionMethod = cfg.SelectionMethod
	group.GracePeriodDays = DefaultGracePeriodDays
	if cfg.GracePeriodDays != nil {
		group.GracePeriodDays = *cfg.GracePeriodDays
	}
	group.PaymentDeadlineDays = DefaultPaymentDeadlineDays
	if cfg.PaymentDeadlineDays != nil {
		group.PaymentDeadlineDays = *cfg.PaymentDeadlineDays
	}
	group.PenaltyAmount = cfg.PenaltyAmount

	if err := m.groups.SaveGroup(ctx, group); err != nil {
		return nil, translate(err, "save group")
	}

	slog.Info("Configured equb group",
		"group_id", groupID,
		"amount", group.EqubAmount.String(),
		"method", group.SelectionMethod,
		"deadline_days", group.PaymentDeadlineDays,
		"grace_days", group.GracePeriodDays,
	)
	return group, nil
}
