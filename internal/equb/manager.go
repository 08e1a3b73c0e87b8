// Package equb implements the round lifecycle engine: starting rounds, tracking
// contributions, drawing winners and enforcing payment deadlines.
package equb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/mmynk/equb/internal/metrics"
	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/selection"
	"github.com/mmynk/equb/internal/storage"
)

const (
	DefaultGracePeriodDays     = 7
	DefaultPaymentDeadlineDays = 15
	DefaultNotifyTimeout       = 5 * time.Second
)

// Manager orchestrates the round lifecycle of every group.
// It owns the invariant that a group has at most one ACTIVE round.
type Manager struct {
	groups        storage.GroupStore
	rounds        storage.RoundStore
	contributions storage.ContributionStore

	tracker       *Tracker
	selector      *selection.Selector
	notifier      Notifier
	metrics       *metrics.Metrics
	locks         *groupLocks
	now           func() time.Time
	notifyTimeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRandomSource sets the lottery's random source.
func WithRandomSource(src selection.Source) Option {
	return func(m *Manager) { m.selector = selection.NewSelector(src) }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithMetrics sets the metrics the manager updates.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithNotifyTimeout bounds each notification call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Manager) { m.notifyTimeout = d }
}

// NewManager creates a Manager over store.
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		groups:        store,
		rounds:        store,
		contributions: store,
		tracker:       NewTracker(store),
		locks:         newGroupLocks(),
		now:           time.Now,
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.selector == nil {
		m.selector = selection.NewSelector(selection.NewSource())
	}
	if m.metrics == nil {
		m.metrics = metrics.New(prometheus.NewRegistry())
	}
	return m
}

// Tracker returns the contribution tracker used by the manager.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

func (m *Manager) clock() time.Time {
	return m.now().UTC().Truncate(time.Second)
}

func (m *Manager) loadGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := m.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, translate(err, "group "+groupID)
	}
	return group, nil
}

// StartNewRound opens the next round of a group, creating one PENDING
// contribution per ACTIVE member. Only admins may start rounds.
func (m *Manager) StartNewRound(ctx context.Context, groupID, requester string) (*models.Round, error) {
	unlock := m.locks.lock(groupID)
	defer unlock()

	group, err := m.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := m.authorize(ctx, groupID, requester, "start equb rounds", isGroupAdmin); err != nil {
		return nil, err
	}
	if !group.IsEqubConfigured() {
		return nil, fmt.Errorf("%w: group %s is not configured for equb", ErrInvalidState, groupID)
	}

	active, err := m.rounds.GetActiveRound(ctx, groupID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: round %d is still active", ErrInvalidState, active.RoundNumber)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check active round: %w", err)
	}

	members, err := m.groups.GetEligibleMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible members: %w", err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: group %s has no active members", ErrInvalidState, groupID)
	}

	now := m.clock()
	nextRoundNumber := group.CurrentRoundNumber + 1

	round := &models.Round{
		ID:              uuid.New().String(),
		GroupID:         groupID,
		RoundNumber:     nextRoundNumber,
		Status:          models.RoundActive,
		ExpectedAmount:  group.EqubAmount.Mul(decimal.NewFromInt(int64(len(members)))),
		TotalAmount:     decimal.Zero,
		MemberCount:     len(members),
		StartDate:       now,
		PaymentDeadline: now.AddDate(0, 0, group.PaymentDeadlineDays),
		GracePeriodDays: group.GracePeriodDays,
		PenaltyAmount:   group.PenaltyAmount,
		CreatedAt:       now,
	}

	contributions := make([]*models.Contribution, len(members))
	for i, member := range members {
		contributions[i] = &models.Contribution{
			ID:            uuid.New().String(),
			RoundID:       round.ID,
			GroupID:       groupID,
			MemberID:      member.MemberID,
			Position:      i,
			Amount:        group.EqubAmount,
			Status:        models.ContributionPending,
			TransactionID: newTransactionID(),
			PenaltyAmount: decimal.Zero,
			CreatedAt:     now,
		}
	}

	group.CurrentRoundNumber = nextRoundNumber

	if err := m.rounds.CreateRound(ctx, round, contributions, group); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			m.metrics.Conflicts.WithLabelValues("start_round").Inc()
		}
		return nil, translate(err, "create round")
	}

	m.metrics.RoundsStarted.Inc()
	slog.Info("Started equb round",
		"group_id", groupID,
		"round_number", round.RoundNumber,
		"members_count", round.MemberCount,
		"expected_amount", round.ExpectedAmount.String(),
	)

	msg := fmt.Sprintf("New equb payment request for round %d. Amount: %s", round.RoundNumber, group.EqubAmount.String())
	for _, c := range contributions {
		emit(ctx, m.notifier, m.notifyTimeout, c.MemberID, groupID, msg)
	}

	return round, nil
}

// SelectWinner draws the winner of the group's active round. Every eligible
// member must have paid. Completeness is counted inside the group's critical
// section and the write is guarded by the round version, so a lost race returns
// ErrConcurrencyConflict instead of drawing again.
func (m *Manager) SelectWinner(ctx context.Context, groupID, requester string) (*models.Round, error) {
	unlock := m.locks.lock(groupID)
	defer unlock()

	group, err := m.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := m.authorize(ctx, groupID, requester, "select equb winners", isGroupAdmin); err != nil {
		return nil, err
	}

	round, err := m.rounds.GetActiveRound(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, m.noActiveRound(ctx, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active round: %w", err)
	}

	progress, err := m.tracker.Progress(ctx, round)
	if err != nil {
		return nil, err
	}
	if !progress.Complete() {
		return nil, fmt.Errorf("%w: not all members have paid round %d (%s)", ErrInvalidState, round.RoundNumber, progress)
	}

	contributions, err := m.contributions.ListContributions(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible set: %w", err)
	}
	candidates := make([]string, len(contributions))
	for i, c := range contributions {
		candidates[i] = c.MemberID
	}

	idx, err := m.selector.Select(group.SelectionMethod, round.RoundNumber, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	winner := candidates[idx]

	now := m.clock()
	round.WinnerID = winner
	round.WinnerSelectedAt = now
	round.TotalAmount = round.ExpectedAmount
	round.Status = models.RoundCompleted

	group.CurrentWinnerID = winner
	group.LastDrawAt = now

	if err := m.rounds.SaveRound(ctx, round, group); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			m.metrics.Conflicts.WithLabelValues("select_winner").Inc()
		}
		return nil, translate(err, "save round")
	}

	m.metrics.WinnersSelected.WithLabelValues(string(group.SelectionMethod)).Inc()
	slog.Info("Selected equb winner",
		"group_id", groupID,
		"round_number", round.RoundNumber,
		"winner_id", winner,
		"method", group.SelectionMethod,
	)

	emit(ctx, m.notifier, m.notifyTimeout, winner, groupID,
		fmt.Sprintf("Congratulations! You have won equb round %d (%s)", round.RoundNumber, round.TotalAmount.String()))

	return round, nil
}

// noActiveRound distinguishes a repeated draw on an already completed round from a
// group that never had a round at all.
func (m *Manager) noActiveRound(ctx context.Context, groupID string) error {
	rounds, err := m.rounds.ListRounds(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list rounds: %w", err)
	}
	if len(rounds) > 0 && rounds[0].Status == models.RoundCompleted {
		return fmt.Errorf("%w: winner already selected for round %d", ErrInvalidState, rounds[0].RoundNumber)
	}
	return fmt.Errorf("%w: no active equb round for group %s", ErrNotFound, groupID)
}

// GetCurrentRound returns the group's ACTIVE round, or nil if there is none.
func (m *Manager) GetCurrentRound(ctx context.Context, groupID, requester string) (*models.Round, error) {
	if _, err := m.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := m.authorize(ctx, groupID, requester, "view rounds", isGroupMember); err != nil {
		return nil, err
	}

	round, err := m.rounds.GetActiveRound(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active round: %w", err)
	}
	return round, nil
}

// GetRoundHistory returns the group's rounds, newest round number first.
func (m *Manager) GetRoundHistory(ctx context.Context, groupID, requester string) ([]*models.Round, error) {
	if _, err := m.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := m.authorize(ctx, groupID, requester, "view rounds", isGroupMember); err != nil {
		return nil, err
	}

	rounds, err := m.rounds.ListRounds(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

// GetRoundProgress reports how many members have paid the active round.
func (m *Manager) GetRoundProgress(ctx context.Context, groupID, requester string) (Progress, error) {
	if _, err := m.loadGroup(ctx, groupID); err != nil {
		return Progress{}, err
	}
	if _, err := m.authorize(ctx, groupID, requester, "view rounds", isGroupMember); err != nil {
		return Progress{}, err
	}

	round, err := m.rounds.GetActiveRound(ctx, groupID)
	if err != nil {
		return Progress{}, translate(err, "active round")
	}
	return m.tracker.Progress(ctx, round)
}

// newTransactionID returns a 12 character opaque payment reference.
func newTransactionID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
