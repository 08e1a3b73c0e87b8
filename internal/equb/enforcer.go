package equb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/equb/internal/metrics"
	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/storage"
)

// SweepReport summarizes one deadline sweep.
type SweepReport struct {
	// Scanned is the number of active rounds inspected.
	Scanned int
	// Overdue is the number of incomplete rounds past deadline plus grace.
	Overdue int
	// Penalized is the number of contributions newly flagged late.
	Penalized int
	// Failed is the number of rounds whose enforcement errored.
	Failed int
}

// Enforcer flags late contributions and applies penalties. It never changes a
// round's status.
type Enforcer struct {
	rounds        storage.RoundStore
	contributions storage.ContributionStore
	tracker       *Tracker
	notifier      Notifier
	metrics       *metrics.Metrics
	notifyTimeout time.Duration
}

// EnforcerOption configures an Enforcer.
type EnforcerOption func(*Enforcer)

// WithEnforcerNotifier sets the sink for late-payment notices.
func WithEnforcerNotifier(n Notifier) EnforcerOption {
	return func(e *Enforcer) { e.notifier = n }
}

// WithEnforcerMetrics sets the metrics the enforcer updates.
func WithEnforcerMetrics(mt *metrics.Metrics) EnforcerOption {
	return func(e *Enforcer) { e.metrics = mt }
}

// NewEnforcer creates an Enforcer over the given stores.
func NewEnforcer(rounds storage.RoundStore, contributions storage.ContributionStore, opts ...EnforcerOption) *Enforcer {
	e := &Enforcer{
		rounds:        rounds,
		contributions: contributions,
		tracker:       NewTracker(contributions),
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.New(prometheus.NewRegistry())
	}
	return e
}

// Sweep enforces deadlines as of now. A failure on one round is logged and
// counted; the sweep carries on with the others. The returned error is only
// for failures that prevent the sweep from running at all.
func (e *Enforcer) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	start := time.Now()
	defer func() {
		e.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	var report SweepReport

	rounds, err := e.rounds.ListActiveRounds(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list active rounds: %w", err)
	}

	for _, round := range rounds {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		if !now.After(round.LateAfter()) {
			e.metrics.SweepRounds.WithLabelValues("on_time").Inc()
			continue
		}

		penalized, overdue, err := e.enforceRound(ctx, round, now)
		report.Penalized += penalized
		if err != nil {
			report.Failed++
			e.metrics.SweepRounds.WithLabelValues("failed").Inc()
			slog.Error("Deadline enforcement failed",
				"group_id", round.GroupID,
				"round_number", round.RoundNumber,
				"error", err,
			)
			continue
		}
		if !overdue {
			e.metrics.SweepRounds.WithLabelValues("complete").Inc()
			continue
		}

		report.Overdue++
		e.metrics.SweepRounds.WithLabelValues("overdue").Inc()
	}

	slog.Info("Deadline sweep finished",
		"scanned", report.Scanned,
		"overdue", report.Overdue,
		"penalized", report.Penalized,
		"failed", report.Failed,
	)
	return report, nil
}

// enforceRound penalizes the round's pending contributions. overdue is false when
// the round turned out to be fully paid.
func (e *Enforcer) enforceRound(ctx context.Context, round *models.Round, now time.Time) (penalized int, overdue bool, err error) {
	complete, err := e.tracker.IsRoundComplete(ctx, round)
	if err != nil {
		return 0, false, err
	}
	if complete {
		return 0, false, nil
	}

	pending, err := e.contributions.ListPending(ctx, round.ID)
	if err != nil {
		return 0, true, fmt.Errorf("failed to list pending contributions: %w", err)
	}

	var errs []error
	for _, c := range pending {
		applied, err := e.contributions.ApplyPenalty(ctx, c.ID, round.PenaltyAmount, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("member %s: %w", c.MemberID, err))
			continue
		}
		if !applied {
			continue
		}

		penalized++
		e.metrics.PenaltiesApplied.Inc()
		slog.Info("Late contribution penalized",
			"group_id", round.GroupID,
			"round_number", round.RoundNumber,
			"member_id", c.MemberID,
			"penalty", round.PenaltyAmount.String(),
		)

		msg := fmt.Sprintf("Your payment for equb round %d is late.", round.RoundNumber)
		if round.PenaltyAmount.IsPositive() {
			msg = fmt.Sprintf("Your payment for equb round %d is late. A penalty of %s has been applied.",
				round.RoundNumber, round.PenaltyAmount.String())
		}
		emit(ctx, e.notifier, e.notifyTimeout, c.MemberID, round.GroupID, msg)
	}

	return penalized, true, errors.Join(errs...)
}

// Run sweeps once immediately and then on every tick of interval, using the wall
// clock, until ctx is cancelled. Each sweep is bounded by timeout.
func (e *Enforcer) Run(ctx context.Context, interval, timeout time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Deadline enforcer started", "interval", interval.String())

	for {
		sweepCtx, cancel := context.WithTimeout(ctx, timeout)
		if _, err := e.Sweep(sweepCtx, time.Now()); err != nil && ctx.Err() == nil {
			slog.Error("Deadline sweep failed", "error", err)
		}
		cancel()

		select {
		case <-ctx.Done():
			slog.Info("Deadline enforcer stopped")
			return nil
		case <-ticker.C:
		}
	}
}
