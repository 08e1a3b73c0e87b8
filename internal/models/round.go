package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundStatus is the lifecycle state of a round.
// ACTIVE is initial, COMPLETED is terminal.
type RoundStatus string

const (
	RoundActive    RoundStatus = "ACTIVE"
	RoundCompleted RoundStatus = "COMPLETED"
)

// Round is one contribution-and-payout cycle of a group.
type Round struct {
	// ID is the unique identifier for the round (UUID format).
	ID string

	// GroupID is the group this round belongs to.
	GroupID string

	// RoundNumber starts at 1 and is unique per group.
	RoundNumber int

	Status RoundStatus

	// ExpectedAmount is EqubAmount x MemberCount, frozen at round start.
	ExpectedAmount decimal.Decimal

	// TotalAmount is set to ExpectedAmount when the round completes.
	TotalAmount decimal.Decimal

	// WinnerID is set exactly once, when the round completes.
	WinnerID string

	// MemberCount is the size of the eligible member set frozen at round start.
	MemberCount int

	StartDate time.Time

	// PaymentDeadline is StartDate plus the group's PaymentDeadlineDays.
	// It doubles as the round's end date.
	PaymentDeadline time.Time

	// GracePeriodDays and PenaltyAmount are copied from the group at creation.
	GracePeriodDays int
	PenaltyAmount   decimal.Decimal

	// WinnerSelectedAt is zero until a winner is drawn.
	WinnerSelectedAt time.Time

	// Version is incremented on every successful save and guards concurrent writers.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EndDate returns the nominal end of the round.
func (r *Round) EndDate() time.Time {
	return r.PaymentDeadline
}

// LateAfter returns the instant after which pending contributions are penalized.
func (r *Round) LateAfter() time.Time {
	return r.PaymentDeadline.AddDate(0, 0, r.GracePeriodDays)
}

// IsActive reports whether the round still accepts a winner selection.
func (r *Round) IsActive() bool {
	return r.Status == RoundActive
}
