package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionStatus is the payment state of a contribution.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "PENDING"
	ContributionCompleted ContributionStatus = "COMPLETED"
	ContributionCancelled ContributionStatus = "CANCELLED"
)

// Contribution is one member's payment obligation for one round.
// The contributions of a round, ordered by Position, are the round's frozen eligible member set.
type Contribution struct {
	ID       string
	RoundID  string
	GroupID  string
	MemberID string

	// Position is the member's index in the join-ordered eligible set at round start.
	Position int

	// Amount equals the group's EqubAmount when the round was created.
	Amount decimal.Decimal

	Status ContributionStatus

	// TransactionID is an opaque external payment reference.
	TransactionID string

	PaidAt time.Time

	// Late is set by the deadline sweep together with PenaltyAmount and PenalizedAt.
	Late          bool
	PenaltyAmount decimal.Decimal
	PenalizedAt   time.Time

	CreatedAt time.Time
}

// Notification is a message queued for a member.
type Notification struct {
	ID        string
	MemberID  string
	GroupID   string
	Message   string
	CreatedAt time.Time
}
