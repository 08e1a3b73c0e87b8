package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SelectionMethod decides how a round's winner is picked.
type SelectionMethod string

const (
	// SelectionLottery picks a winner uniformly at random.
	SelectionLottery SelectionMethod = "LOTTERY"
	// SelectionFixedTurn rotates through members in join order.
	SelectionFixedTurn SelectionMethod = "FIXED_TURN"
)

// Valid reports whether m is a known selection method.
func (m SelectionMethod) Valid() bool {
	return m == SelectionLottery || m == SelectionFixedTurn
}

// Group is an equb group configuration together with its round bookkeeping.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group.
	Name string

	// EqubAmount is the per-member contribution for every round.
	EqubAmount decimal.Decimal

	// SelectionMethod is empty until the group is configured for equb.
	SelectionMethod SelectionMethod

	// GracePeriodDays is the extra time after the payment deadline before a
	// pending contribution is penalized.
	GracePeriodDays int

	// PaymentDeadlineDays is the number of days from round start to the deadline.
	PaymentDeadlineDays int

	// PenaltyAmount is charged once per late member per round. Zero means no penalty.
	PenaltyAmount decimal.Decimal

	// CurrentRoundNumber is the number of the most recently started round (0 before the first).
	CurrentRoundNumber int

	// CurrentWinnerID is the member who won the most recently completed round.
	CurrentWinnerID string

	// LastDrawAt is when the last winner was drawn. Zero if never.
	LastDrawAt time.Time

	// CreatedAt is when the group was created.
	CreatedAt time.Time
}

// IsEqubConfigured reports whether rounds can be started for the group.
func (g *Group) IsEqubConfigured() bool {
	return g.SelectionMethod.Valid() && g.EqubAmount.IsPositive() && g.PaymentDeadlineDays > 0
}

// MemberRole is a member's role inside a group.
type MemberRole string

const (
	RoleAdmin  MemberRole = "ADMIN"
	RoleMember MemberRole = "MEMBER"
)

// MemberStatus is the membership state of a member.
type MemberStatus string

const (
	MemberActive   MemberStatus = "ACTIVE"
	MemberPending  MemberStatus = "PENDING"
	MemberInactive MemberStatus = "INACTIVE"
)

// GroupMember links a member to a group.
// Join order (JoinedAt, then Seq) is the stable ordering used for fixed-turn rotation.
type GroupMember struct {
	GroupID  string
	MemberID string
	Role     MemberRole
	Status   MemberStatus
	JoinedAt time.Time

	// Seq is assigned by the store on insert and breaks ties between equal JoinedAt values.
	Seq int64
}
