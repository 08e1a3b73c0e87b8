// Package equbapi defines the messages of the equb RoundService.
// Messages travel as JSON; money values are decimal strings.
package equbapi

import (
	"time"

	"github.com/shopspring/decimal"
)

// Round is the wire form of an equb round.
type Round struct {
	Id               string          `json:"id"`
	GroupId          string          `json:"groupId"`
	RoundNumber      int             `json:"roundNumber"`
	Status           string          `json:"status"`
	ExpectedAmount   decimal.Decimal `json:"expectedAmount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	WinnerId         string          `json:"winnerId,omitempty"`
	MemberCount      int             `json:"memberCount"`
	StartDate        time.Time       `json:"startDate"`
	PaymentDeadline  time.Time       `json:"paymentDeadline"`
	GracePeriodDays  int             `json:"gracePeriodDays"`
	PenaltyAmount    decimal.Decimal `json:"penaltyAmount"`
	WinnerSelectedAt *time.Time      `json:"winnerSelectedAt,omitempty"`
}

// Group is the wire form of a group's equb settings.
type Group struct {
	Id                  string          `json:"id"`
	Name                string          `json:"name"`
	EqubAmount          decimal.Decimal `json:"equbAmount"`
	SelectionMethod     string          `json:"selectionMethod"`
	GracePeriodDays     int             `json:"gracePeriodDays"`
	PaymentDeadlineDays int             `json:"paymentDeadlineDays"`
	PenaltyAmount       decimal.Decimal `json:"penaltyAmount"`
	CurrentRoundNumber  int             `json:"currentRoundNumber"`
	CurrentWinnerId     string          `json:"currentWinnerId,omitempty"`
}

// Progress reports how many members have paid a round.
type Progress struct {
	RoundId     string `json:"roundId"`
	RoundNumber int    `json:"roundNumber"`
	Paid        int    `json:"paid"`
	Total       int    `json:"total"`
	Complete    bool   `json:"complete"`
}

type StartRoundRequest struct {
	GroupId string `json:"groupId"`
}

type StartRoundResponse struct {
	Round *Round `json:"round"`
}

type SelectWinnerRequest struct {
	GroupId string `json:"groupId"`
}

type SelectWinnerResponse struct {
	Round *Round `json:"round"`
}

type GetCurrentRoundRequest struct {
	GroupId string `json:"groupId"`
}

// GetCurrentRoundResponse has a nil Round when the group has no active round.
type GetCurrentRoundResponse struct {
	Round *Round `json:"round,omitempty"`
}

type ListRoundsRequest struct {
	GroupId string `json:"groupId"`
}

// ListRoundsResponse lists rounds newest first.
type ListRoundsResponse struct {
	Rounds []*Round `json:"rounds"`
}

type GetProgressRequest struct {
	GroupId string `json:"groupId"`
}

type GetProgressResponse struct {
	Progress *Progress `json:"progress"`
}

// ConfigureEqubRequest applies equb settings to a group. Omitted day counts
// take the server defaults.
type ConfigureEqubRequest struct {
	GroupId             string          `json:"groupId"`
	Amount              decimal.Decimal `json:"amount"`
	SelectionMethod     string          `json:"selectionMethod"`
	GracePeriodDays     *int            `json:"gracePeriodDays,omitempty"`
	PaymentDeadlineDays *int            `json:"paymentDeadlineDays,omitempty"`
	PenaltyAmount       decimal.Decimal `json:"penaltyAmount"`
}

type ConfigureEqubResponse struct {
	Group *Group `json:"group"`
}

type ConfirmPaymentRequest struct {
	ContributionId string `json:"contributionId"`
	TransactionId  string `json:"transactionId,omitempty"`
}

type ConfirmPaymentResponse struct {
	Progress *Progress `json:"progress"`
}

// MemberStanding is one member's money position across a group's rounds.
type MemberStanding struct {
	MemberId     string          `json:"memberId"`
	Contributed  decimal.Decimal `json:"contributed"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	Penalties    decimal.Decimal `json:"penalties"`
	Received     decimal.Decimal `json:"received"`
	Owed         decimal.Decimal `json:"owed"`
	Net          decimal.Decimal `json:"net"`
	RoundsWon    []int           `json:"roundsWon,omitempty"`
	LatePayments int             `json:"latePayments"`
}

type GetStandingsRequest struct {
	GroupId string `json:"groupId"`
}

// GetStandingsResponse lists standings sorted by member id.
type GetStandingsResponse struct {
	Standings []*MemberStanding `json:"standings"`
}

// GetGroupId returns the group the request targets. Safe on nil.
func (r *StartRoundRequest) GetGroupId() string {
	if r == nil {
		return ""
	}
	return r.GroupId
}

func (r *SelectWinnerRequest) GetGroupId() string {
	if r == nil {
		return ""
	}
	return r.GroupId
}

func (r *GetCurrentRoundRequest) GetGroupId() string {
	if r == nil {
		return ""
	}
	return r.GroupId
}

func (r *ListRoundsRequest) GetGroupId() string {
	if r == nil {
		return ""
	}
	return r.GroupId
}

func (r *GetProgressRequest) GetGroupId() string {
	if r == nil {
		return ""
	}
	return r.GroupId
}

func (r *ConfigureEqubRequest) GetGroupId() string {
	if r == nil {
		return ""
	}
	return r.GroupId
}

func (r *GetStandingsRequest) GetGroupId() string {
	if r == nil {
		return ""
	}
	return r.GroupId
}

func (r *ConfirmPaymentRequest) GetContributionId() string {
	if r == nil {
		return ""
	}
	return r.ContributionId
}
