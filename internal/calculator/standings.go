// Package calculator aggregates per-member money positions across a group's rounds.
package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RoundForStanding represents a round with the minimal information needed for standings.
type RoundForStanding struct {
	RoundNumber   int
	WinnerID      string // empty while the round is active
	Payout        decimal.Decimal
	Contributions []ContributionForStanding
}

// ContributionForStanding is one member's obligation in a round.
type ContributionForStanding struct {
	MemberID string
	Amount   decimal.Decimal
	Paid     bool
	Late     bool
	Penalty  decimal.Decimal
}

// MemberStanding is one member's position across every round of a group.
type MemberStanding struct {
	MemberID     string
	Contributed  decimal.Decimal // paid contributions
	Outstanding  decimal.Decimal // unpaid contributions
	Penalties    decimal.Decimal // late penalties applied
	Received     decimal.Decimal // payouts won
	RoundsWon    []int
	LatePayments int

	// Net is Received - Contributed. Positive means the member has drawn
	// more from the pot than they have put in so far.
	Net decimal.Decimal
}

// Owed is what the member still has to pay: unpaid contributions plus penalties.
func (s MemberStanding) Owed() decimal.Decimal {
	return s.Outstanding.Add(s.Penalties)
}

// CalculateStandings computes standings for every member that appears in the
// rounds, sorted by member ID.
//
// Algorithm:
// - For each contribution: paid amounts count as contributed, unpaid as outstanding
// - A late flag counts against the member whether or not they paid later
// - For each completed round: the winner received the payout
// - Net = received - contributed
func CalculateStandings(rounds []RoundForStanding) []MemberStanding {
	standings := make(map[string]*MemberStanding)

	get := func(memberID string) *MemberStanding {
		s, ok := standings[memberID]
		if !ok {
			s = &MemberStanding{
				MemberID:    memberID,
				Contributed: decimal.Zero,
				Outstanding: decimal.Zero,
				Penalties:   decimal.Zero,
				Received:    decimal.Zero,
			}
			standings[memberID] = s
		}
		return s
	}

	for _, round := range rounds {
		for _, c := range round.Contributions {
			s := get(c.MemberID)
			if c.Paid {
				s.Contributed = s.Contributed.Add(c.Amount)
			} else {
				s.Outstanding = s.Outstanding.Add(c.Amount)
			}
			if c.Late {
				s.LatePayments++
				s.Penalties = s.Penalties.Add(c.Penalty)
			}
		}

		if round.WinnerID == "" {
			continue
		}
		s := get(round.WinnerID)
		s.Received = s.Received.Add(round.Payout)
		s.RoundsWon = append(s.RoundsWon, round.RoundNumber)
	}

	out := make([]MemberStanding, 0, len(standings))
	for _, s := range standings {
		s.Net = s.Received.Sub(s.Contributed)
		sort.Ints(s.RoundsWon)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}
