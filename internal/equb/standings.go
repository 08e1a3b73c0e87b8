package equb

import (
	"context"
	"fmt"

	"github.com/mmynk/equb/internal/calculator"
	"github.com/mmynk/equb/internal/models"
)

// GetMemberStandings reports what each member has paid, owes and received across
// all of the group's rounds.
func (m *Manager) GetMemberStandings(ctx context.Context, groupID, requester string) ([]calculator.MemberStanding, error) {
	rounds, err := m.GetRoundHistory(ctx, groupID, requester)
	if err != nil {
		return nil, err
	}

	views := make([]calculator.RoundForStanding, 0, len(rounds))
	for _, round := range rounds {
		contributions, err := m.contributions.ListContributions(ctx, round.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load contributions of round %d: %w", round.RoundNumber, err)
		}

		view := calculator.RoundForStanding{
			RoundNumber:   round.RoundNumber,
			Contributions: make([]calculator.ContributionForStanding, 0, len(contributions)),
		}
		if round.Status == models.RoundCompleted {
			view.WinnerID = round.WinnerID
			view.Payout = round.TotalAmount
		}
		for _, c := range contributions {
			if c.Status == models.ContributionCancelled {
				continue
			}
			view.Contributions = append(view.Contributions, calculator.ContributionForStanding{
				MemberID: c.MemberID,
				Amount:   c.Amount,
				Paid:     c.Status == models.ContributionCompleted,
				Late:     c.Late,
				Penalty:  c.PenaltyAmount,
			})
		}
		views = append(views, view)
	}

	return calculator.CalculateStandings(views), nil
}
