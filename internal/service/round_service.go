package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/equb/internal/auth"
	"github.com/mmynk/equb/internal/equb"
	"github.com/mmynk/equb/internal/middleware"
	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/pkg/equbapi"
	"github.com/mmynk/equb/pkg/equbapi/equbapiconnect"
)

var (
	errMissingGroupID  = errors.New("group_id is required")
	errMemberRequired  = errors.New("this call needs a member token")
	errGatewayRequired = errors.New("only the payment gateway can confirm payments")
)

// RoundService implements the Connect RoundService on top of the round manager.
type RoundService struct {
	equbapiconnect.UnimplementedRoundServiceHandler
	manager *equb.Manager
}

// NewRoundService creates a new RoundService.
func NewRoundService(manager *equb.Manager) *RoundService {
	return &RoundService{manager: manager}
}

// StartRound opens the next round of a group.
func (s *RoundService) StartRound(ctx context.Context, req *connect.Request[equbapi.StartRoundRequest]) (*connect.Response[equbapi.StartRoundResponse], error) {
	requester, err := memberFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("StartRound request received", "group_id", req.Msg.GroupId, "member_id", requester)

	if req.Msg.GroupId == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingGroupID)
	}

	round, err := s.manager.StartNewRound(ctx, req.Msg.GroupId, requester)
	if err != nil {
		slog.Error("StartRound failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&equbapi.StartRoundResponse{Round: roundToAPI(round)}), nil
}

// SelectWinner draws the winner of the group's active round.
func (s *RoundService) SelectWinner(ctx context.Context, req *connect.Request[equbapi.SelectWinnerRequest]) (*connect.Response[equbapi.SelectWinnerResponse], error) {
	requester, err := memberFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("SelectWinner request received", "group_id", req.Msg.GroupId, "member_id", requester)

	if req.Msg.GroupId == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingGroupID)
	}

	round, err := s.manager.SelectWinner(ctx, req.Msg.GroupId, requester)
	if err != nil {
		slog.Error("SelectWinner failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&equbapi.SelectWinnerResponse{Round: roundToAPI(round)}), nil
}

// GetCurrentRound returns the active round, or no round if there is none.
func (s *RoundService) GetCurrentRound(ctx context.Context, req *connect.Request[equbapi.GetCurrentRoundRequest]) (*connect.Response[equbapi.GetCurrentRoundResponse], error) {
	requester, err := memberFrom(ctx)
	if err != nil {
		return nil, err
	}

	if req.Msg.GroupId == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingGroupID)
	}

	round, err := s.manager.GetCurrentRound(ctx, req.Msg.GroupId, requester)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &equbapi.GetCurrentRoundResponse{}
	if round != nil {
		resp.Round = roundToAPI(round)
	}
	return connect.NewResponse(resp), nil
}

// ListRounds returns the group's round history, newest first.
func (s *RoundService) ListRounds(ctx context.Context, req *connect.Request[equbapi.ListRoundsRequest]) (*connect.Response[equbapi.ListRoundsResponse], error) {
	requester, err := memberFrom(ctx)
	if err != nil {
		return nil, err
	}

	if req.Msg.GroupId == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingGroupID)
	}

	rounds, err := s.manager.GetRoundHistory(ctx, req.Msg.GroupId, requester)
	if err != nil {
		return nil, toConnectError(err)
	}

	apiRounds := make([]*equbapi.Round, len(rounds))
	for i, round := range rounds {
		apiRounds[i] = roundToAPI(round)
	}

	slog.Info("ListRounds successful", "group_id", req.Msg.GroupId, "count", len(rounds))
	return connect.NewResponse(&equbapi.ListRoundsResponse{Rounds: apiRounds}), nil
}

// GetProgress reports payment progress of the active round.
func (s *RoundService) GetProgress(ctx context.Context, req *connect.Request[equbapi.GetProgressRequest]) (*connect.Response[equbapi.GetProgressResponse], error) {
	requester, err := memberFrom(ctx)
	if err != nil {
		return nil, err
	}

	if req.Msg.GroupId == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingGroupID)
	}

	progress, err := s.manager.GetRoundProgress(ctx, req.Msg.GroupId, requester)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&equbapi.GetProgressResponse{Progress: progressToAPI(progress)}), nil
}

// ConfigureEqub applies equb settings to a group.
func (s *RoundService) ConfigureEqub(ctx context.Context, req *connect.Request[equbapi.ConfigureEqubRequest]) (*connect.Response[equbapi.ConfigureEqubResponse], error) {
	requester, err := memberFrom(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ConfigureEqub request received",
		"group_id", req.Msg.GroupId,
		"member_id", requester,
		"amount", req.Msg.Amount.String(),
		"method", req.Msg.SelectionMethod,
	)

	if req.Msg.GroupId == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingGroupID)
	}

	group, err := s.manager.ConfigureEqub(ctx, req.Msg.GroupId, requester, equb.EqubConfig{
		Amount:              req.Msg.Amount,
		SelectionMethod:     models.SelectionMethod(req.Msg.SelectionMethod),
		GracePeriodDays:     req.Msg.GracePeriodDays,
		PaymentDeadlineDays: req.Msg.PaymentDeadlineDays,
		PenaltyAmount:       req.Msg.PenaltyAmount,
	})
	if err != nil {
		slog.Error("ConfigureEqub failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&equbapi.ConfigureEqubResponse{Group: groupToAPI(group)}), nil
}

// ConfirmPayment records a payment completion signal for one contribution.
func (s *RoundService) ConfirmPayment(ctx context.Context, req *connect.Request[equbapi.ConfirmPaymentRequest]) (*connect.Response[equbapi.ConfirmPaymentResponse], error) {
	slog.Info("ConfirmPayment request received",
		"contribution_id", req.Msg.ContributionId,
		"caller", middleware.GetMemberID(ctx),
		"role", middleware.GetRole(ctx),
	)

	if middleware.GetRole(ctx) != auth.RolePaymentGateway {
		return nil, connect.NewError(connect.CodePermissionDenied, errGatewayRequired)
	}

	if req.Msg.ContributionId == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("contribution_id is required"))
	}

	progress, err := s.manager.ConfirmPayment(ctx, req.Msg.ContributionId, req.Msg.TransactionId)
	if err != nil {
		slog.Error("ConfirmPayment failed", "contribution_id", req.Msg.ContributionId, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&equbapi.ConfirmPaymentResponse{Progress: progressToAPI(progress)}), nil
}

// GetStandings reports each member's money position across the group's rounds.
func (s *RoundService) GetStandings(ctx context.Context, req *connect.Request[equbapi.GetStandingsRequest]) (*connect.Response[equbapi.GetStandingsResponse], error) {
	requester, err := memberFrom(ctx)
	if err != nil {
		return nil, err
	}

	if req.Msg.GroupId == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingGroupID)
	}

	standings, err := s.manager.GetMemberStandings(ctx, req.Msg.GroupId, requester)
	if err != nil {
		return nil, toConnectError(err)
	}

	apiStandings := make([]*equbapi.MemberStanding, len(standings))
	for i, st := range standings {
		apiStandings[i] = &equbapi.MemberStanding{
			MemberId:     st.MemberID,
			Contributed:  st.Contributed,
			Outstanding:  st.Outstanding,
			Penalties:    st.Penalties,
			Received:     st.Received,
			Owed:         st.Owed(),
			Net:          st.Net,
			RoundsWon:    st.RoundsWon,
			LatePayments: st.LatePayments,
		}
	}

	return connect.NewResponse(&equbapi.GetStandingsResponse{Standings: apiStandings}), nil
}

// memberFrom returns the member the request acts for. Gateway tokens never act
// for a member.
func memberFrom(ctx context.Context) (string, error) {
	if middleware.GetRole(ctx) != auth.RoleMember {
		return "", connect.NewError(connect.CodePermissionDenied, errMemberRequired)
	}
	return middleware.GetMemberID(ctx), nil
}

// toConnectError maps engine error kinds onto connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, equb.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, equb.ErrUnauthorized):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, equb.ErrInvalidConfig):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, equb.ErrInvalidState):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, equb.ErrConcurrencyConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func roundToAPI(r *models.Round) *equbapi.Round {
	out := &equbapi.Round{
		Id:              r.ID,
		GroupId:         r.GroupID,
		RoundNumber:     r.RoundNumber,
		Status:          string(r.Status),
		ExpectedAmount:  r.ExpectedAmount,
		TotalAmount:     r.TotalAmount,
		WinnerId:        r.WinnerID,
		MemberCount:     r.MemberCount,
		StartDate:       r.StartDate,
		PaymentDeadline: r.PaymentDeadline,
		GracePeriodDays: r.GracePeriodDays,
		PenaltyAmount:   r.PenaltyAmount,
	}
	if !r.WinnerSelectedAt.IsZero() {
		at := r.WinnerSelectedAt
		out.WinnerSelectedAt = &at
	}
	return out
}

func groupToAPI(g *models.Group) *equbapi.Group {
	return &equbapi.Group{
		Id:                  g.ID,
		Name:                g.Name,
		EqubAmount:          g.EqubAmount,
		SelectionMethod:     string(g.SelectionMethod),
		GracePeriodDays:     g.GracePeriodDays,
		PaymentDeadlineDays: g.PaymentDeadlineDays,
		PenaltyAmount:       g.PenaltyAmount,
		CurrentRoundNumber:  g.CurrentRoundNumber,
		CurrentWinnerId:     g.CurrentWinnerID,
	}
}

func progressToAPI(p equb.Progress) *equbapi.Progress {
	return &equbapi.Progress{
		RoundId:     p.RoundID,
		RoundNumber: p.RoundNumber,
		Paid:        p.Paid,
		Total:       p.Total,
		Complete:    p.Complete(),
	}
}
