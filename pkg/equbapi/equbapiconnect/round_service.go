// Package equbapiconnect binds the equb RoundService to connect.
package equbapiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/equb/pkg/equbapi"
)

// RoundServiceName is the fully-qualified name of the RoundService service.
const RoundServiceName = "equb.v1.RoundService"

// Procedure paths of the RoundService RPCs.
const (
	RoundServiceStartRoundProcedure      = "/equb.v1.RoundService/StartRound"
	RoundServiceSelectWinnerProcedure    = "/equb.v1.RoundService/SelectWinner"
	RoundServiceGetCurrentRoundProcedure = "/equb.v1.RoundService/GetCurrentRound"
	RoundServiceListRoundsProcedure      = "/equb.v1.RoundService/ListRounds"
	RoundServiceGetProgressProcedure     = "/equb.v1.RoundService/GetProgress"
	RoundServiceConfigureEqubProcedure   = "/equb.v1.RoundService/ConfigureEqub"
	RoundServiceConfirmPaymentProcedure  = "/equb.v1.RoundService/ConfirmPayment"
	RoundServiceGetStandingsProcedure    = "/equb.v1.RoundService/GetStandings"
)

// RoundServiceHandler is implemented by the server side of the RoundService.
type RoundServiceHandler interface {
	StartRound(context.Context, *connect.Request[equbapi.StartRoundRequest]) (*connect.Response[equbapi.StartRoundResponse], error)
	SelectWinner(context.Context, *connect.Request[equbapi.SelectWinnerRequest]) (*connect.Response[equbapi.SelectWinnerResponse], error)
	GetCurrentRound(context.Context, *connect.Request[equbapi.GetCurrentRoundRequest]) (*connect.Response[equbapi.GetCurrentRoundResponse], error)
	ListRounds(context.Context, *connect.Request[equbapi.ListRoundsRequest]) (*connect.Response[equbapi.ListRoundsResponse], error)
	GetProgress(context.Context, *connect.Request[equbapi.GetProgressRequest]) (*connect.Response[equbapi.GetProgressResponse], error)
	ConfigureEqub(context.Context, *connect.Request[equbapi.ConfigureEqubRequest]) (*connect.Response[equbapi.ConfigureEqubResponse], error)
	ConfirmPayment(context.Context, *connect.Request[equbapi.ConfirmPaymentRequest]) (*connect.Response[equbapi.ConfirmPaymentResponse], error)
	GetStandings(context.Context, *connect.Request[equbapi.GetStandingsRequest]) (*connect.Response[equbapi.GetStandingsResponse], error)
}

// NewRoundServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewRoundServiceHandler(svc RoundServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	startRound := connect.NewUnaryHandler(RoundServiceStartRoundProcedure, svc.StartRound, opts...)
	selectWinner := connect.NewUnaryHandler(RoundServiceSelectWinnerProcedure, svc.SelectWinner, opts...)
	getCurrentRound := connect.NewUnaryHandler(RoundServiceGetCurrentRoundProcedure, svc.GetCurrentRound, opts...)
	listRounds := connect.NewUnaryHandler(RoundServiceListRoundsProcedure, svc.ListRounds, opts...)
	getProgress := connect.NewUnaryHandler(RoundServiceGetProgressProcedure, svc.GetProgress, opts...)
	configureEqub := connect.NewUnaryHandler(RoundServiceConfigureEqubProcedure, svc.ConfigureEqub, opts...)
	confirmPayment := connect.NewUnaryHandler(RoundServiceConfirmPaymentProcedure, svc.ConfirmPayment, opts...)
	getStandings := connect.NewUnaryHandler(RoundServiceGetStandingsProcedure, svc.GetStandings, opts...)

	return "/" + RoundServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RoundServiceStartRoundProcedure:
			startRound.ServeHTTP(w, r)
		case RoundServiceSelectWinnerProcedure:
			selectWinner.ServeHTTP(w, r)
		case RoundServiceGetCurrentRoundProcedure:
			getCurrentRound.ServeHTTP(w, r)
		case RoundServiceListRoundsProcedure:
			listRounds.ServeHTTP(w, r)
		case RoundServiceGetProgressProcedure:
			getProgress.ServeHTTP(w, r)
		case RoundServiceConfigureEqubProcedure:
			configureEqub.ServeHTTP(w, r)
		case RoundServiceConfirmPaymentProcedure:
			confirmPayment.ServeHTTP(w, r)
		case RoundServiceGetStandingsProcedure:
			getStandings.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// RoundServiceClient is a client for the RoundService.
type RoundServiceClient interface {
	StartRound(context.Context, *connect.Request[equbapi.StartRoundRequest]) (*connect.Response[equbapi.StartRoundResponse], error)
	SelectWinner(context.Context, *connect.Request[equbapi.SelectWinnerRequest]) (*connect.Response[equbapi.SelectWinnerResponse], error)
	GetCurrentRound(context.Context, *connect.Request[equbapi.GetCurrentRoundRequest]) (*connect.Response[equbapi.GetCurrentRoundResponse], error)
	ListRounds(context.Context, *connect.Request[equbapi.ListRoundsRequest]) (*connect.Response[equbapi.ListRoundsResponse], error)
	GetProgress(context.Context, *connect.Request[equbapi.GetProgressRequest]) (*connect.Response[equbapi.GetProgressResponse], error)
	ConfigureEqub(context.Context, *connect.Request[equbapi.ConfigureEqubRequest]) (*connect.Response[equbapi.ConfigureEqubResponse], error)
	ConfirmPayment(context.Context, *connect.Request[equbapi.ConfirmPaymentRequest]) (*connect.Response[equbapi.ConfirmPaymentResponse], error)
	GetStandings(context.Context, *connect.Request[equbapi.GetStandingsRequest]) (*connect.Response[equbapi.GetStandingsResponse], error)
}

// NewRoundServiceClient constructs a client for the RoundService at baseURL
// (for example, http://localhost:8080).
func NewRoundServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) RoundServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)

	return &roundServiceClient{
		startRound: connect.NewClient[equbapi.StartRoundRequest, equbapi.StartRoundResponse](
			httpClient, baseURL+RoundServiceStartRoundProcedure, opts...),
		selectWinner: connect.NewClient[equbapi.SelectWinnerRequest, equbapi.SelectWinnerResponse](
			httpClient, baseURL+RoundServiceSelectWinnerProcedure, opts...),
		getCurrentRound: connect.NewClient[equbapi.GetCurrentRoundRequest, equbapi.GetCurrentRoundResponse](
			httpClient, baseURL+RoundServiceGetCurrentRoundProcedure, opts...),
		listRounds: connect.NewClient[equbapi.ListRoundsRequest, equbapi.ListRoundsResponse](
			httpClient, baseURL+RoundServiceListRoundsProcedure, opts...),
		getProgress: connect.NewClient[equbapi.GetProgressRequest, equbapi.GetProgressResponse](
			httpClient, baseURL+RoundServiceGetProgressProcedure, opts...),
		configureEqub: connect.NewClient[equbapi.ConfigureEqubRequest, equbapi.ConfigureEqubResponse](
			httpClient, baseURL+RoundServiceConfigureEqubProcedure, opts...),
		confirmPayment: connect.NewClient[equbapi.ConfirmPaymentRequest, equbapi.ConfirmPaymentResponse](
			httpClient, baseURL+RoundServiceConfirmPaymentProcedure, opts...),
		getStandings: connect.NewClient[equbapi.GetStandingsRequest, equbapi.GetStandingsResponse](
			httpClient, baseURL+RoundServiceGetStandingsProcedure, opts...),
	}
}

type roundServiceClient struct {
	startRound      *connect.Client[equbapi.StartRoundRequest, equbapi.StartRoundResponse]
	selectWinner    *connect.Client[equbapi.SelectWinnerRequest, equbapi.SelectWinnerResponse]
	getCurrentRound *connect.Client[equbapi.GetCurrentRoundRequest, equbapi.GetCurrentRoundResponse]
	listRounds      *connect.Client[equbapi.ListRoundsRequest, equbapi.ListRoundsResponse]
	getProgress     *connect.Client[equbapi.GetProgressRequest, equbapi.GetProgressResponse]
	configureEqub   *connect.Client[equbapi.ConfigureEqubRequest, equbapi.ConfigureEqubResponse]
	confirmPayment  *connect.Client[equbapi.ConfirmPaymentRequest, equbapi.ConfirmPaymentResponse]
	getStandings    *connect.Client[equbapi.GetStandingsRequest, equbapi.GetStandingsResponse]
}

func (c *roundServiceClient) StartRound(ctx context.Context, req *connect.Request[equbapi.StartRoundRequest]) (*connect.Response[equbapi.StartRoundResponse], error) {
	return c.startRound.CallUnary(ctx, req)
}

func (c *roundServiceClient) SelectWinner(ctx context.Context, req *connect.Request[equbapi.SelectWinnerRequest]) (*connect.Response[equbapi.SelectWinnerResponse], error) {
	return c.selectWinner.CallUnary(ctx, req)
}

func (c *roundServiceClient) GetCurrentRound(ctx context.Context, req *connect.Request[equbapi.GetCurrentRoundRequest]) (*connect.Response[equbapi.GetCurrentRoundResponse], error) {
	return c.getCurrentRound.CallUnary(ctx, req)
}

func (c *roundServiceClient) ListRounds(ctx context.Context, req *connect.Request[equbapi.ListRoundsRequest]) (*connect.Response[equbapi.ListRoundsResponse], error) {
	return c.listRounds.CallUnary(ctx, req)
}

func (c *roundServiceClient) GetProgress(ctx context.Context, req *connect.Request[equbapi.GetProgressRequest]) (*connect.Response[equbapi.GetProgressResponse], error) {
	return c.getProgress.CallUnary(ctx, req)
}

func (c *roundServiceClient) ConfigureEqub(ctx context.Context, req *connect.Request[equbapi.ConfigureEqubRequest]) (*connect.Response[equbapi.ConfigureEqubResponse], error) {
	return c.configureEqub.CallUnary(ctx, req)
}

func (c *roundServiceClient) ConfirmPayment(ctx context.Context, req *connect.Request[equbapi.ConfirmPaymentRequest]) (*connect.Response[equbapi.ConfirmPaymentResponse], error) {
	return c.confirmPayment.CallUnary(ctx, req)
}

func (c *roundServiceClient) GetStandings(ctx context.Context, req *connect.Request[equbapi.GetStandingsRequest]) (*connect.Response[equbapi.GetStandingsResponse], error) {
	return c.getStandings.CallUnary(ctx, req)
}

// UnimplementedRoundServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedRoundServiceHandler struct{}

func errUnimplemented(procedure string) error {
	return connect.NewError(connect.CodeUnimplemented, errors.New(procedure+" is not implemented"))
}

func (UnimplementedRoundServiceHandler) StartRound(context.Context, *connect.Request[equbapi.StartRoundRequest]) (*connect.Response[equbapi.StartRoundResponse], error) {
	return nil, errUnimplemented(RoundServiceStartRoundProcedure)
}

func (UnimplementedRoundServiceHandler) SelectWinner(context.Context, *connect.Request[equbapi.SelectWinnerRequest]) (*connect.Response[equbapi.SelectWinnerResponse], error) {
	return nil, errUnimplemented(RoundServiceSelectWinnerProcedure)
}

func (UnimplementedRoundServiceHandler) GetCurrentRound(context.Context, *connect.Request[equbapi.GetCurrentRoundRequest]) (*connect.Response[equbapi.GetCurrentRoundResponse], error) {
	return nil, errUnimplemented(RoundServiceGetCurrentRoundProcedure)
}

func (UnimplementedRoundServiceHandler) ListRounds(context.Context, *connect.Request[equbapi.ListRoundsRequest]) (*connect.Response[equbapi.ListRoundsResponse], error) {
	return nil, errUnimplemented(RoundServiceListRoundsProcedure)
}

func (UnimplementedRoundServiceHandler) GetProgress(context.Context, *connect.Request[equbapi.GetProgressRequest]) (*connect.Response[equbapi.GetProgressResponse], error) {
	return nil, errUnimplemented(RoundServiceGetProgressProcedure)
}

func (UnimplementedRoundServiceHandler) ConfigureEqub(context.Context, *connect.Request[equbapi.ConfigureEqubRequest]) (*connect.Response[equbapi.ConfigureEqubResponse], error) {
	return nil, errUnimplemented(RoundServiceConfigureEqubProcedure)
}

func (UnimplementedRoundServiceHandler) ConfirmPayment(context.Context, *connect.Request[equbapi.ConfirmPaymentRequest]) (*connect.Response[equbapi.ConfirmPaymentResponse], error) {
	return nil, errUnimplemented(RoundServiceConfirmPaymentProcedure)
}

func (UnimplementedRoundServiceHandler) GetStandings(context.Context, *connect.Request[equbapi.GetStandingsRequest]) (*connect.Response[equbapi.GetStandingsResponse], error) {
	return nil, errUnimplemented(RoundServiceGetStandingsProcedure)
}
