package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

type groupScoped interface {
	GetGroupId() string
}

type contributionScoped interface {
	GetContributionId() string
}

// LoggingInterceptor returns a Connect interceptor that logs one line per RPC
// with the caller, the group or contribution it touched, and the outcome.
// Rejections a client can act on (lost draw races, unpaid rounds, bad input,
// denied access) log at Warn; anything else that fails logs at Error.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()

			resp, err := next(ctx, req)

			attrs := []slog.Attr{
				slog.String("procedure", req.Spec().Procedure),
				slog.String("member_id", GetMemberID(ctx)),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if role := GetRole(ctx); role != "" {
				attrs = append(attrs, slog.String("role", string(role)))
			}
			switch msg := req.Any().(type) {
			case groupScoped:
				attrs = append(attrs, slog.String("group_id", msg.GetGroupId()))
			case contributionScoped:
				attrs = append(attrs, slog.String("contribution_id", msg.GetContributionId()))
			}

			if err == nil {
				logger.LogAttrs(ctx, slog.LevelInfo, "RPC ok", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, slog.String("code", code.String()))
			var connectErr *connect.Error
			if errors.As(err, &connectErr) {
				attrs = append(attrs, slog.String("error", connectErr.Message()))
			} else {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.LogAttrs(ctx, levelFor(code), "RPC failed", attrs...)

			return resp, err
		}
	}
}

// levelFor separates expected rejections from server faults.
func levelFor(code connect.Code) slog.Level {
	switch code {
	case connect.CodeAborted,
		connect.CodeFailedPrecondition,
		connect.CodeInvalidArgument,
		connect.CodeNotFound,
		connect.CodePermissionDenied,
		connect.CodeUnauthenticated,
		connect.CodeCanceled:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
