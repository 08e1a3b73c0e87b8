// Package notify provides Notification Sink implementations.
// Every sink is fire-and-forget from the engine's point of view: callers log
// failures and never roll anything back because of them.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Sink receives one message for one member of a group.
type Sink interface {
	Notify(ctx context.Context, memberID, groupID, message string) error
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

// Notify logs the message at info level.
func (s LogSink) Notify(ctx context.Context, memberID, groupID, message string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Notification",
		"member_id", memberID,
		"group_id", groupID,
		"message", message,
	)
	return nil
}

// Fanout delivers to every sink and joins their errors.
type Fanout []Sink

// Notify calls each sink in order, even if an earlier one fails.
func (f Fanout) Notify(ctx context.Context, memberID, groupID, message string) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Notify(ctx, memberID, groupID, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
