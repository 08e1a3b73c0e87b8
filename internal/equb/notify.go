package equb

import (
	"context"
	"log/slog"
	"time"
)

// Notifier is the narrow notification interface the engine consumes.
type Notifier interface {
	Notify(ctx context.Context, memberID, groupID, message string) error
}

// emit sends one best-effort notification. It runs after the state change has
// committed, detached from the caller's cancellation and bounded by timeout.
// Failures are logged and never returned.
func emit(ctx context.Context, n Notifier, timeout time.Duration, memberID, groupID, message string) {
	if n == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := n.Notify(ctx, memberID, groupID, message); err != nil {
		slog.Warn("Notification failed",
			"member_id", memberID,
			"group_id", groupID,
			"error", err,
		)
	}
}
