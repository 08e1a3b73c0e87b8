package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/equb/internal/models"
)

// Notify appends a message to the notification outbox.
// Delivery (email, SMS, push) reads from the outbox and is handled elsewhere.
func (s *SQLiteStore) Notify(ctx context.Context, memberID, groupID, message string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (id, member_id, group_id, message, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.New().String(), memberID, groupID, message, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a member's notifications, oldest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, memberID string) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, group_id, message, created_at FROM notifications
		 WHERE member_id = ? ORDER BY created_at, rowid`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.MemberID, &n.GroupID, &n.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.CreatedAt = fromUnix(createdAt)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}
