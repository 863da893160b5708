package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

// Append inserts a notification. Rows start unsent.
func (db *DB) Append(ctx context.Context, n *model.Notification) error {
	n.ID = xid.New().String()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, message, sent, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, n.Sent, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: inserting notification for user %s: %w", n.UserID, err)
	}
	return nil
}

// ListByUser returns all of a user's notifications in insertion order.
// xid ids are time-ordered, so ordering by id preserves insertion order
// even when timestamps collide.
func (db *DB) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, message, sent, created_at
		 FROM notifications WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications for user %s: %w", userID, err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Sent, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications for user %s: %w", userID, err)
	}
	return notifications, nil
}

// MarkAllSent flips the sent flag on everything the user has.
func (db *DB) MarkAllSent(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET sent = 1 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("sqlite: marking notifications sent for user %s: %w", userID, err)
	}
	return nil
}

// DeleteAllByUser irreversibly removes all of a user's notifications.
func (db *DB) DeleteAllByUser(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting notifications for user %s: %w", userID, err)
	}
	return nil
}
