package storage

import (
	"context"

	"studiobook/internal/model"
	"studiobook/libs/db"
)

type NotificationRepository struct {
	pool *db.Pool
}

func NewNotificationRepository(pool *db.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Insert appends one notification record. The log is append-only and
// written regardless of push delivery outcome.
func (r *NotificationRepository) Insert(ctx context.Context, n model.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (recipient, title, category, body, image)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	`, n.Recipient, n.Title, n.Category, n.Body, n.Image)
	return err
}

// ListForRecipient returns the recipient's feed newest first. Broadcast
// records (recipient '*') are part of every feed.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipient string, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient, title, category, body, COALESCE(image, ''), created_at
		FROM notifications
		WHERE recipient IN ($1, '*')
		ORDER BY created_at DESC
		LIMIT $2
	`, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Title, &n.Category, &n.Body, &n.Image, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return notifications, nil
}
