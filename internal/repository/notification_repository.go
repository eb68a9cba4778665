package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/QuitCoachAPI/internal/models"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	const query = `
INSERT INTO notifications (user_id, kind, message, created_at)
VALUES (?, ?, ?, ?)`
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, query, n.UserID, string(n.Kind), n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("notification last insert id: %w", err)
	}
	n.ID = id
	return nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	const query = `
SELECT id, user_id, kind, message, created_at, read_at
FROM notifications
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var kind string
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Message, &n.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read. It reports false when the
// notification does not belong to the user.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64, at time.Time) (bool, error) {
	const query = `UPDATE notifications SET read_at = ? WHERE id = ? AND user_id = ? AND read_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, at.UTC(), id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("notification rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return true, nil
}
