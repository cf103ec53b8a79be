package repository

import (
	"context"
	"database/sql"

	"github.com/tintd/salon-dispatch/internal/model"
)

// NotificationRepo stores the partner inbox.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts one notification.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, partner_id, booking_id, text, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.PartnerID, n.BookingID, n.Text, n.Read, n.CreatedAt)
	return err
}

// ListForPartner returns a partner's notifications, newest first.
func (r *NotificationRepo) ListForPartner(ctx context.Context, partnerID string) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, partner_id, booking_id, text, is_read, created_at FROM notifications
WHERE partner_id = ? ORDER BY created_at DESC`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.PartnerID, &n.BookingID, &n.Text, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead sets the read flag on a notification owned by partnerID. It
// reports false when no such notification exists for the partner.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, partnerID string) (bool, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = ? AND partner_id = ?`, id, partnerID))
}
