package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tintd/salon-dispatch/internal/model"
)

// PaymentRepo tracks gateway orders. A row leaves created exactly once.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, order_id, receipt, payment_id, signature, amount, currency, status, booking_id, user_id, created_at, updated_at`

func scanPayment(row rowScanner) (*model.Payment, error) {
	var (
		p                                  model.Payment
		paymentID, sig, bookingID, userID sql.NullString
	)
	if err := row.Scan(&p.ID, &p.OrderID, &p.Receipt, &paymentID, &sig, &p.Amount, &p.Currency, &p.Status,
		&bookingID, &userID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.PaymentID = nullString(paymentID)
	p.Signature = nullString(sig)
	p.BookingID = nullString(bookingID)
	p.UserID = nullString(userID)
	return &p, nil
}

// Create inserts a new payment row.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.Receipt, p.PaymentID, p.Signature, p.Amount, p.Currency, p.Status,
		p.BookingID, p.UserID, p.CreatedAt, p.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicateCode
	}
	return err
}

// GetByOrder fetches a payment by gateway order id.
func (r *PaymentRepo) GetByOrder(ctx context.Context, orderID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = ? LIMIT 1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// MarkPaid moves a created payment to paid.
func (r *PaymentRepo) MarkPaid(ctx context.Context, orderID, paymentID, signature string, at time.Time) (bool, error) {
	return r.settle(ctx, model.PaymentPaid, orderID, paymentID, signature, at)
}

// MarkFailed moves a created payment to failed.
func (r *PaymentRepo) MarkFailed(ctx context.Context, orderID, paymentID, signature string, at time.Time) (bool, error) {
	return r.settle(ctx, model.PaymentFailed, orderID, paymentID, signature, at)
}

func (r *PaymentRepo) settle(ctx context.Context, to model.PaymentStatus, orderID, paymentID, signature string, at time.Time) (bool, error) {
	const q = `UPDATE payments SET status = ?, payment_id = ?, signature = ?, updated_at = ?
WHERE order_id = ? AND status = 'created'`
	return affected(r.db.ExecContext(ctx, q, to, paymentID, signature, at, orderID))
}

// LinkBooking records the booking produced by a paid order.
func (r *PaymentRepo) LinkBooking(ctx context.Context, orderID, bookingID string, at time.Time) error {
	ok, err := affected(r.db.ExecContext(ctx,
		`UPDATE payments SET booking_id = ?, updated_at = ? WHERE order_id = ?`, bookingID, at, orderID))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ListByBookings returns payments keyed by booking id for the given ids.
func (r *PaymentRepo) ListByBookings(ctx context.Context, bookingIDs []string) (map[string]model.Payment, error) {
	out := make(map[string]model.Payment, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id IN (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out[*p.BookingID] = *p
	}
	return out, rows.Err()
}
