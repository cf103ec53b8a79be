package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tintd/salon-dispatch/internal/model"
)

// maxCodeAttempts bounds retries when a generated booking code collides.
const maxCodeAttempts = 5

// Transition is a guarded status change applied in one conditional write.
// Empty guard fields are not checked.
type Transition struct {
	From         []model.Status
	To           model.Status
	Assignee     string // assigned_to must equal this partner
	RequirePaid  bool   // order_status must be paid
	SetPaid      bool   // set order_status = paid
	CancelReason *string
	At           time.Time
}

// BookingFilter narrows admin listings.
type BookingFilter struct {
	Status model.Status
}

// BookingRepo persists bookings in MySQL. All status changes go through
// Claim, Assign or Apply, each a single guarded UPDATE.
type BookingRepo struct {
	db  *sql.DB
	seq Sequencer
}

// NewBookingRepo returns a BookingRepo drawing codes from seq.
func NewBookingRepo(db *sql.DB, seq Sequencer) *BookingRepo {
	return &BookingRepo{db: db, seq: seq}
}

const bookingColumns = `id, code, user_id, customer_name, customer_email, customer_phone, customer_address,
customer_lat, customer_lng, items, total_amount, currency, selected_date, selected_time, payment_method,
payment_order_id, order_status, status, assigned_to, cancel_reason, cancelled_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b                                       model.Booking
		userID, orderID, assignee, cancelReason sql.NullString
		lat, lng                                sql.NullFloat64
		cancelledAt                             sql.NullTime
		items                                   []byte
	)
	err := row.Scan(&b.ID, &b.Code, &userID, &b.Customer.Name, &b.Customer.Email, &b.Customer.Phone,
		&b.Customer.Address, &lat, &lng, &items, &b.TotalAmount, &b.Currency, &b.ScheduledDate,
		&b.ScheduledTime, &b.PaymentMethod, &orderID, &b.OrderStatus, &b.Status, &assignee,
		&cancelReason, &cancelledAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &b.Items); err != nil {
		return nil, fmt.Errorf("booking %s items: %w", b.ID, err)
	}
	b.UserID = nullString(userID)
	b.PaymentOrderID = nullString(orderID)
	b.AssignedTo = nullString(assignee)
	b.CancelReason = nullString(cancelReason)
	if lat.Valid && lng.Valid {
		b.Customer.Location = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return &b, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Create assigns the next booking code and inserts b. A code collision
// draws a fresh number; a second booking for the same payment order
// returns ErrDuplicatePaymentOrder.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return err
	}
	var lat, lng sql.NullFloat64
	if loc := b.Customer.Location; loc != nil {
		lat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: loc.Lng, Valid: true}
	}
	const q = `INSERT INTO bookings (` + bookingColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		n, err := r.seq.Next(ctx, model.SequenceBooking)
		if err != nil {
			return fmt.Errorf("next booking sequence: %w", err)
		}
		b.Code = model.BookingCode(n)
		_, err = r.db.ExecContext(ctx, q,
			b.ID, b.Code, b.UserID, b.Customer.Name, b.Customer.Email, b.Customer.Phone, b.Customer.Address,
			lat, lng, items, b.TotalAmount, b.Currency, b.ScheduledDate, b.ScheduledTime, b.PaymentMethod,
			b.PaymentOrderID, b.OrderStatus, b.Status, b.AssignedTo, b.CancelReason, b.CancelledAt,
			b.CreatedAt, b.UpdatedAt)
		switch {
		case err == nil:
			return nil
		case duplicateOn(err, "uq_bookings_code"):
			continue
		case duplicateOn(err, "uq_bookings_payment_order"):
			return ErrDuplicatePaymentOrder
		default:
			return err
		}
	}
	return ErrDuplicateCode
}

// Get fetches one booking by storage id.
func (r *BookingRepo) Get(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetByPaymentOrder fetches the booking created for a gateway order.
func (r *BookingRepo) GetByPaymentOrder(ctx context.Context, orderID string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_order_id = ? LIMIT 1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// Claim assigns partnerID to a pending, unassigned booking and moves it to
// picked. It reports false when another claim won or the state moved on.
func (r *BookingRepo) Claim(ctx context.Context, id, partnerID string, at time.Time) (bool, error) {
	const q = `UPDATE bookings SET assigned_to = ?, status = 'picked', updated_at = ?
WHERE id = ? AND assigned_to IS NULL AND status = 'pending'`
	return affected(r.db.ExecContext(ctx, q, partnerID, at, id))
}

// Assign overwrites the assignee of a non-terminal booking.
func (r *BookingRepo) Assign(ctx context.Context, id, partnerID string, at time.Time) (bool, error) {
	const q = `UPDATE bookings SET assigned_to = ?, updated_at = ?
WHERE id = ? AND status IN ('pending', 'picked', 'confirmed')`
	return affected(r.db.ExecContext(ctx, q, partnerID, at, id))
}

// Apply performs a guarded status change. The guard is evaluated by the
// database in the same statement as the write.
func (r *BookingRepo) Apply(ctx context.Context, id string, t Transition) (bool, error) {
	q, args := applySQL(id, t)
	return affected(r.db.ExecContext(ctx, q, args...))
}

func applySQL(id string, t Transition) (string, []any) {
	var sb strings.Builder
	args := []any{t.To, t.At}
	sb.WriteString("UPDATE bookings SET status = ?, updated_at = ?")
	if t.SetPaid {
		sb.WriteString(", order_status = 'paid'")
	}
	if t.CancelReason != nil {
		sb.WriteString(", cancel_reason = ?, cancelled_at = ?")
		args = append(args, *t.CancelReason, t.At)
	}
	sb.WriteString(" WHERE id = ?")
	args = append(args, id)
	if len(t.From) > 0 {
		sb.WriteString(" AND status IN (" + placeholders(len(t.From)) + ")")
		for _, s := range t.From {
			args = append(args, s)
		}
	}
	if t.Assignee != "" {
		sb.WriteString(" AND assigned_to = ?")
		args = append(args, t.Assignee)
	}
	if t.RequirePaid {
		sb.WriteString(" AND order_status = 'paid'")
	}
	return sb.String(), args
}

// ListForUser returns bookings owned by userID plus legacy rows that carry
// no owner but match email.
// TODO: drop the email branch once legacy rows are backfilled with user_id.
func (r *BookingRepo) ListForUser(ctx context.Context, userID, email string) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings
WHERE user_id = ? OR (user_id IS NULL AND ? <> '' AND LOWER(customer_email) = LOWER(?))
ORDER BY created_at DESC`, userID, email, email)
}

// ListForPartner returns the partner's assigned bookings, newest first.
func (r *BookingRepo) ListForPartner(ctx context.Context, partnerID string) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE assigned_to = ? ORDER BY created_at DESC`, partnerID)
}

// ListAvailable returns pending, unassigned bookings, oldest first.
func (r *BookingRepo) ListAvailable(ctx context.Context) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings
WHERE status = 'pending' AND assigned_to IS NULL ORDER BY created_at ASC`)
}

// ListAll returns every booking, optionally filtered by status.
func (r *BookingRepo) ListAll(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	if f.Status != "" {
		return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = ? ORDER BY created_at DESC`, f.Status)
	}
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
