package model

import "time"

// PaymentStatus is the gateway order state. created moves to exactly one
// of paid or failed and never changes again.
type PaymentStatus string

const (
	PaymentCreated PaymentStatus = "created"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment tracks one gateway order and the booking it produced. Amount is
// in the gateway's minor units.
type Payment struct {
	ID        string        `json:"id"`
	OrderID   string        `json:"order_id"`
	Receipt   string        `json:"receipt"`
	PaymentID *string       `json:"payment_id,omitempty"`
	Signature *string       `json:"-"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	Status    PaymentStatus `json:"status"`
	BookingID *string       `json:"booking_id,omitempty"`
	UserID    *string       `json:"user_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
