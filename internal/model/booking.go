package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPicked    Status = "picked"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPicked, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// OrderStatus tracks money for a booking independently of its lifecycle.
type OrderStatus string

const (
	OrderUnpaid   OrderStatus = "unpaid"
	OrderPaid     OrderStatus = "paid"
	OrderRefunded OrderStatus = "refunded"
)

// PaymentMethod is how the customer settles the booking.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// ParsePaymentMethod normalizes a client supplied method.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentCOD:
		return PaymentCOD, true
	case PaymentOnline:
		return PaymentOnline, true
	}
	return "", false
}

// GeoPoint is an optional customer location.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Customer is the snapshot of the customer taken when the booking is
// created. It is never refreshed from the user record.
type Customer struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Address  string    `json:"address"`
	Location *GeoPoint `json:"location,omitempty"`
}

// Booking is one customer order for salon services.
//
// Fields:
//
//	ID             – storage identifier (uuid).
//	Code           – human readable sequence id, e.g. tind-001.
//	UserID         – owning account; nil for legacy rows keyed by email only.
//	Items          – immutable after creation.
//	TotalAmount    – whole currency units, as priced in the catalog.
//	PaymentOrderID – gateway order that paid for the booking, if any.
//	AssignedTo     – partner id; claimed at most once, admins may reassign.
type Booking struct {
	ID             string        `json:"id"`
	Code           string        `json:"booking_id"`
	UserID         *string       `json:"user_id"`
	Customer       Customer      `json:"customer"`
	Items          []LineItem    `json:"items"`
	TotalAmount    int64         `json:"total_amount"`
	Currency       string        `json:"currency"`
	ScheduledDate  string        `json:"selected_date"`
	ScheduledTime  string        `json:"selected_time"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	PaymentOrderID *string       `json:"payment_order_id,omitempty"`
	OrderStatus    OrderStatus   `json:"order_status"`
	Status         Status        `json:"status"`
	AssignedTo     *string       `json:"assigned_to"`
	CancelReason   *string       `json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// OwnedBy reports whether the principal owns b. Legacy bookings without a
// user id match on the snapshot email instead.
func (b *Booking) OwnedBy(userID, email string) bool {
	if b.UserID != nil {
		return *b.UserID == userID
	}
	return email != "" && strings.EqualFold(strings.TrimSpace(b.Customer.Email), strings.TrimSpace(email))
}

// IsAssignedTo reports whether partnerID currently holds the booking.
func (b *Booking) IsAssignedTo(partnerID string) bool {
	return b.AssignedTo != nil && *b.AssignedTo == partnerID
}

// Sequence names used with the counters table.
const (
	SequenceBooking = "booking"
	SequencePartner = "partner"
)

// MinorPerMajor converts catalog and booking amounts to the gateway's
// minor units (rupees to paise).
const MinorPerMajor = 100

// ToMinor converts a whole-unit amount to minor units.
func ToMinor(amount int64) int64 { return amount * MinorPerMajor }

// BookingCode formats the n-th booking sequence id.
func BookingCode(n int64) string { return fmt.Sprintf("tind-%03d", n) }

// PartnerCode formats the n-th partner code handed out at approval.
func PartnerCode(n int64) string { return fmt.Sprintf("tdpartner-%03d", n) }
