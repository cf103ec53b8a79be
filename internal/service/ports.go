package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/repository"
)

// Logger is the subset of the gommon logger used by services.
type Logger interface {
	Infoj(j log.JSON)
	Warnj(j log.JSON)
	Errorj(j log.JSON)
}

// BookingStore is the durable booking collection. Claim and Apply must be
// single conditional writes; they report false when the guard did not match.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id string) (*model.Booking, error)
	GetByPaymentOrder(ctx context.Context, orderID string) (*model.Booking, error)
	Claim(ctx context.Context, id, partnerID string, at time.Time) (bool, error)
	Assign(ctx context.Context, id, partnerID string, at time.Time) (bool, error)
	Apply(ctx context.Context, id string, t repository.Transition) (bool, error)
	ListForUser(ctx context.Context, userID, email string) ([]model.Booking, error)
	ListForPartner(ctx context.Context, partnerID string) ([]model.Booking, error)
	ListAvailable(ctx context.Context) ([]model.Booking, error)
	ListAll(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
}

// PartnerDirectory owns partner records and the duty flag.
type PartnerDirectory interface {
	Create(ctx context.Context, p *model.Partner) error
	Get(ctx context.Context, id string) (*model.Partner, error)
	ListOnDuty(ctx context.Context) ([]model.Partner, error)
	SetDuty(ctx context.Context, id string, on bool) error
	SetPushToken(ctx context.Context, id string, token *string) error
	SetApproval(ctx context.Context, id string, a model.Approval, code *string) error
}

// NotificationStore persists fan-out records.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForPartner(ctx context.Context, partnerID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, partnerID string) (bool, error)
}

// PaymentStore persists gateway orders. MarkPaid and MarkFailed only move
// rows that are still created.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByOrder(ctx context.Context, orderID string) (*model.Payment, error)
	MarkPaid(ctx context.Context, orderID, paymentID, signature string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderID, paymentID, signature string, at time.Time) (bool, error)
	LinkBooking(ctx context.Context, orderID, bookingID string, at time.Time) error
	ListByBookings(ctx context.Context, bookingIDs []string) (map[string]model.Payment, error)
}

// Sequencer hands out strictly increasing numbers per name.
type Sequencer = repository.Sequencer

// Catalog resolves line item references to priced entries.
type Catalog interface {
	Lookup(ctx context.Context, keys []model.CatalogKey) (map[model.CatalogKey]model.CatalogEntry, error)
}

// OrderHandle is what the gateway returns for a new order.
type OrderHandle struct {
	OrderID  string
	Receipt  string
	Amount   int64
	Currency string
}

// Gateway is the third-party payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (OrderHandle, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// PushJob asks for one best-effort push to one partner device.
type PushJob struct {
	PartnerID string `json:"partner_id"`
	BookingID string `json:"booking_id"`
	Token     string `json:"token"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// PushQueue accepts push jobs without waiting for delivery.
type PushQueue interface {
	Enqueue(ctx context.Context, job PushJob) error
}
