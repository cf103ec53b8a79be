package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/repository"
)

// VerifyInput is the signed checkout result plus the booking to create.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	Draft     BookingDraft
}

// PaymentService creates gateway orders and turns verified payments into
// confirmed bookings.
type PaymentService struct {
	payments PaymentStore
	gateway  Gateway
	bookings *BookingService
	currency string
	logger   Logger
	now      func() time.Time
}

func NewPaymentService(payments PaymentStore, gateway Gateway, bookings *BookingService, currency string, logger Logger) *PaymentService {
	return &PaymentService{
		payments: payments,
		gateway:  gateway,
		bookings: bookings,
		currency: currency,
		logger:   logger,
		now:      bookings.now,
	}
}

// CreateOrder opens a gateway order for amount whole currency units and
// records it as created.
func (s *PaymentService) CreateOrder(ctx context.Context, p Principal, amount int64, currency string) (*model.Payment, error) {
	if amount <= 0 {
		return nil, newErr(KindValidation, "amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.currency
	}
	if len(currency) != 3 {
		return nil, newErr(KindValidation, "currency must be a 3 letter code")
	}

	now := s.now()
	receipt := fmt.Sprintf("rcpt_%d", now.UnixMilli())
	h, err := s.gateway.CreateOrder(ctx, model.ToMinor(amount), currency, receipt)
	if err != nil {
		s.logger.Errorj(log.JSON{"event": "payment.order_failed", "user_id": p.ID, "error": err.Error()})
		return nil, wrapErr(KindGatewayUnavailable, "payment gateway unavailable", err)
	}
	uid := p.ID
	pay := &model.Payment{
		ID:        uuid.NewString(),
		OrderID:   h.OrderID,
		Receipt:   h.Receipt,
		Amount:    h.Amount,
		Currency:  h.Currency,
		Status:    model.PaymentCreated,
		UserID:    &uid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.payments.Create(ctx, pay); err != nil {
		return nil, internal("record payment order", err)
	}
	s.logger.Infoj(log.JSON{"event": "payment.order_created", "order_id": pay.OrderID, "amount": pay.Amount, "user_id": p.ID})
	return pay, nil
}

// Verify checks the checkout signature and, when valid, creates or returns
// the booking for the order. Replaying a successful verification returns
// the same booking. The bool is true only when this call created it.
func (s *PaymentService) Verify(ctx context.Context, p Principal, in VerifyInput) (*model.Booking, bool, error) {
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	in.Signature = strings.TrimSpace(in.Signature)
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, false, newErr(KindValidation, "order_id, payment_id and signature are required")
	}

	pay, err := s.payments.GetByOrder(ctx, in.OrderID)
	if err != nil {
		return nil, false, storeErr(err, "payment order")
	}
	if pay.UserID != nil && *pay.UserID != p.ID && !p.IsAdmin() {
		return nil, false, newErr(KindForbidden, "payment order belongs to another user")
	}

	if !s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		if pay.Status == model.PaymentCreated {
			if _, err := s.payments.MarkFailed(ctx, in.OrderID, in.PaymentID, in.Signature, s.now()); err != nil {
				s.logger.Errorj(log.JSON{"event": "payment.mark_failed_error", "order_id": in.OrderID, "error": err.Error()})
			}
		}
		s.logger.Warnj(log.JSON{"event": "payment.signature_invalid", "order_id": in.OrderID, "user_id": p.ID})
		return nil, false, newErr(KindSignatureInvalid, "payment signature does not match")
	}
	if pay.Status == model.PaymentFailed {
		return nil, false, newErr(KindConflict, "payment order already failed verification, start a new checkout")
	}

	if pay.Status == model.PaymentPaid {
		// Redelivered verification: the draft may be absent or stale by now.
		existing, err := s.bookings.bookings.GetByPaymentOrder(ctx, in.OrderID)
		switch {
		case err == nil:
			return existing, false, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, false, internal("load booking for payment", err)
		}
	}

	in.Draft.PaymentMethod = string(model.PaymentOnline)
	if _, _, err := s.bookings.validateDraft(ctx, in.Draft); err != nil {
		return nil, false, err
	}
	if model.ToMinor(in.Draft.TotalAmount) != pay.Amount {
		return nil, false, newErr(KindValidation, "booking total does not match payment amount")
	}

	if pay.Status == model.PaymentCreated {
		ok, err := s.payments.MarkPaid(ctx, in.OrderID, in.PaymentID, in.Signature, s.now())
		if err != nil {
			return nil, false, internal("mark payment paid", err)
		}
		if !ok {
			// Another verification settled the row first.
			if pay, err = s.payments.GetByOrder(ctx, in.OrderID); err != nil {
				return nil, false, storeErr(err, "payment order")
			}
			if pay.Status != model.PaymentPaid {
				return nil, false, newErr(KindConflict, "payment order already failed verification, start a new checkout")
			}
		} else {
			pay.Status = model.PaymentPaid
			s.logger.Infoj(log.JSON{"event": "payment.verified", "order_id": in.OrderID, "payment_id": in.PaymentID})
		}
	}
	return s.bookings.createPaid(ctx, p, in.Draft, pay)
}
