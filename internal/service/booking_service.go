package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/repository"
)

const (
	minCancelReason = 3
	maxCancelReason = 500
)

// dateLayout is the only accepted selected_date format.
const dateLayout = "2006-01-02"

// fieldLimit caps a draft string at the width of its bookings column.
type fieldLimit struct {
	name  string
	value string
	max   int
}

// BookingDraft is the client supplied part of a new booking.
type BookingDraft struct {
	Customer       model.Customer
	Items          []model.LineItem
	TotalAmount    int64
	Currency       string
	ScheduledDate  string
	ScheduledTime  string
	PaymentMethod  string
	PaymentOrderID string
}

// AdminUpdate is an admin change to a booking. Nil fields are untouched.
type AdminUpdate struct {
	Status     *model.Status
	AssignedTo *string
}

// BookingService owns the booking lifecycle: creation, partner claims and
// every status transition.
type BookingService struct {
	bookings BookingStore
	partners PartnerDirectory
	payments PaymentStore
	catalog  Catalog
	notifier *Notifier
	logger   Logger
	currency string
	now      func() time.Time
	spawn    func(func())
	inflight sync.WaitGroup
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option { return func(s *BookingService) { s.now = now } }

// WithSyncSideEffects runs notifications before the triggering call returns.
func WithSyncSideEffects() Option { return func(s *BookingService) { s.spawn = func(f func()) { f() } } }

// WithCurrency sets the currency stored when a draft omits one.
func WithCurrency(c string) Option { return func(s *BookingService) { s.currency = c } }

func NewBookingService(bookings BookingStore, partners PartnerDirectory, payments PaymentStore, catalog Catalog,
	notifier *Notifier, logger Logger, opts ...Option) *BookingService {
	s := &BookingService{
		bookings: bookings,
		partners: partners,
		payments: payments,
		catalog:  catalog,
		notifier: notifier,
		logger:   logger,
		currency: "INR",
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.spawn = func(f func()) {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			f()
		}()
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Drain waits for notifications started by earlier calls. It returns the
// context error when ctx ends first.
func (s *BookingService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create stores a new booking. Cash bookings start pending and are fanned
// out to on-duty partners. Online bookings must reference an order that is
// already paid; they start confirmed and are not fanned out. The bool is
// false when an existing booking for the same order is returned.
func (s *BookingService) Create(ctx context.Context, p Principal, d BookingDraft) (*model.Booking, bool, error) {
	method, catalogTotal, err := s.validateDraft(ctx, d)
	if err != nil {
		return nil, false, err
	}
	if method == model.PaymentOnline {
		orderID := strings.TrimSpace(d.PaymentOrderID)
		if orderID == "" {
			return nil, false, newErr(KindValidation, "payment_order_id is required for online payment")
		}
		pay, err := s.payments.GetByOrder(ctx, orderID)
		if err != nil {
			return nil, false, storeErr(err, "payment order")
		}
		if pay.UserID != nil && *pay.UserID != p.ID {
			return nil, false, newErr(KindForbidden, "payment order belongs to another user")
		}
		if pay.Status != model.PaymentPaid {
			return nil, false, newErr(KindPaymentNotComplete, "payment order is not paid")
		}
		if model.ToMinor(d.TotalAmount) != pay.Amount {
			return nil, false, newErr(KindValidation, "booking total does not match payment amount")
		}
		return s.createPaid(ctx, p, d, pay)
	}

	if catalogTotal != d.TotalAmount {
		s.logger.Warnj(log.JSON{
			"event":         "booking.total_mismatch",
			"user_id":       p.ID,
			"client_total":  d.TotalAmount,
			"catalog_total": catalogTotal,
		})
	}
	now := s.now()
	b := s.newBooking(p, d, now)
	b.PaymentMethod = model.PaymentCOD
	b.Status = model.StatusPending
	b.OrderStatus = model.OrderUnpaid
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, false, internal("create booking", err)
	}
	s.logger.Infoj(log.JSON{"event": "booking.created", "booking_id": b.ID, "code": b.Code, "status": b.Status})

	snapshot := *b
	bg := context.WithoutCancel(ctx)
	s.spawn(func() { s.notifier.FanOut(bg, &snapshot) })
	return b, true, nil
}

// createPaid creates the confirmed booking for a paid order, or returns the
// one already created for it.
func (s *BookingService) createPaid(ctx context.Context, p Principal, d BookingDraft, pay *model.Payment) (*model.Booking, bool, error) {
	if existing, err := s.bookings.GetByPaymentOrder(ctx, pay.OrderID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, internal("load booking for payment", err)
	}

	now := s.now()
	b := s.newBooking(p, d, now)
	orderID := pay.OrderID
	b.PaymentMethod = model.PaymentOnline
	b.PaymentOrderID = &orderID
	b.Status = model.StatusConfirmed
	b.OrderStatus = model.OrderPaid
	if pay.Currency != "" {
		b.Currency = pay.Currency
	}

	created := true
	if err := s.bookings.Create(ctx, b); err != nil {
		if !errors.Is(err, repository.ErrDuplicatePaymentOrder) {
			return nil, false, internal("create booking", err)
		}
		existing, gerr := s.bookings.GetByPaymentOrder(ctx, orderID)
		if gerr != nil {
			return nil, false, internal("load booking for payment", gerr)
		}
		b, created = existing, false
	}
	if err := s.payments.LinkBooking(ctx, orderID, b.ID, now); err != nil {
		s.logger.Errorj(log.JSON{"event": "payment.link_failed", "order_id": orderID, "booking_id": b.ID, "error": err.Error()})
	}
	if created {
		s.logger.Infoj(log.JSON{"event": "booking.created", "booking_id": b.ID, "code": b.Code, "status": b.Status, "order_id": orderID})
	}
	return b, created, nil
}

func (s *BookingService) newBooking(p Principal, d BookingDraft, now time.Time) *model.Booking {
	var owner *string
	if p.ID != "" {
		id := p.ID
		owner = &id
	}
	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = s.currency
	}
	c := d.Customer
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	return &model.Booking{
		ID:            uuid.NewString(),
		UserID:        owner,
		Customer:      c,
		Items:         append([]model.LineItem(nil), d.Items...),
		TotalAmount:   d.TotalAmount,
		Currency:      currency,
		ScheduledDate: strings.TrimSpace(d.ScheduledDate),
		ScheduledTime: strings.TrimSpace(d.ScheduledTime),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// validateDraft checks required fields and resolves every line item. It
// returns the parsed payment method and the catalog total.
func (s *BookingService) validateDraft(ctx context.Context, d BookingDraft) (model.PaymentMethod, int64, error) {
	var missing []string
	if strings.TrimSpace(d.Customer.Name) == "" {
		missing = append(missing, "customer.name")
	}
	if strings.TrimSpace(d.Customer.Email) == "" {
		missing = append(missing, "customer.email")
	}
	if strings.TrimSpace(d.Customer.Phone) == "" {
		missing = append(missing, "customer.phone")
	}
	if strings.TrimSpace(d.Customer.Address) == "" {
		missing = append(missing, "customer.address")
	}
	if strings.TrimSpace(d.ScheduledDate) == "" {
		missing = append(missing, "selected_date")
	}
	if strings.TrimSpace(d.ScheduledTime) == "" {
		missing = append(missing, "selected_time")
	}
	if len(d.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return "", 0, newErr(KindValidation, "missing fields: "+strings.Join(missing, ", "))
	}
	for _, f := range []fieldLimit{
		{"customer.name", d.Customer.Name, 255},
		{"customer.email", d.Customer.Email, 255},
		{"customer.phone", d.Customer.Phone, 32},
		{"customer.address", d.Customer.Address, 512},
		{"selected_time", d.ScheduledTime, 16},
		{"payment_order_id", d.PaymentOrderID, 64},
	} {
		if utf8.RuneCountInString(strings.TrimSpace(f.value)) > f.max {
			return "", 0, newErr(KindValidation, fmt.Sprintf("%s must be at most %d characters", f.name, f.max))
		}
	}
	if _, err := time.Parse(dateLayout, strings.TrimSpace(d.ScheduledDate)); err != nil {
		return "", 0, newErr(KindValidation, "selected_date must be YYYY-MM-DD")
	}
	if c := strings.TrimSpace(d.Currency); c != "" && len(c) != 3 {
		return "", 0, newErr(KindValidation, "currency must be a 3 letter code")
	}
	method, ok := model.ParsePaymentMethod(d.PaymentMethod)
	if !ok {
		return "", 0, newErr(KindValidation, "payment_method must be cod or online")
	}
	if d.TotalAmount <= 0 {
		return "", 0, newErr(KindValidation, "total_amount must be positive")
	}

	keys := make([]model.CatalogKey, 0, len(d.Items))
	for _, it := range d.Items {
		if err := it.Validate(); err != nil {
			return "", 0, wrapErr(KindValidation, err.Error(), err)
		}
		keys = append(keys, it.Key())
	}
	entries, err := s.catalog.Lookup(ctx, keys)
	if err != nil {
		return "", 0, internal("catalog lookup", err)
	}
	total, err := model.CatalogTotal(d.Items, entries)
	if err != nil {
		return "", 0, wrapErr(KindValidation, err.Error(), err)
	}
	return method, total, nil
}

// Claim assigns a pending, unassigned booking to the calling partner. When
// two partners race, exactly one wins; the others get a conflict.
func (s *BookingService) Claim(ctx context.Context, p Principal, id string) (*model.Booking, error) {
	ok, err := s.bookings.Claim(ctx, id, p.ID, s.now())
	if err != nil {
		return nil, internal("claim booking", err)
	}
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "booking")
	}
	if !ok {
		if b.AssignedTo != nil {
			return nil, newErr(KindConflict, "booking already claimed")
		}
		return nil, newErr(KindInvalidTransition, fmt.Sprintf("cannot claim a %s booking", b.Status))
	}
	s.logger.Infoj(log.JSON{"event": "booking.claimed", "booking_id": b.ID, "partner_id": p.ID})
	s.notifyAsync(ctx, p.ID, b, "Booking assigned", fmt.Sprintf("You picked booking %s", b.Code))
	return b, nil
}

// Confirm moves a picked booking (or a pending one an admin assigned to the
// caller) to confirmed.
func (s *BookingService) Confirm(ctx context.Context, p Principal, id string) (*model.Booking, error) {
	return s.transition(ctx, p, id, model.EventConfirm, nil)
}

// MarkPaid records cash collection on a confirmed booking.
func (s *BookingService) MarkPaid(ctx context.Context, p Principal, id string) (*model.Booking, error) {
	return s.transition(ctx, p, id, model.EventMarkPaid, nil)
}

// Complete finishes a confirmed, paid booking.
func (s *BookingService) Complete(ctx context.Context, p Principal, id string) (*model.Booking, error) {
	return s.transition(ctx, p, id, model.EventComplete, nil)
}

// Reject lets the assigned partner drop a booking.
func (s *BookingService) Reject(ctx context.Context, p Principal, id string) (*model.Booking, error) {
	return s.transition(ctx, p, id, model.EventReject, nil)
}

// Cancel lets the owner cancel a booking that has not finished.
func (s *BookingService) Cancel(ctx context.Context, p Principal, id, reason string) (*model.Booking, error) {
	return s.transition(ctx, p, id, model.EventCancel, &reason)
}

// transition is the single path for status changes after creation. The
// guards checked here are repeated in the store write so a concurrent
// change turns into a conflict instead of a lost update.
func (s *BookingService) transition(ctx context.Context, p Principal, id string, ev model.Event, reason *string) (*model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "booking")
	}
	to, err := model.Next(b.Status, ev)
	if err != nil {
		return nil, wrapErr(KindInvalidTransition, fmt.Sprintf("cannot %s a %s booking", ev, b.Status), err)
	}

	t := repository.Transition{From: []model.Status{b.Status}, To: to, At: s.now()}
	switch ev {
	case model.EventConfirm:
		if err := requireAssignee(p, b); err != nil {
			return nil, err
		}
		t.Assignee = *b.AssignedTo
		t.SetPaid = b.PaymentMethod != model.PaymentCOD
	case model.EventMarkPaid:
		if err := requireAssignee(p, b); err != nil {
			return nil, err
		}
		if b.OrderStatus == model.OrderPaid {
			return b, nil
		}
		t.Assignee = *b.AssignedTo
		t.SetPaid = true
	case model.EventComplete:
		if err := requireAssignee(p, b); err != nil {
			return nil, err
		}
		if b.OrderStatus != model.OrderPaid {
			return nil, newErr(KindPaymentNotComplete, "booking must be paid before completion")
		}
		t.Assignee = *b.AssignedTo
		t.RequirePaid = true
	case model.EventReject:
		if !p.IsAdmin() {
			if !b.IsAssignedTo(p.ID) {
				return nil, newErr(KindForbidden, "booking is not assigned to you")
			}
			t.Assignee = p.ID
		}
	case model.EventCancel:
		if !p.IsAdmin() && !b.OwnedBy(p.ID, p.Email) {
			return nil, newErr(KindForbidden, "booking does not belong to you")
		}
		r := ""
		if reason != nil {
			r = strings.TrimSpace(*reason)
		}
		if r == "" && p.IsAdmin() {
			r = "cancelled by admin"
		}
		if len([]rune(r)) < minCancelReason {
			return nil, newErr(KindValidation, fmt.Sprintf("reason must be at least %d characters", minCancelReason))
		}
		if utf8.RuneCountInString(r) > maxCancelReason {
			return nil, newErr(KindValidation, fmt.Sprintf("reason must be at most %d characters", maxCancelReason))
		}
		t.CancelReason = &r
	default:
		return nil, newErr(KindInvalidTransition, fmt.Sprintf("unsupported event %s", ev))
	}

	ok, err := s.bookings.Apply(ctx, id, t)
	if err != nil {
		return nil, internal("update booking", err)
	}
	if !ok {
		return nil, newErr(KindConflict, "booking changed concurrently, reload and retry")
	}
	updated, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "booking")
	}
	s.logger.Infoj(log.JSON{"event": "booking." + string(ev), "booking_id": id, "actor": p.ID, "from": b.Status, "to": updated.Status})
	return updated, nil
}

// requireAssignee checks the caller may act as the booking's partner.
// Admins act on behalf of whoever is assigned, but someone must be.
func requireAssignee(p Principal, b *model.Booking) error {
	if b.AssignedTo == nil {
		return newErr(KindInvalidTransition, "booking has no assigned partner")
	}
	if !p.IsAdmin() && !b.IsAssignedTo(p.ID) {
		return newErr(KindForbidden, "booking is not assigned to you")
	}
	return nil
}

// AdminUpdate applies an assignment and/or a status change on behalf of an
// admin. The assignment is applied first.
func (s *BookingService) AdminUpdate(ctx context.Context, p Principal, id string, u AdminUpdate) (*model.Booking, error) {
	if u.Status == nil && u.AssignedTo == nil {
		return nil, newErr(KindValidation, "status or assigned_to is required")
	}
	var ev model.Event
	if u.Status != nil {
		var ok bool
		if ev, ok = model.EventForTarget(*u.Status); !ok {
			return nil, newErr(KindValidation, fmt.Sprintf("status %q cannot be set directly", *u.Status))
		}
	}

	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "booking")
	}
	if u.AssignedTo != nil {
		if b, err = s.assign(ctx, p, b, strings.TrimSpace(*u.AssignedTo)); err != nil {
			return nil, err
		}
	}
	if u.Status != nil && *u.Status != b.Status {
		return s.transition(ctx, p, id, ev, nil)
	}
	return b, nil
}

func (s *BookingService) assign(ctx context.Context, p Principal, b *model.Booking, partnerID string) (*model.Booking, error) {
	if partnerID == "" {
		return nil, newErr(KindValidation, "assigned_to must not be empty")
	}
	if _, err := model.Next(b.Status, model.EventAssign); err != nil {
		return nil, wrapErr(KindInvalidTransition, fmt.Sprintf("cannot assign a %s booking", b.Status), err)
	}
	partner, err := s.partners.Get(ctx, partnerID)
	if err != nil {
		return nil, storeErr(err, "partner")
	}
	if partner.Approval != model.ApprovalApproved {
		return nil, newErr(KindValidation, "partner is not approved")
	}
	if b.IsAssignedTo(partnerID) {
		return b, nil
	}
	ok, err := s.bookings.Assign(ctx, b.ID, partnerID, s.now())
	if err != nil {
		return nil, internal("assign booking", err)
	}
	if !ok {
		return nil, newErr(KindConflict, "booking changed concurrently, reload and retry")
	}
	updated, err := s.bookings.Get(ctx, b.ID)
	if err != nil {
		return nil, storeErr(err, "booking")
	}
	s.logger.Infoj(log.JSON{"event": "booking.assigned", "booking_id": b.ID, "partner_id": partnerID, "actor": p.ID})
	s.notifyAsync(ctx, partnerID, updated, "Booking assigned", fmt.Sprintf("Booking %s has been assigned to you", updated.Code))
	return updated, nil
}

func (s *BookingService) notifyAsync(ctx context.Context, partnerID string, b *model.Booking, title, text string) {
	snapshot := *b
	bg := context.WithoutCancel(ctx)
	s.spawn(func() { s.notifier.NotifyPartner(bg, partnerID, &snapshot, title, text) })
}

// Get returns one booking.
func (s *BookingService) Get(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "booking")
	}
	return b, nil
}

// ListForUser returns the caller's bookings, including legacy rows matched
// by email.
func (s *BookingService) ListForUser(ctx context.Context, p Principal) ([]model.Booking, error) {
	out, err := s.bookings.ListForUser(ctx, p.ID, p.Email)
	if err != nil {
		return nil, internal("list bookings", err)
	}
	return out, nil
}

// ListForPartner returns bookings assigned to the partner.
func (s *BookingService) ListForPartner(ctx context.Context, partnerID string) ([]model.Booking, error) {
	out, err := s.bookings.ListForPartner(ctx, partnerID)
	if err != nil {
		return nil, internal("list bookings", err)
	}
	return out, nil
}

// ListAvailable returns bookings open for claiming.
func (s *BookingService) ListAvailable(ctx context.Context) ([]model.Booking, error) {
	out, err := s.bookings.ListAvailable(ctx)
	if err != nil {
		return nil, internal("list bookings", err)
	}
	return out, nil
}

// ListAll returns every booking, optionally narrowed to one status.
func (s *BookingService) ListAll(ctx context.Context, status string) ([]model.Booking, error) {
	f := repository.BookingFilter{Status: model.Status(strings.ToLower(strings.TrimSpace(status)))}
	if f.Status != "" && !f.Status.Valid() {
		return nil, newErr(KindValidation, fmt.Sprintf("unknown status %q", status))
	}
	out, err := s.bookings.ListAll(ctx, f)
	if err != nil {
		return nil, internal("list bookings", err)
	}
	return out, nil
}

// storeErr maps a store failure to the service taxonomy.
func storeErr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrapErr(KindNotFound, what+" not found", err)
	}
	return internal("load "+what, err)
}

// PaymentFor returns the payment linked to b, or nil when b was not paid
// through the gateway.
func (s *BookingService) PaymentFor(ctx context.Context, b *model.Booking) (*model.Payment, error) {
	if b.PaymentOrderID == nil {
		return nil, nil
	}
	byBooking, err := s.payments.ListByBookings(ctx, []string{b.ID})
	if err != nil {
		return nil, internal("load payment", err)
	}
	if pay, ok := byBooking[b.ID]; ok {
		return &pay, nil
	}
	return nil, nil
}
