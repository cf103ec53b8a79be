// Package memstore keeps every store in process memory. Guarded writes
// take the collection lock for the whole check-and-set, giving the same
// single-winner behaviour as the conditional UPDATEs in repository.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/repository"
)

// Store groups the in-memory collections.
type Store struct {
	Bookings      *Bookings
	Partners      *Partners
	Notifications *Notifications
	Payments      *Payments
	Sequences     *Sequences
	Catalog       *Catalog
}

// New returns an empty store.
func New() *Store {
	seq := &Sequences{counters: map[string]int64{}}
	return &Store{
		Bookings:      &Bookings{seq: seq, rows: map[string]*model.Booking{}},
		Partners:      &Partners{rows: map[string]*model.Partner{}},
		Notifications: &Notifications{rows: map[string]*model.Notification{}},
		Payments:      &Payments{rows: map[string]*model.Payment{}},
		Sequences:     seq,
		Catalog:       &Catalog{entries: map[model.CatalogKey]model.CatalogEntry{}},
	}
}

// Sequences implements repository.Sequencer.
type Sequences struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (s *Sequences) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

// Bookings implements service.BookingStore.
type Bookings struct {
	seq  repository.Sequencer
	mu   sync.RWMutex
	rows map[string]*model.Booking
}

func (s *Bookings) Create(ctx context.Context, b *model.Booking) error {
	n, err := s.seq.Next(ctx, model.SequenceBooking)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.PaymentOrderID != nil {
		for _, row := range s.rows {
			if row.PaymentOrderID != nil && *row.PaymentOrderID == *b.PaymentOrderID {
				return repository.ErrDuplicatePaymentOrder
			}
		}
	}
	b.Code = model.BookingCode(n)
	s.rows[b.ID] = cloneBooking(b)
	return nil
}

func (s *Bookings) Get(_ context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *Bookings) GetByPaymentOrder(_ context.Context, orderID string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.rows {
		if b.PaymentOrderID != nil && *b.PaymentOrderID == orderID {
			return cloneBooking(b), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Bookings) Claim(_ context.Context, id, partnerID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok || b.AssignedTo != nil || b.Status != model.StatusPending {
		return false, nil
	}
	p := partnerID
	b.AssignedTo = &p
	b.Status = model.StatusPicked
	b.UpdatedAt = at
	return true, nil
}

func (s *Bookings) Assign(_ context.Context, id, partnerID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok || b.Status.Terminal() {
		return false, nil
	}
	p := partnerID
	b.AssignedTo = &p
	b.UpdatedAt = at
	return true, nil
}

func (s *Bookings) Apply(_ context.Context, id string, t repository.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return false, nil
	}
	if len(t.From) > 0 && !containsStatus(t.From, b.Status) {
		return false, nil
	}
	if t.Assignee != "" && !b.IsAssignedTo(t.Assignee) {
		return false, nil
	}
	if t.RequirePaid && b.OrderStatus != model.OrderPaid {
		return false, nil
	}
	b.Status = t.To
	b.UpdatedAt = t.At
	if t.SetPaid {
		b.OrderStatus = model.OrderPaid
	}
	if t.CancelReason != nil {
		r, at := *t.CancelReason, t.At
		b.CancelReason = &r
		b.CancelledAt = &at
	}
	return true, nil
}

func (s *Bookings) ListForUser(_ context.Context, userID, email string) ([]model.Booking, error) {
	return s.filter(func(b *model.Booking) bool { return b.OwnedBy(userID, email) }, true), nil
}

func (s *Bookings) ListForPartner(_ context.Context, partnerID string) ([]model.Booking, error) {
	return s.filter(func(b *model.Booking) bool { return b.IsAssignedTo(partnerID) }, true), nil
}

func (s *Bookings) ListAvailable(_ context.Context) ([]model.Booking, error) {
	return s.filter(func(b *model.Booking) bool {
		return b.Status == model.StatusPending && b.AssignedTo == nil
	}, false), nil
}

func (s *Bookings) ListAll(_ context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	return s.filter(func(b *model.Booking) bool { return f.Status == "" || b.Status == f.Status }, true), nil
}

func (s *Bookings) filter(keep func(*model.Booking) bool, newestFirst bool) []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range s.rows {
		if keep(b) {
			out = append(out, *cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code != newestFirst
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt) != newestFirst
	})
	return out
}

func containsStatus(list []model.Status, s model.Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	c.Items = append([]model.LineItem(nil), b.Items...)
	c.UserID = cloneStr(b.UserID)
	c.PaymentOrderID = cloneStr(b.PaymentOrderID)
	c.AssignedTo = cloneStr(b.AssignedTo)
	c.CancelReason = cloneStr(b.CancelReason)
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		c.CancelledAt = &t
	}
	if b.Customer.Location != nil {
		loc := *b.Customer.Location
		c.Customer.Location = &loc
	}
	return &c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Partners implements service.PartnerDirectory.
type Partners struct {
	mu   sync.RWMutex
	rows map[string]*model.Partner
}

func (s *Partners) Create(_ context.Context, p *model.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Email, p.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	c := clonePartner(p)
	s.rows[p.ID] = c
	return nil
}

func (s *Partners) Get(_ context.Context, id string) (*model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePartner(p), nil
}

func (s *Partners) ListOnDuty(_ context.Context) ([]model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Partner, 0)
	for _, p := range s.rows {
		if p.Approval == model.ApprovalApproved && p.OnDuty {
			out = append(out, *clonePartner(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Partners) SetDuty(_ context.Context, id string, on bool) error {
	return s.update(id, func(p *model.Partner) { p.OnDuty = on })
}

func (s *Partners) SetPushToken(_ context.Context, id string, token *string) error {
	return s.update(id, func(p *model.Partner) { p.PushToken = cloneStr(token) })
}

func (s *Partners) SetApproval(_ context.Context, id string, a model.Approval, code *string) error {
	return s.update(id, func(p *model.Partner) {
		p.Approval = a
		if code != nil {
			p.Code = cloneStr(code)
		}
	})
}

func (s *Partners) update(id string, fn func(*model.Partner)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(p)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func clonePartner(p *model.Partner) *model.Partner {
	c := *p
	c.Code = cloneStr(p.Code)
	c.PushToken = cloneStr(p.PushToken)
	return &c
}

// Notifications implements service.NotificationStore.
type Notifications struct {
	mu   sync.RWMutex
	rows map[string]*model.Notification
}

func (s *Notifications) Create(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *n
	s.rows[n.ID] = &c
	return nil
}

func (s *Notifications) ListForPartner(_ context.Context, partnerID string) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Notification, 0)
	for _, n := range s.rows {
		if n.PartnerID == partnerID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Notifications) MarkRead(_ context.Context, id, partnerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok || n.PartnerID != partnerID {
		return false, nil
	}
	n.Read = true
	return true, nil
}

// Payments implements service.PaymentStore, keyed by gateway order id.
type Payments struct {
	mu   sync.RWMutex
	rows map[string]*model.Payment
}

func (s *Payments) Create(_ context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p.OrderID]; ok {
		return repository.ErrDuplicateCode
	}
	s.rows[p.OrderID] = clonePayment(p)
	return nil
}

func (s *Payments) GetByOrder(_ context.Context, orderID string) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *Payments) MarkPaid(_ context.Context, orderID, paymentID, signature string, at time.Time) (bool, error) {
	return s.settle(orderID, model.PaymentPaid, paymentID, signature, at), nil
}

func (s *Payments) MarkFailed(_ context.Context, orderID, paymentID, signature string, at time.Time) (bool, error) {
	return s.settle(orderID, model.PaymentFailed, paymentID, signature, at), nil
}

func (s *Payments) settle(orderID string, to model.PaymentStatus, paymentID, signature string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[orderID]
	if !ok || p.Status != model.PaymentCreated {
		return false
	}
	p.Status = to
	p.PaymentID = &paymentID
	p.Signature = &signature
	p.UpdatedAt = at
	return true
}

func (s *Payments) LinkBooking(_ context.Context, orderID, bookingID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	p.BookingID = &bookingID
	p.UpdatedAt = at
	return nil
}

func (s *Payments) ListByBookings(_ context.Context, bookingIDs []string) (map[string]model.Payment, error) {
	want := make(map[string]bool, len(bookingIDs))
	for _, id := range bookingIDs {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Payment)
	for _, p := range s.rows {
		if p.BookingID != nil && want[*p.BookingID] {
			out[*p.BookingID] = *clonePayment(p)
		}
	}
	return out, nil
}

func clonePayment(p *model.Payment) *model.Payment {
	c := *p
	c.PaymentID = cloneStr(p.PaymentID)
	c.Signature = cloneStr(p.Signature)
	c.BookingID = cloneStr(p.BookingID)
	c.UserID = cloneStr(p.UserID)
	return &c
}

// Catalog is a fixed in-memory catalog.
type Catalog struct {
	mu      sync.RWMutex
	entries map[model.CatalogKey]model.CatalogEntry
}

// Put adds or replaces an entry.
func (c *Catalog) Put(e model.CatalogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[model.CatalogKey{Kind: e.Kind, ID: e.ID}] = e
}

func (c *Catalog) Lookup(_ context.Context, keys []model.CatalogKey) (map[model.CatalogKey]model.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.CatalogKey]model.CatalogEntry, len(keys))
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			out[k] = e
		}
	}
	return out, nil
}

// SeedDemo fills the catalog with a small fixed menu for local runs.
func (s *Store) SeedDemo() {
	for _, e := range []model.CatalogEntry{
		{Kind: model.ItemService, ID: "svc-haircut", Name: "Haircut", Price: 250},
		{Kind: model.ItemService, ID: "svc-facial", Name: "Facial", Price: 600},
		{Kind: model.ItemCombo, ID: "combo-glow", Name: "Glow Combo", Price: 1200},
	} {
		s.Catalog.Put(e)
	}
}
