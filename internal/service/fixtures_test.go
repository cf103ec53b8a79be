package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/tintd/salon-dispatch/internal/gateway"
	"github.com/tintd/salon-dispatch/internal/memstore"
	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/service"
)

const testSecret = "rzp_test_secret"

type fakeLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *fakeLogger) record(j log.JSON) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ev, ok := j["event"].(string); ok {
		l.events = append(l.events, ev)
	}
}

func (l *fakeLogger) Infoj(j log.JSON)  { l.record(j) }
func (l *fakeLogger) Warnj(j log.JSON)  { l.record(j) }
func (l *fakeLogger) Errorj(j log.JSON) { l.record(j) }

func (l *fakeLogger) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

// fakeQueue accepts every job except those addressed to a token in fail.
type fakeQueue struct {
	mu   sync.Mutex
	fail map[string]bool
	jobs []service.PushJob
}

func (q *fakeQueue) Enqueue(_ context.Context, job service.PushJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail[job.Token] {
		return errors.New("broker unreachable")
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type fixture struct {
	store    *memstore.Store
	queue    *fakeQueue
	logger   *fakeLogger
	notifier *service.Notifier
	bookings *service.BookingService
	payments *service.PaymentService
	partners *service.PartnerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	st.SeedDemo()
	q := &fakeQueue{fail: map[string]bool{}}
	lg := &fakeLogger{}

	var mu sync.Mutex
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	n := service.NewNotifier(st.Partners, st.Notifications, q, lg)
	bs := service.NewBookingService(st.Bookings, st.Partners, st.Payments, st.Catalog, n, lg,
		service.WithClock(now), service.WithSyncSideEffects())
	gw := gateway.NewWithOrders(gateway.Sandbox{}, testSecret, time.Second)
	return &fixture{
		store:    st,
		queue:    q,
		logger:   lg,
		notifier: n,
		bookings: bs,
		payments: service.NewPaymentService(st.Payments, gw, bs, "INR", lg),
		partners: service.NewPartnerService(st.Partners, st.Notifications, st.Sequences, lg),
	}
}

func customer(id string) service.Principal {
	return service.Principal{ID: id, Role: service.RoleCustomer, Email: id + "@example.com"}
}

func partner(id string) service.Principal {
	return service.Principal{ID: id, Role: service.RolePartner, Email: id + "@example.com"}
}

var admin = service.Principal{ID: "admin-1", Role: service.RoleAdmin}

// onboard registers, approves and optionally puts a partner on duty.
func (f *fixture) onboard(t *testing.T, id string, onDuty bool, token string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.partners.Register(ctx, partner(id), "Partner "+id, "98000"+id); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	if _, err := f.partners.Approve(ctx, id); err != nil {
		t.Fatalf("approve %s: %v", id, err)
	}
	if onDuty {
		if _, err := f.partners.SetDuty(ctx, id, true); err != nil {
			t.Fatalf("duty %s: %v", id, err)
		}
	}
	if token != "" {
		if err := f.partners.SetPushToken(ctx, id, token); err != nil {
			t.Fatalf("token %s: %v", id, err)
		}
	}
}

func codDraft() service.BookingDraft {
	return service.BookingDraft{
		Customer: model.Customer{
			Name:    "Asha",
			Email:   "asha@example.com",
			Phone:   "9876543210",
			Address: "12 MG Road",
		},
		Items:         []model.LineItem{{Kind: model.ItemService, RefID: "svc-haircut", Quantity: 2}},
		TotalAmount:   500,
		ScheduledDate: "2026-03-05",
		ScheduledTime: "10:30",
		PaymentMethod: "cod",
	}
}

func onlineDraft() service.BookingDraft {
	d := codDraft()
	d.Items = []model.LineItem{{Kind: model.ItemCombo, RefID: "combo-glow", Quantity: 1}}
	d.TotalAmount = 1200
	d.PaymentMethod = "online"
	return d
}

func (f *fixture) createCOD(t *testing.T, owner service.Principal) *model.Booking {
	t.Helper()
	b, created, err := f.bookings.Create(context.Background(), owner, codDraft())
	if err != nil || !created {
		t.Fatalf("create: %v (created=%v)", err, created)
	}
	return b
}

func wantKind(t *testing.T, err error, k service.Kind) {
	t.Helper()
	if !service.IsKind(err, k) {
		t.Fatalf("err = %v; want kind %s", err, k)
	}
}
