package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/service"
)

func TestFanOutReachesEveryOnDutyPartner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "p1", true, "tok-1")
	f.onboard(t, "p2", true, "tok-broken")
	f.onboard(t, "p3", true, "")
	f.onboard(t, "p4", false, "tok-4")
	if _, err := f.partners.Register(ctx, partner("p5"), "Waiting", "5"); err != nil {
		t.Fatal(err)
	}
	f.queue.fail["tok-broken"] = true

	b := f.createCOD(t, customer("u1"))

	for _, id := range []string{"p1", "p2", "p3"} {
		inbox, _ := f.partners.Notifications(ctx, id)
		if len(inbox) != 1 || inbox[0].BookingID != b.ID || !strings.Contains(inbox[0].Text, b.Code) {
			t.Fatalf("%s inbox = %+v", id, inbox)
		}
	}
	for _, id := range []string{"p4", "p5"} {
		if inbox, _ := f.partners.Notifications(ctx, id); len(inbox) != 0 {
			t.Fatalf("%s should not be notified", id)
		}
	}
	if f.queue.count() != 1 || f.queue.jobs[0].PartnerID != "p1" {
		t.Fatalf("jobs = %+v", f.queue.jobs)
	}
	if !f.logger.has("notify.push_failed") {
		t.Fatal("push failure not logged")
	}

	res := f.notifier.FanOut(ctx, b)
	want := service.FanOutResult{Partners: 3, Notifications: 3, Pushes: 1}
	if res != want {
		t.Fatalf("FanOut = %+v; want %+v", res, want)
	}
}

type brokenRoster struct{ service.PartnerDirectory }

func (brokenRoster) ListOnDuty(context.Context) ([]model.Partner, error) {
	return nil, errors.New("connection reset")
}

func TestFanOutRosterFailure(t *testing.T) {
	f := newFixture(t)
	n := service.NewNotifier(brokenRoster{f.store.Partners}, f.store.Notifications, f.queue, f.logger)
	res := n.FanOut(context.Background(), &model.Booking{ID: "b1"})
	if res.Failures != 1 || res.Notifications != 0 {
		t.Fatalf("res = %+v", res)
	}
	if !f.logger.has("fanout.roster_failed") {
		t.Fatal("roster failure not logged")
	}
}

func TestCreateSucceedsWhenFanOutFails(t *testing.T) {
	f := newFixture(t)
	n := service.NewNotifier(brokenRoster{f.store.Partners}, f.store.Notifications, f.queue, f.logger)
	bs := service.NewBookingService(f.store.Bookings, f.store.Partners, f.store.Payments, f.store.Catalog, n, f.logger,
		service.WithSyncSideEffects())
	b, created, err := bs.Create(context.Background(), customer("u1"), codDraft())
	if err != nil || !created || b.Status != model.StatusPending {
		t.Fatalf("create: %v %+v", err, b)
	}
}

// heldQueue blocks every enqueue until release is closed.
type heldQueue struct {
	release chan struct{}
	fakeQueue
}

func (q *heldQueue) Enqueue(ctx context.Context, job service.PushJob) error {
	<-q.release
	return q.fakeQueue.Enqueue(ctx, job)
}

func TestDrainWaitsForFanOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "p1", true, "tok-1")

	q := &heldQueue{release: make(chan struct{})}
	n := service.NewNotifier(f.store.Partners, f.store.Notifications, q, f.logger)
	bs := service.NewBookingService(f.store.Bookings, f.store.Partners, f.store.Payments, f.store.Catalog, n, f.logger)
	if _, _, err := bs.Create(ctx, customer("u1"), codDraft()); err != nil {
		t.Fatal(err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := bs.Drain(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("drain with held push = %v", err)
	}

	close(q.release)
	if err := bs.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	if q.count() != 1 {
		t.Fatalf("pushes = %d", q.count())
	}
}
