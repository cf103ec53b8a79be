package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/repository"
)

func TestSequencesUnderConcurrency(t *testing.T) {
	s := New()
	const n = 200
	seen := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := s.Sequences.Next(context.Background(), model.SequenceBooking)
			seen <- v
		}()
	}
	wg.Wait()
	close(seen)
	got := map[int64]bool{}
	for v := range seen {
		if got[v] {
			t.Fatalf("duplicate sequence value %d", v)
		}
		got[v] = true
	}
	for i := int64(1); i <= n; i++ {
		if !got[i] {
			t.Fatalf("missing %d", i)
		}
	}
	if v, _ := s.Sequences.Next(context.Background(), model.SequencePartner); v != 1 {
		t.Fatalf("partner sequence starts at %d", v)
	}
}

func TestBookingClaimIsSingleWinner(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := &model.Booking{ID: "b1", Status: model.StatusPending}
	if err := s.Bookings.Create(ctx, b); err != nil {
		t.Fatal(err)
	}
	if b.Code != "tind-001" {
		t.Fatalf("code = %s", b.Code)
	}

	ok, _ := s.Bookings.Claim(ctx, "b1", "p1", time.Now())
	if !ok {
		t.Fatal("first claim lost")
	}
	if ok, _ := s.Bookings.Claim(ctx, "b1", "p2", time.Now()); ok {
		t.Fatal("second claim won")
	}
	got, _ := s.Bookings.Get(ctx, "b1")
	if got.Status != model.StatusPicked || !got.IsAssignedTo("p1") {
		t.Fatalf("got %+v", got)
	}
}

func TestBookingApplyGuards(t *testing.T) {
	s := New()
	ctx := context.Background()
	p1 := "p1"
	_ = s.Bookings.Create(ctx, &model.Booking{ID: "b1", Status: model.StatusConfirmed, AssignedTo: &p1, OrderStatus: model.OrderUnpaid})

	tests := []struct {
		name string
		t    repository.Transition
		ok   bool
	}{
		{"wrong source", repository.Transition{From: []model.Status{model.StatusPicked}, To: model.StatusCompleted}, false},
		{"wrong assignee", repository.Transition{From: []model.Status{model.StatusConfirmed}, To: model.StatusCompleted, Assignee: "p2"}, false},
		{"unpaid", repository.Transition{From: []model.Status{model.StatusConfirmed}, To: model.StatusCompleted, RequirePaid: true}, false},
		{"mark paid", repository.Transition{From: []model.Status{model.StatusConfirmed}, To: model.StatusConfirmed, Assignee: "p1", SetPaid: true}, true},
		{"complete", repository.Transition{From: []model.Status{model.StatusConfirmed}, To: model.StatusCompleted, RequirePaid: true}, true},
	}
	for _, tt := range tests {
		ok, err := s.Bookings.Apply(ctx, "b1", tt.t)
		if err != nil || ok != tt.ok {
			t.Fatalf("%s: ok=%v err=%v", tt.name, ok, err)
		}
	}
	got, _ := s.Bookings.Get(ctx, "b1")
	if got.Status != model.StatusCompleted || got.OrderStatus != model.OrderPaid {
		t.Fatalf("final = %s/%s", got.Status, got.OrderStatus)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Bookings.Create(ctx, &model.Booking{ID: "b1", Status: model.StatusPending})
	got, _ := s.Bookings.Get(ctx, "b1")
	got.Status = model.StatusCancelled
	again, _ := s.Bookings.Get(ctx, "b1")
	if again.Status != model.StatusPending {
		t.Fatal("caller mutated stored booking")
	}
}

func TestDuplicatePaymentOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	order := "order_1"
	if err := s.Bookings.Create(ctx, &model.Booking{ID: "b1", PaymentOrderID: &order}); err != nil {
		t.Fatal(err)
	}
	err := s.Bookings.Create(ctx, &model.Booking{ID: "b2", PaymentOrderID: &order})
	if !errors.Is(err, repository.ErrDuplicatePaymentOrder) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.Bookings.GetByPaymentOrder(ctx, "order_2"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPaymentSettlesOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Payments.Create(ctx, &model.Payment{ID: "x", OrderID: "order_1", Status: model.PaymentCreated})
	if ok, _ := s.Payments.MarkPaid(ctx, "order_1", "pay_1", "sig", time.Now()); !ok {
		t.Fatal("first settle lost")
	}
	if ok, _ := s.Payments.MarkFailed(ctx, "order_1", "pay_1", "sig", time.Now()); ok {
		t.Fatal("settled twice")
	}
	if err := s.Payments.Create(ctx, &model.Payment{ID: "y", OrderID: "order_1"}); !errors.Is(err, repository.ErrDuplicateCode) {
		t.Fatalf("err = %v", err)
	}
}
