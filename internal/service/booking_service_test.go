package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/tintd/salon-dispatch/internal/model"
	"github.com/tintd/salon-dispatch/internal/service"
)

func TestCashBookingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "p1", true, "")
	f.onboard(t, "p2", true, "")

	b := f.createCOD(t, customer("u1"))
	if b.Status != model.StatusPending || b.OrderStatus != model.OrderUnpaid || b.Code != "tind-001" {
		t.Fatalf("new booking = %s/%s/%s", b.Status, b.OrderStatus, b.Code)
	}

	picked, err := f.bookings.Claim(ctx, partner("p1"), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if picked.Status != model.StatusPicked || !picked.IsAssignedTo("p1") {
		t.Fatalf("after claim: %s assigned=%v", picked.Status, picked.AssignedTo)
	}
	_, err = f.bookings.Claim(ctx, partner("p2"), b.ID)
	wantKind(t, err, service.KindConflict)

	_, err = f.bookings.Confirm(ctx, partner("p2"), b.ID)
	wantKind(t, err, service.KindForbidden)

	confirmed, err := f.bookings.Confirm(ctx, partner("p1"), b.ID)
	if err != nil || confirmed.Status != model.StatusConfirmed || confirmed.OrderStatus != model.OrderUnpaid {
		t.Fatalf("confirm: %v %+v", err, confirmed)
	}

	_, err = f.bookings.Complete(ctx, partner("p1"), b.ID)
	wantKind(t, err, service.KindPaymentNotComplete)

	paid, err := f.bookings.MarkPaid(ctx, partner("p1"), b.ID)
	if err != nil || paid.OrderStatus != model.OrderPaid || paid.Status != model.StatusConfirmed {
		t.Fatalf("mark paid: %v %+v", err, paid)
	}
	if again, err := f.bookings.MarkPaid(ctx, partner("p1"), b.ID); err != nil || again.OrderStatus != model.OrderPaid {
		t.Fatalf("repeat mark paid: %v", err)
	}

	done, err := f.bookings.Complete(ctx, partner("p1"), b.ID)
	if err != nil || done.Status != model.StatusCompleted {
		t.Fatalf("complete: %v %+v", err, done)
	}

	_, err = f.bookings.Cancel(ctx, customer("u1"), b.ID, "changed my mind")
	wantKind(t, err, service.KindInvalidTransition)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tests := []struct {
		name string
		edit func(*service.BookingDraft)
	}{
		{"missing name", func(d *service.BookingDraft) { d.Customer.Name = " " }},
		{"missing email", func(d *service.BookingDraft) { d.Customer.Email = "" }},
		{"missing date", func(d *service.BookingDraft) { d.ScheduledDate = "" }},
		{"timestamp date", func(d *service.BookingDraft) { d.ScheduledDate = "2026-03-05T10:30:00Z" }},
		{"impossible date", func(d *service.BookingDraft) { d.ScheduledDate = "2026-02-30" }},
		{"long time", func(d *service.BookingDraft) { d.ScheduledTime = strings.Repeat("1", 17) }},
		{"long phone", func(d *service.BookingDraft) { d.Customer.Phone = strings.Repeat("9", 33) }},
		{"long name", func(d *service.BookingDraft) { d.Customer.Name = strings.Repeat("a", 256) }},
		{"long address", func(d *service.BookingDraft) { d.Customer.Address = strings.Repeat("a", 513) }},
		{"bad currency", func(d *service.BookingDraft) { d.Currency = "RUPEE" }},
		{"no items", func(d *service.BookingDraft) { d.Items = nil }},
		{"bad method", func(d *service.BookingDraft) { d.PaymentMethod = "card" }},
		{"zero total", func(d *service.BookingDraft) { d.TotalAmount = 0 }},
		{"unknown service", func(d *service.BookingDraft) {
			d.Items = []model.LineItem{{Kind: model.ItemService, RefID: "svc-missing", Quantity: 1}}
		}},
		{"combo id used as service", func(d *service.BookingDraft) {
			d.Items = []model.LineItem{{Kind: model.ItemService, RefID: "combo-glow", Quantity: 1}}
		}},
		{"online without order", func(d *service.BookingDraft) { d.PaymentMethod = "online" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := codDraft()
			tt.edit(&d)
			_, _, err := f.bookings.Create(ctx, customer("u1"), d)
			wantKind(t, err, service.KindValidation)
		})
	}
	if all, _ := f.bookings.ListAll(ctx, ""); len(all) != 0 {
		t.Fatalf("%d bookings stored after rejected drafts", len(all))
	}
}

func TestCreateAcceptsFullWidthFields(t *testing.T) {
	f := newFixture(t)
	d := codDraft()
	d.Customer.Name = strings.Repeat("é", 255)
	d.Customer.Phone = strings.Repeat("9", 32)
	d.ScheduledTime = strings.Repeat("1", 16)
	d.Currency = "inr"
	b, _, err := f.bookings.Create(context.Background(), customer("u1"), d)
	if err != nil {
		t.Fatal(err)
	}
	if b.Currency != "INR" {
		t.Fatalf("currency = %q", b.Currency)
	}
}

func TestCreateCashTotalMismatchIsLogged(t *testing.T) {
	f := newFixture(t)
	d := codDraft()
	d.TotalAmount = 499
	b, _, err := f.bookings.Create(context.Background(), customer("u1"), d)
	if err != nil {
		t.Fatal(err)
	}
	if b.TotalAmount != 499 {
		t.Fatalf("total = %d", b.TotalAmount)
	}
	if !f.logger.has("booking.total_mismatch") {
		t.Fatal("mismatch not logged")
	}
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	const n = 12
	for i := 0; i < n; i++ {
		f.onboard(t, fmt.Sprintf("p%02d", i), false, "")
	}
	b := f.createCOD(t, customer("u1"))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%02d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.bookings.Claim(context.Background(), partner(id), b.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, id)
			case service.IsKind(err, service.KindConflict):
				conflicts++
			default:
				t.Errorf("claim by %s: %v", id, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 || conflicts != n-1 {
		t.Fatalf("winners=%v conflicts=%d", winners, conflicts)
	}
	got, _ := f.bookings.Get(context.Background(), b.ID)
	if !got.IsAssignedTo(winners[0]) {
		t.Fatalf("assigned_to = %v; want %s", got.AssignedTo, winners[0])
	}
	mine, _ := f.partners.Notifications(context.Background(), winners[0])
	if len(mine) != 1 || !strings.Contains(mine[0].Text, b.Code) {
		t.Fatalf("winner notifications = %+v", mine)
	}
}

func TestClaimRequiresPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCOD(t, customer("u1"))
	if _, err := f.bookings.Cancel(ctx, customer("u1"), b.ID, "no longer needed"); err != nil {
		t.Fatal(err)
	}
	_, err := f.bookings.Claim(ctx, partner("p1"), b.ID)
	wantKind(t, err, service.KindInvalidTransition)

	_, err = f.bookings.Claim(ctx, partner("p1"), "missing")
	wantKind(t, err, service.KindNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  service.Principal
		reason string
		kind   service.Kind
	}{
		{"reason too short", customer("u1"), "no", service.KindValidation},
		{"blank reason", customer("u1"), "    ", service.KindValidation},
		{"reason too long", customer("u1"), strings.Repeat("x", 501), service.KindValidation},
		{"not the owner", customer("u2"), "not mine", service.KindForbidden},
		{"partner cannot cancel", partner("p1"), "busy today", service.KindForbidden},
	}
	b := f.createCOD(t, customer("u1"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.Cancel(ctx, tt.actor, b.ID, tt.reason)
			wantKind(t, err, tt.kind)
		})
	}

	got, err := f.bookings.Cancel(ctx, customer("u1"), b.ID, "  abc  ")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusCancelled || got.CancelReason == nil || *got.CancelReason != "abc" || got.CancelledAt == nil {
		t.Fatalf("cancelled booking = %+v", got)
	}
	_, err = f.bookings.Cancel(ctx, customer("u1"), b.ID, "again please")
	wantKind(t, err, service.KindInvalidTransition)

	other := f.createCOD(t, customer("u2"))
	got, err = f.bookings.Cancel(ctx, admin, other.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if *got.CancelReason != "cancelled by admin" {
		t.Fatalf("reason = %q", *got.CancelReason)
	}
}

func TestRejectByAssignedPartner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "p1", true, "")
	b := f.createCOD(t, customer("u1"))

	_, err := f.bookings.Reject(ctx, partner("p1"), b.ID)
	wantKind(t, err, service.KindForbidden)

	if _, err := f.bookings.Claim(ctx, partner("p1"), b.ID); err != nil {
		t.Fatal(err)
	}
	got, err := f.bookings.Reject(ctx, partner("p1"), b.ID)
	if err != nil || got.Status != model.StatusRejected {
		t.Fatalf("reject: %v %+v", err, got)
	}
}

func TestConfirmWithoutAssignee(t *testing.T) {
	f := newFixture(t)
	b := f.createCOD(t, customer("u1"))
	_, err := f.bookings.Confirm(context.Background(), admin, b.ID)
	wantKind(t, err, service.KindInvalidTransition)
}

func TestAdminAssignNotifiesNewPartner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "p1", false, "tok-p1")
	f.onboard(t, "p2", false, "tok-p2")
	if _, err := f.partners.Register(ctx, partner("p3"), "Pending", "1"); err != nil {
		t.Fatal(err)
	}

	b := f.createCOD(t, customer("u1"))
	if _, err := f.bookings.Claim(ctx, partner("p1"), b.ID); err != nil {
		t.Fatal(err)
	}
	before, _ := f.partners.Notifications(ctx, "p1")

	pending := "p3"
	_, err := f.bookings.AdminUpdate(ctx, admin, b.ID, service.AdminUpdate{AssignedTo: &pending})
	wantKind(t, err, service.KindValidation)

	to := "p2"
	got, err := f.bookings.AdminUpdate(ctx, admin, b.ID, service.AdminUpdate{AssignedTo: &to})
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsAssignedTo("p2") || got.Status != model.StatusPicked {
		t.Fatalf("after assign: %s %v", got.Status, got.AssignedTo)
	}
	p2, _ := f.partners.Notifications(ctx, "p2")
	if len(p2) != 1 || !strings.Contains(p2[0].Text, "assigned to you") {
		t.Fatalf("p2 notifications = %+v", p2)
	}
	after, _ := f.partners.Notifications(ctx, "p1")
	if len(after) != len(before) {
		t.Fatalf("p1 notified on reassignment")
	}

	// The previous partner lost the booking.
	_, err = f.bookings.Confirm(ctx, partner("p1"), b.ID)
	wantKind(t, err, service.KindForbidden)
	if _, err := f.bookings.Confirm(ctx, partner("p2"), b.ID); err != nil {
		t.Fatal(err)
	}
}

func TestAdminUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "p1", false, "")
	b := f.createCOD(t, customer("u1"))

	picked := model.StatusPicked
	_, err := f.bookings.AdminUpdate(ctx, admin, b.ID, service.AdminUpdate{Status: &picked})
	wantKind(t, err, service.KindValidation)

	_, err = f.bookings.AdminUpdate(ctx, admin, b.ID, service.AdminUpdate{})
	wantKind(t, err, service.KindValidation)

	// Assign then confirm in one request.
	to, confirmed := "p1", model.StatusConfirmed
	got, err := f.bookings.AdminUpdate(ctx, admin, b.ID, service.AdminUpdate{Status: &confirmed, AssignedTo: &to})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusConfirmed || !got.IsAssignedTo("p1") {
		t.Fatalf("got %s %v", got.Status, got.AssignedTo)
	}

	completed := model.StatusCompleted
	_, err = f.bookings.AdminUpdate(ctx, admin, b.ID, service.AdminUpdate{Status: &completed})
	wantKind(t, err, service.KindPaymentNotComplete)
}

func TestLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.onboard(t, "p1", false, "")
	first := f.createCOD(t, customer("u1"))
	second := f.createCOD(t, customer("u1"))
	f.createCOD(t, customer("u2"))

	mine, err := f.bookings.ListForUser(ctx, customer("u1"))
	if err != nil || len(mine) != 2 || mine[0].ID != second.ID {
		t.Fatalf("ListForUser = %v %v", len(mine), err)
	}

	if _, err := f.bookings.Claim(ctx, partner("p1"), first.ID); err != nil {
		t.Fatal(err)
	}
	avail, _ := f.bookings.ListAvailable(ctx)
	if len(avail) != 2 || avail[0].ID != second.ID {
		t.Fatalf("available = %d", len(avail))
	}
	history, _ := f.bookings.ListForPartner(ctx, "p1")
	if len(history) != 1 || history[0].ID != first.ID {
		t.Fatalf("history = %+v", history)
	}

	picked, _ := f.bookings.ListAll(ctx, "PICKED")
	if len(picked) != 1 {
		t.Fatalf("picked = %d", len(picked))
	}
	_, err = f.bookings.ListAll(ctx, "lost")
	wantKind(t, err, service.KindValidation)
}
