package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/tintd/salon-dispatch/internal/model"
)

// Notifier writes durable partner notifications and queues best-effort
// pushes. Nothing here is retried and no failure is returned to callers.
type Notifier struct {
	partners PartnerDirectory
	inbox    NotificationStore
	queue    PushQueue
	logger   Logger
	now      func() time.Time
}

func NewNotifier(partners PartnerDirectory, inbox NotificationStore, queue PushQueue, logger Logger) *Notifier {
	return &Notifier{partners: partners, inbox: inbox, queue: queue, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// FanOutResult counts what one fan-out achieved.
type FanOutResult struct {
	Partners      int
	Notifications int
	Pushes        int
	Failures      int
}

// FanOut tells every on-duty partner about a new marketplace booking.
func (n *Notifier) FanOut(ctx context.Context, b *model.Booking) FanOutResult {
	partners, err := n.partners.ListOnDuty(ctx)
	if err != nil {
		n.logger.Errorj(log.JSON{"event": "fanout.roster_failed", "booking_id": b.ID, "error": err.Error()})
		return FanOutResult{Failures: 1}
	}
	res := FanOutResult{Partners: len(partners)}
	text := fmt.Sprintf("New booking %s on %s at %s", b.Code, b.ScheduledDate, b.ScheduledTime)
	for i := range partners {
		rec, pushed := n.notify(ctx, &partners[i], b, "New booking available", text)
		if rec {
			res.Notifications++
		} else {
			res.Failures++
		}
		if pushed {
			res.Pushes++
		}
	}
	n.logger.Infoj(log.JSON{
		"event":         "fanout.done",
		"booking_id":    b.ID,
		"partners":      res.Partners,
		"notifications": res.Notifications,
		"pushes":        res.Pushes,
	})
	return res
}

// NotifyPartner sends a single partner a message about b.
func (n *Notifier) NotifyPartner(ctx context.Context, partnerID string, b *model.Booking, title, text string) {
	p, err := n.partners.Get(ctx, partnerID)
	if err != nil {
		n.logger.Warnj(log.JSON{"event": "notify.partner_lookup_failed", "partner_id": partnerID, "booking_id": b.ID, "error": err.Error()})
		return
	}
	n.notify(ctx, p, b, title, text)
}

// notify reports whether the record was stored and whether a push was queued.
func (n *Notifier) notify(ctx context.Context, p *model.Partner, b *model.Booking, title, text string) (bool, bool) {
	stored := true
	rec := &model.Notification{
		ID:        uuid.NewString(),
		PartnerID: p.ID,
		BookingID: b.ID,
		Text:      text,
		CreatedAt: n.now(),
	}
	if err := n.inbox.Create(ctx, rec); err != nil {
		stored = false
		n.logger.Warnj(log.JSON{"event": "notify.record_failed", "partner_id": p.ID, "booking_id": b.ID, "error": err.Error()})
	}
	if p.PushToken == nil || *p.PushToken == "" {
		return stored, false
	}
	job := PushJob{PartnerID: p.ID, BookingID: b.ID, Token: *p.PushToken, Title: title, Body: text}
	if err := n.queue.Enqueue(ctx, job); err != nil {
		n.logger.Warnj(log.JSON{"event": "notify.push_failed", "partner_id": p.ID, "booking_id": b.ID, "error": err.Error()})
		return stored, false
	}
	return stored, true
}
