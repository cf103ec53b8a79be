// Package queue moves partner push jobs through RabbitMQ, or delivers them
// inline when no broker is configured.
package queue

import (
	"time"

	"github.com/tintd/salon-dispatch/internal/push"
	"github.com/tintd/salon-dispatch/internal/service"
)

// PushRequested is the message body on the partner.push queue.
type PushRequested struct {
	PartnerID   string `json:"partner_id"`
	BookingID   string `json:"booking_id"`
	Token       string `json:"token"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	RequestedAt string `json:"requested_at"`
}

func newPushRequested(job service.PushJob, at time.Time) PushRequested {
	return PushRequested{
		PartnerID:   job.PartnerID,
		BookingID:   job.BookingID,
		Token:       job.Token,
		Title:       job.Title,
		Body:        job.Body,
		RequestedAt: at.UTC().Format(time.RFC3339),
	}
}

func (ev PushRequested) message() push.Message {
	return push.Message{
		Token: ev.Token,
		Title: ev.Title,
		Body:  ev.Body,
		Data:  map[string]string{"booking_id": ev.BookingID, "partner_id": ev.PartnerID},
	}
}
