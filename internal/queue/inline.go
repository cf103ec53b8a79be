package queue

import (
	"context"
	"time"

	"github.com/tintd/salon-dispatch/internal/push"
	"github.com/tintd/salon-dispatch/internal/service"
)

// Inline delivers push jobs synchronously in the calling goroutine. It is
// selected with PUSH_DRIVER=inline when no broker runs.
type Inline struct {
	sender push.Sender
}

func NewInline(sender push.Sender) *Inline { return &Inline{sender: sender} }

// Enqueue sends the job immediately and returns the delivery error.
func (q *Inline) Enqueue(ctx context.Context, job service.PushJob) error {
	return q.sender.Send(ctx, newPushRequested(job, time.Now()).message())
}
