package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/provider"
	"github.com/plbrasil/hs-notify/internal/queue"
)

// Outbox is the bounded hand-off between the notification queue and the
// forwarder pool. Push never blocks: it runs inside queue hooks, under the
// queue lock.
type Outbox struct {
	ch chan provider.Delivery
}

func NewOutbox(size int) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{ch: make(chan provider.Delivery, size)}
}

// Push places a delivery on the outbox, or returns ErrOutboxFull immediately
// when it is saturated.
func (o *Outbox) Push(d provider.Delivery) error {
	select {
	case o.ch <- d:
		return nil
	default:
		return domain.ErrOutboxFull
	}
}

// Pop blocks until a delivery is available or ctx is cancelled.
// Returns (Delivery{}, false) when ctx is cancelled (graceful shutdown signal).
func (o *Outbox) Pop(ctx context.Context) (provider.Delivery, bool) {
	select {
	case d := <-o.ch:
		return d, true
	case <-ctx.Done():
		return provider.Delivery{}, false
	}
}

// Depth returns the number of deliveries waiting.
func (o *Outbox) Depth() int {
	return len(o.ch)
}

// QueueHooks returns hooks that push every newly published toast to the outbox.
func (o *Outbox) QueueHooks(logger *zap.Logger) queue.Hooks[domain.ContratoCriado] {
	return queue.Hooks[domain.ContratoCriado]{
		OnEnqueue: func(rec queue.Record[domain.ContratoCriado]) {
			err := o.Push(provider.Delivery{
				NotificationID: rec.ID,
				Payload:        rec.Payload,
				CreatedAt:      rec.CreatedAt,
			})
			if err != nil {
				logger.Warn("outbox full: notification will not be forwarded",
					zap.String("notification_id", rec.ID), zap.Error(err))
			}
		},
	}
}
