package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/plbrasil/hs-notify/internal/provider"
	"github.com/plbrasil/hs-notify/internal/ratelimiter"
)

// Forwarder is a single goroutine that pulls deliveries from the outbox,
// applies the provider rate limit, and pushes them to the external provider,
// retrying with backoff while the toast is still live.
type Forwarder struct {
	id         int
	outbox     *Outbox
	prov       provider.Provider
	limiter    *ratelimiter.KeyedLimiters
	backoff    []time.Duration
	maxRetries int
	isLive     func(notificationID string) bool
	logger     *zap.Logger

	// Metric hooks, injected by the pool.
	onSent   func(latency time.Duration)
	onFailed func()
}

// NewForwarder constructs a forwarder. onSent and onFailed are optional (nil = no-op);
// isLive may be nil to forward regardless of dismissal.
func NewForwarder(
	id int,
	outbox *Outbox,
	prov provider.Provider,
	limiter *ratelimiter.KeyedLimiters,
	backoff []time.Duration,
	maxRetries int,
	isLive func(string) bool,
	logger *zap.Logger,
	onSent func(time.Duration),
	onFailed func(),
) *Forwarder {
	if onSent == nil {
		onSent = func(time.Duration) {}
	}
	if onFailed == nil {
		onFailed = func() {}
	}
	if isLive == nil {
		isLive = func(string) bool { return true }
	}
	if len(backoff) == 0 {
		backoff = []time.Duration{time.Second}
	}
	return &Forwarder{
		id: id, outbox: outbox, prov: prov, limiter: limiter,
		backoff: backoff, maxRetries: maxRetries, isLive: isLive, logger: logger,
		onSent: onSent, onFailed: onFailed,
	}
}

// Run blocks until ctx is cancelled, forwarding one delivery per iteration.
func (f *Forwarder) Run(ctx context.Context) {
	f.logger.Info("forwarder started", zap.Int("id", f.id))
	for {
		d, ok := f.outbox.Pop(ctx)
		if !ok {
			f.logger.Info("forwarder stopping", zap.Int("id", f.id))
			return
		}
		f.process(ctx, d)
	}
}

func (f *Forwarder) process(ctx context.Context, d provider.Delivery) {
	start := time.Now()
	log := f.logger.With(
		zap.String("notification_id", d.NotificationID),
		zap.String("contrato_id", d.Payload.ContratoID),
	)

	for attempt := 0; ; attempt++ {
		// A dismissal or expiry between publish and delivery is valid; skip silently.
		if !f.isLive(d.NotificationID) {
			log.Debug("notification retired before forwarding")
			return
		}

		// Block here until the provider's rate limiter grants a token.
		if err := f.limiter.Wait(ctx, f.prov.Name()); err != nil {
			// ctx cancelled while waiting: shutting down.
			return
		}

		resp, err := f.prov.Send(ctx, d)
		if err == nil {
			elapsed := time.Since(start)
			f.onSent(elapsed)
			log.Info("notification forwarded",
				zap.String("provider", f.prov.Name()),
				zap.String("provider_msg_id", resp.MessageID),
				zap.Duration("latency", elapsed))
			return
		}

		if attempt >= f.maxRetries {
			f.onFailed()
			log.Warn("forwarding failed, retries exhausted",
				zap.Int("attempts", attempt+1), zap.Error(err))
			return
		}

		delay := f.retryDelay(attempt)
		log.Warn("provider send failed, will retry",
			zap.Int("attempt", attempt+1), zap.Duration("backoff", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// retryDelay clamps to the last configured step:
//
//	attempt 0 → backoff[0]
//	attempt 1 → backoff[1]
//	attempt N ≥ len(backoff) → last backoff entry
func (f *Forwarder) retryDelay(attempt int) time.Duration {
	if attempt >= len(f.backoff) {
		return f.backoff[len(f.backoff)-1]
	}
	return f.backoff[attempt]
}
