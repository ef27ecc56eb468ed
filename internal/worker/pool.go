package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plbrasil/hs-notify/internal/config"
	"github.com/plbrasil/hs-notify/internal/provider"
	"github.com/plbrasil/hs-notify/internal/ratelimiter"
)

// MetricHooks carries the metric callback functions injected by main.
type MetricHooks struct {
	OnSent   func(latency time.Duration)
	OnFailed func()
}

// Pool manages the lifecycle of all forwarders.
// All forwarders share the same outbox.
type Pool struct {
	forwarders []*Forwarder
	wg         sync.WaitGroup
}

// NewPool creates cfg.ForwardWorkers identical forwarders.
func NewPool(
	cfg *config.Config,
	outbox *Outbox,
	prov provider.Provider,
	limiter *ratelimiter.KeyedLimiters,
	isLive func(string) bool,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	n := cfg.ForwardWorkers
	if n < 1 {
		n = 1
	}
	forwarders := make([]*Forwarder, n)

	for i := range forwarders {
		forwarders[i] = NewForwarder(
			i, outbox, prov, limiter,
			cfg.RetryBackoff, cfg.MaxRetries, isLive,
			logger.With(zap.Int("worker_id", i)),
			hooks.OnSent,
			hooks.OnFailed,
		)
	}

	return &Pool{forwarders: forwarders}
}

// Start launches all forwarders as goroutines.
// The provided ctx is forwarded to every forwarder; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, f := range p.forwarders {
		p.wg.Add(1)
		go func(f *Forwarder) {
			defer p.wg.Done()
			f.Run(ctx)
		}(f)
	}
}

// Wait blocks until every forwarder has returned after ctx is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}
