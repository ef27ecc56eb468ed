package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/repository"
)

const relayBatchSize = 100

// Publisher publishes the toast for a persisted contract.
type Publisher interface {
	Publish(ctx context.Context, c *domain.Contrato) string
}

// RelayWorker polls the database for contracts whose toast was never
// published (process restart between commit and publish, or a failed
// notified_at update) and hands them back to the Publisher while they are
// still younger than the toast lifetime. The Publisher does not enqueue a
// second toast for a contract it already announced; it only retries
// notified_at. Older contracts are left alone: their toast would already
// have expired.
type RelayWorker struct {
	repo     repository.ContratoRepository
	pub      Publisher
	ttl      time.Duration
	grace    time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewRelayWorker builds the relay. Contracts younger than grace are skipped
// so a request that is still publishing is not announced twice.
func NewRelayWorker(
	repo repository.ContratoRepository,
	pub Publisher,
	ttl, grace, interval time.Duration,
	logger *zap.Logger,
) *RelayWorker {
	return &RelayWorker{
		repo: repo, pub: pub, ttl: ttl, grace: grace, interval: interval,
		logger: logger, now: time.Now,
	}
}

// Run ticks every interval and republishes any pending contracts.
// Stops cleanly when ctx is cancelled.
func (rw *RelayWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("relay worker started", zap.Duration("interval", rw.interval))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("relay worker stopping")
			return
		case <-ticker.C:
			rw.poll(ctx)
		}
	}
}

func (rw *RelayWorker) poll(ctx context.Context) int {
	now := rw.now().UTC()
	pending, err := rw.repo.FindUnnotified(ctx, now.Add(-rw.ttl), relayBatchSize)
	if err != nil {
		rw.logger.Error("relay poll error", zap.Error(err))
		return 0
	}

	published := 0
	for _, c := range pending {
		if now.Sub(c.CreatedAt) < rw.grace {
			continue
		}
		id := rw.pub.Publish(ctx, c)
		rw.logger.Debug("relayed contrato",
			zap.String("contrato_id", c.ID), zap.String("notification_id", id))
		published++
	}

	if published > 0 {
		rw.logger.Info("relayed pending contratos", zap.Int("count", published))
	}
	return published
}
