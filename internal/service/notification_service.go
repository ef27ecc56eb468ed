package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/queue"
	"github.com/plbrasil/hs-notify/internal/repository"
)

// Notifications is the dashboard toast queue carrying contract events.
type Notifications = queue.Queue[domain.ContratoCriado]

// Record is a live toast as seen by dashboards.
type Record = queue.Record[domain.ContratoCriado]

// NotificationService publishes contract events to the toast queue and
// exposes the dismissal actions used by dashboards.
type NotificationService struct {
	q      *Notifications
	repo   repository.ContratoRepository
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex

	// announced maps a contract ID to the toast published for it. Entries
	// live for one TTL, so a contract is announced at most once per toast
	// lifetime even if the toast was dismissed in between.
	announced map[string]announcement
}

type announcement struct {
	notificationID string
	at             time.Time
}

func NewNotificationService(
	q *Notifications,
	repo repository.ContratoRepository,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		q: q, repo: repo, logger: logger, now: time.Now,
		announced: make(map[string]announcement),
	}
}

// Publish enqueues the "contrato criado" toast for c and records that the
// contract was announced. A contract already announced within the last TTL
// is not enqueued again; its toast ID is returned and only notified_at is
// retried. A failure to persist notified_at is logged only: the toast is
// already live, and the relay retries the update later.
func (s *NotificationService) Publish(ctx context.Context, c *domain.Contrato) string {
	id, fresh := s.announce(c)
	if !fresh {
		s.logger.Debug("contrato already announced, retrying notified_at",
			zap.String("contrato_id", c.ID), zap.String("notification_id", id))
	}

	at := s.now().UTC()
	if err := s.repo.MarkNotified(ctx, c.ID, at); err != nil {
		s.logger.Error("failed to mark contrato as notified",
			zap.String("contrato_id", c.ID), zap.String("notification_id", id), zap.Error(err))
		return id
	}
	c.NotifiedAt = &at
	return id
}

// announce enqueues the toast for c unless one was published for it within
// the last TTL. It reports whether a new toast was enqueued.
func (s *NotificationService) announce(c *domain.Contrato) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ttl := s.q.TTL()
	for contratoID, a := range s.announced {
		if now.Sub(a.at) >= ttl {
			delete(s.announced, contratoID)
		}
	}
	if a, ok := s.announced[c.ID]; ok {
		return a.notificationID, false
	}

	id := s.q.Enqueue(domain.NewContratoCriado(c))
	s.announced[c.ID] = announcement{notificationID: id, at: now}
	return id, true
}

func (s *NotificationService) Snapshot() []Record {
	return s.q.Snapshot()
}

// Dismiss removes a single toast. Unknown or already-retired IDs are not an error.
func (s *NotificationService) Dismiss(id string) bool {
	removed := s.q.Remove(id)
	if removed {
		s.logger.Debug("notification dismissed", zap.String("notification_id", id))
	}
	return removed
}

func (s *NotificationService) DismissAll() {
	s.q.Clear()
}

// Subscribe registers fn for every change of the live toast list.
func (s *NotificationService) Subscribe(fn queue.Listener[domain.ContratoCriado]) (unsubscribe func()) {
	return s.q.Subscribe(fn)
}

// SubscribeWithSnapshot registers fn and returns the live toasts at that
// moment; fn receives only the changes that follow.
func (s *NotificationService) SubscribeWithSnapshot(fn queue.Listener[domain.ContratoCriado]) ([]Record, func()) {
	return s.q.SubscribeWithSnapshot(fn)
}

func (s *NotificationService) Active() int        { return s.q.Len() }
func (s *NotificationService) Subscribers() int   { return s.q.Subscribers() }
func (s *NotificationService) TTL() time.Duration { return s.q.TTL() }
