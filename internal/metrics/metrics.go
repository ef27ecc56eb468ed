package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/queue"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsEnqueued prometheus.Counter
	NotificationsRemoved  *prometheus.CounterVec
	NotificationsActive   prometheus.Gauge
	Subscribers           prometheus.Gauge
	Forwarded             *prometheus.CounterVec
	ForwardFailed         *prometheus.CounterVec
	ForwardLatency        *prometheus.HistogramVec
	ContratosCreated      *prometheus.CounterVec
}

// New registers all instruments with reg and returns the populated Metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_enqueued_total",
			Help: "Total number of notifications published to dashboards.",
		}),

		NotificationsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_removed_total",
			Help: "Total number of notifications retired, by reason (expired, dismissed, cleared).",
		}, []string{"reason"}),

		NotificationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notifications_active",
			Help: "Current number of live notifications.",
		}),

		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_subscribers",
			Help: "Current number of open notification streams.",
		}),

		Forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_forwarded_total",
			Help: "Total number of notifications delivered to the push provider.",
		}, []string{"provider"}),

		ForwardFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_forward_failed_total",
			Help: "Total number of notifications dropped after exhausting forward retries.",
		}, []string{"provider"}),

		ForwardLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_forward_seconds",
			Help:    "Latency from outbox pop to provider ack.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),

		ContratosCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contratos_created_total",
			Help: "Total number of contracts created, by plano.",
		}, []string{"plano"}),
	}

	reg.MustRegister(
		m.NotificationsEnqueued,
		m.NotificationsRemoved,
		m.NotificationsActive,
		m.Subscribers,
		m.Forwarded,
		m.ForwardFailed,
		m.ForwardLatency,
		m.ContratosCreated,
	)

	return m
}

// QueueHooks returns queue hooks that keep the notification counters and
// the active gauge in step with the queue. next, if non-nil, is chained
// after the metric updates.
func (m *Metrics) QueueHooks(next queue.Hooks[domain.ContratoCriado]) queue.Hooks[domain.ContratoCriado] {
	return queue.Hooks[domain.ContratoCriado]{
		OnEnqueue: func(rec queue.Record[domain.ContratoCriado]) {
			m.NotificationsEnqueued.Inc()
			m.NotificationsActive.Inc()
			if next.OnEnqueue != nil {
				next.OnEnqueue(rec)
			}
		},
		OnRemove: func(rec queue.Record[domain.ContratoCriado], reason queue.RemovalReason) {
			m.NotificationsRemoved.WithLabelValues(string(reason)).Inc()
			m.NotificationsActive.Dec()
			if next.OnRemove != nil {
				next.OnRemove(rec, reason)
			}
		},
	}
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
func (m *Metrics) WorkerHooks(provider string) (
	onSent func(latency time.Duration),
	onFailed func(),
) {
	onSent = func(latency time.Duration) {
		m.Forwarded.WithLabelValues(provider).Inc()
		m.ForwardLatency.WithLabelValues(provider).Observe(latency.Seconds())
	}
	onFailed = func() {
		m.ForwardFailed.WithLabelValues(provider).Inc()
	}
	return
}

// ContratoCreated counts a newly persisted contract.
func (m *Metrics) ContratoCreated(plano domain.Plano) {
	m.ContratosCreated.WithLabelValues(string(plano)).Inc()
}

// StreamOpened and StreamClosed track open dashboard streams.
func (m *Metrics) StreamOpened() { m.Subscribers.Inc() }
func (m *Metrics) StreamClosed() { m.Subscribers.Dec() }
