package handler

import (
	"net/http"
	"time"
)

// QueueStats is the read-only view of the toast queue and forwarding
// outbox used by the JSON metrics endpoint.
type QueueStats interface {
	Active() int
	Subscribers() int
	TTL() time.Duration
}

// MetricsHandler serves a human-readable JSON snapshot.
// Raw Prometheus metrics are available at /metrics via promhttp.
type MetricsHandler struct {
	stats       QueueStats
	outboxDepth func() int
}

// NewMetricsHandler builds the handler. outboxDepth may be nil when
// forwarding is disabled.
func NewMetricsHandler(stats QueueStats, outboxDepth func() int) *MetricsHandler {
	if outboxDepth == nil {
		outboxDepth = func() int { return 0 }
	}
	return &MetricsHandler{stats: stats, outboxDepth: outboxDepth}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time notification queue snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": map[string]any{
			"active":      h.stats.Active(),
			"subscribers": h.stats.Subscribers(),
			"ttl_ms":      h.stats.TTL().Milliseconds(),
		},
		"outbox_depth": h.outboxDepth(),
	})
}
