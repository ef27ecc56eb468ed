package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/plbrasil/hs-notify/internal/api/middleware"
	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/service"
)

// streamBuffer bounds the snapshots waiting for a slow stream client.
// Every snapshot is the full list, so older ones are dropped first.
const streamBuffer = 8

// StreamObserver is told when a dashboard stream opens and closes.
type StreamObserver interface {
	StreamOpened()
	StreamClosed()
}

// notificationView is the wire form of a live toast.
type notificationView struct {
	ID        string                `json:"id"`
	Payload   domain.ContratoCriado `json:"payload"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

func toViews(recs []service.Record) []notificationView {
	views := make([]notificationView, len(recs))
	for i, rec := range recs {
		views[i] = notificationView{
			ID:        rec.ID,
			Payload:   rec.Payload,
			CreatedAt: rec.CreatedAt,
			ExpiresAt: rec.ExpiresAt(),
		}
	}
	return views
}

// NotificationHandler serves the dashboard toast endpoints.
type NotificationHandler struct {
	svc       *service.NotificationService
	heartbeat time.Duration
	observer  StreamObserver
	logger    *zap.Logger
}

// NewNotificationHandler builds the handler. observer may be nil.
func NewNotificationHandler(
	svc *service.NotificationService,
	heartbeat time.Duration,
	observer StreamObserver,
	logger *zap.Logger,
) *NotificationHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &NotificationHandler{svc: svc, heartbeat: heartbeat, observer: observer, logger: logger}
}

// List handles GET /api/v1/notifications
//
// @Summary  Live notifications, oldest first
// @Tags     notifications
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"data":   toViews(h.svc.Snapshot()),
		"ttl_ms": h.svc.TTL().Milliseconds(),
	})
}

// Dismiss handles DELETE /api/v1/notifications/{id}
//
// Unknown and already-retired IDs are accepted so that two dashboards
// dismissing the same toast both succeed.
//
// @Summary  Dismiss a notification
// @Tags     notifications
// @Param    id  path  string  true  "Notification ID"
// @Success  204
// @Router   /api/v1/notifications/{id} [delete]
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.svc.Dismiss(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/v1/notifications
//
// @Summary  Dismiss every live notification
// @Tags     notifications
// @Success  204
// @Router   /api/v1/notifications [delete]
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.svc.DismissAll()
	h.logger.Info("notifications cleared",
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /api/v1/notifications/stream
//
// Server-Sent Events: one "snapshot" event with the current list, then one
// per change. Comment lines keep idle proxies from closing the connection.
//
// @Summary  Live notification stream
// @Tags     notifications
// @Produce  text/event-stream
// @Success  200
// @Router   /api/v1/notifications/stream [get]
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if h.observer != nil {
		h.observer.StreamOpened()
		defer h.observer.StreamClosed()
	}

	updates := make(chan []service.Record, streamBuffer)
	// Registration and the initial list share one queue lock, so everything
	// on updates is newer than initial. The listener runs under that lock:
	// never block, drop the oldest pending snapshot.
	initial, unsubscribe := h.svc.SubscribeWithSnapshot(func(recs []service.Record) {
		for {
			select {
			case updates <- recs:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log := h.logger.With(zap.String("correlation_id", apimw.GetCorrelationID(r.Context())))
	log.Debug("notification stream opened")
	defer log.Debug("notification stream closed")

	var seq uint64
	send := func(recs []service.Record) error {
		seq++
		data, err := json.Marshal(toViews(recs))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", seq, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if _, err := fmt.Fprint(w, "retry: 3000\n\n"); err != nil {
		return
	}
	if err := send(initial); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case recs := <-updates:
			if err := send(recs); err != nil {
				log.Debug("notification stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
