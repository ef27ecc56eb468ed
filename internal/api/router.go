package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/plbrasil/hs-notify/internal/api/handler"
	apimw "github.com/plbrasil/hs-notify/internal/api/middleware"
	"github.com/plbrasil/hs-notify/internal/ratelimiter"
	"github.com/plbrasil/hs-notify/internal/service"
)

// Deps is everything the HTTP surface needs from main.
type Deps struct {
	Contratos     *service.ContratoService
	Notifications *service.NotificationService
	// CreateLimiter throttles POST /contratos per client IP; nil disables it.
	CreateLimiter *ratelimiter.KeyedLimiters
	Streams       handler.StreamObserver
	Heartbeat     time.Duration
	OutboxDepth   func() int
	DB            handler.Pinger
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(d.Logger))

	ch := handler.NewContratoHandler(d.Contratos, d.Logger)
	nh := handler.NewNotificationHandler(d.Notifications, d.Heartbeat, d.Streams, d.Logger)
	mh := handler.NewMetricsHandler(d.Notifications, d.OutboxDepth)
	hh := handler.NewHealthHandler(d.DB)

	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/contratos", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if d.CreateLimiter != nil {
					r.Use(apimw.RateLimit(d.CreateLimiter))
				}
				r.Post("/", ch.Create)
			})
			r.Get("/", ch.List)
			r.Get("/{id}", ch.GetByID)
		})

		r.Get("/notifications/stream", nh.Stream)
		r.Get("/notifications", nh.List)
		r.Delete("/notifications", nh.Clear)
		r.Delete("/notifications/{id}", nh.Dismiss)

		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
