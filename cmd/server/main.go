package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/plbrasil/hs-notify/internal/api"
	"github.com/plbrasil/hs-notify/internal/api/handler"
	"github.com/plbrasil/hs-notify/internal/config"
	"github.com/plbrasil/hs-notify/internal/db"
	"github.com/plbrasil/hs-notify/internal/domain"
	"github.com/plbrasil/hs-notify/internal/metrics"
	"github.com/plbrasil/hs-notify/internal/provider"
	"github.com/plbrasil/hs-notify/internal/queue"
	"github.com/plbrasil/hs-notify/internal/ratelimiter"
	"github.com/plbrasil/hs-notify/internal/repository"
	"github.com/plbrasil/hs-notify/internal/service"
	"github.com/plbrasil/hs-notify/internal/worker"
)

// relayGrace keeps the relay away from contracts whose request is still publishing.
const relayGrace = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	// ---- database ----
	ctx := context.Background()
	repo, pinger, closeDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer closeDB()

	// ---- forwarding ----
	prov, err := newProvider(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to configure forwarding provider", zap.Error(err))
	}
	forwarding := cfg.ForwardProvider != config.ProviderNone

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var (
		outbox      *worker.Outbox
		downstream  queue.Hooks[domain.ContratoCriado]
		outboxDepth func() int
	)
	if forwarding {
		outbox = worker.NewOutbox(cfg.OutboxSize)
		downstream = outbox.QueueHooks(logger)
		outboxDepth = outbox.Depth
	}

	q := queue.New(queue.Options{TTL: cfg.NotificationTTL}, m.QueueHooks(downstream))
	notifier := service.NewNotificationService(q, repo, logger)
	contratos := service.NewContratoService(repo, notifier, logger, m.ContratoCreated)

	// ---- background workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var pool *worker.Pool
	if forwarding {
		onSent, onFailed := m.WorkerHooks(prov.Name())
		pool = worker.NewPool(cfg, outbox, prov, ratelimiter.New(cfg.ForwardRatePerSec, 0), q.Contains, logger,
			worker.MetricHooks{OnSent: onSent, OnFailed: onFailed})
		pool.Start(workerCtx)
	}

	relay := worker.NewRelayWorker(repo, notifier, cfg.NotificationTTL, relayGrace, cfg.RelayInterval, logger)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(workerCtx)
	}()

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Contratos:     contratos,
		Notifications: notifier,
		CreateLimiter: ratelimiter.New(cfg.CreateRatePerSec, cfg.CreateBurst),
		Streams:       m,
		Heartbeat:     cfg.StreamHeartbeat,
		OutboxDepth:   outboxDepth,
		DB:            pinger,
		Gatherer:      reg,
		Logger:        logger,
	})
	// Event streams never finish on their own; their requests derive from
	// streamCtx, which is cancelled as soon as Shutdown starts.
	streamCtx, closeStreams := context.WithCancel(ctx)
	defer closeStreams()
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return streamCtx },
	}
	srv.RegisterOnShutdown(closeStreams)

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.Duration("notification_ttl", cfg.NotificationTTL),
			zap.String("forward_provider", prov.Name()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal forwarders and the relay to stop.
	cancelWorkers()

	// 3. Wait for in-flight deliveries and the relay.
	if pool != nil {
		pool.Wait()
	}
	<-relayDone

	// 4. Stop pending expiry timers. Live toasts are not persisted.
	logger.Info("discarding live notifications", zap.Int("active", q.Len()))
	q.Close()

	logger.Info("server stopped cleanly")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// openStore connects to the configured database and returns the contract
// repository, a readiness pinger and a close function.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (
	repository.ContratoRepository, handler.Pinger, func(), error,
) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("sqlite database ready", zap.String("path", cfg.SQLitePath))
		closeFn := func() { _ = sqlDB.Close() }
		return repository.NewSQLiteContratoRepository(sqlDB), handler.PingFunc(sqlDB.PingContext), closeFn, nil

	default:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations applied")
		return repository.NewPgContratoRepository(pool), pool, pool.Close, nil
	}
}

func newProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.ForwardProvider {
	case config.ProviderWebhook:
		return provider.NewWebhookProvider(cfg.WebhookURL, cfg.WebhookTimeout), nil
	case config.ProviderFCM:
		p, err := provider.NewFCMProvider(ctx, cfg.FCMCredentials, cfg.FCMTopic)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return provider.NopProvider{}, nil
	}
}
