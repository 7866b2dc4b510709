package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bookline/ballast/internal/config"
	"github.com/bookline/ballast/internal/infra/persistence"
	"github.com/bookline/ballast/internal/infra/ratelimit"
	"github.com/bookline/ballast/internal/observability"
	"github.com/bookline/ballast/internal/transport/http/handlers"
	"github.com/bookline/ballast/internal/transport/http/middleware"
	"github.com/bookline/ballast/internal/usecase"
	"github.com/bookline/ballast/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func Run(ctx context.Context, cfg config.Config) error {
	start := time.Now()
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	conn, err := persistence.New(ctx, persistence.Config{
		WriteDSN:          cfg.Database.WriteDSN,
		ReadDSN:           cfg.Database.ReadDSN,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return err
	}
	log.Infof("bootstrap: db init in %s", time.Since(start))
	defer conn.Close()

	pingCtx := ctx
	if cfg.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer cancel()
	}
	if err := conn.Ping(pingCtx); err != nil {
		return err
	}
	log.Infof("bootstrap: db ping in %s", time.Since(start))

	metrics := observability.NewMetrics("ballast")

	bookingRepo := persistence.NewBookingRepository(conn)
	outboxRepo := persistence.NewOutboxRepository(conn)
	jobRepo := persistence.NewJobRepository(conn)
	idemRepo := persistence.NewIdempotencyRepository(conn)
	calendarRepo := persistence.NewCalendarRepository(conn)
	alertRepo := persistence.NewAlertRepository(conn)

	verifier := webhook.NewVerifier(cfg.Webhook.SignatureRequired, cfg.Webhook.SignatureTTL)

	jobUC := usecase.NewJob(jobRepo, cfg.Jobs.DefaultMaxAttempts, cfg.Jobs.StaleRunningAfter, log)
	outboxUC := usecase.NewOutbox(outboxRepo, log)
	idemUC := usecase.NewIdempotency(idemRepo, log)
	syncUC := usecase.NewSync(conn, calendarRepo, jobRepo, log)
	bookingUC := usecase.NewBooking(conn, bookingRepo, outboxRepo, syncUC, log)
	webhookUC := usecase.NewWebhook(calendarRepo, syncUC, verifier, log, metrics)
	alertUC := usecase.NewAlert(alertRepo, jobUC, outboxUC, log)

	limiterCfg := ratelimit.Config{PerSecond: cfg.Webhook.RatePerSecond, Burst: cfg.Webhook.RateBurst}
	var limiter ratelimit.Limiter = ratelimit.NewManager(limiterCfg)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		redisLimiter := ratelimit.NewRedisLimiter(redis.NewClient(opts), cfg.Redis.RateWindow, cfg.Redis.RateLimit, limiterCfg, log)
		defer redisLimiter.Close()
		limiter = redisLimiter
		log.Info("bootstrap: redis rate limiter enabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(log), middleware.Metrics(metrics), gin.Recovery())

	handler := handlers.NewHandler(handlers.Services{
		Bookings:    bookingUC,
		Jobs:        jobUC,
		Outbox:      outboxUC,
		Idempotency: idemUC,
		Sync:        syncUC,
		Webhooks:    webhookUC,
		Alerts:      alertUC,
	}, conn, cfg.Idempotency.DefaultTenant)
	routerBuilder := handlers.NewRouter(handler)
	routerBuilder.RegisterRoutes(router,
		middleware.Idempotency(idemRepo, middleware.IdempotencyConfig{
			DefaultTenant: cfg.Idempotency.DefaultTenant,
			SkipPaths:     cfg.Idempotency.SkipPaths,
		}, log, metrics),
		middleware.WebhookRateLimit(limiter, metrics),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("bootstrap: server listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}

	return nil
}

func buildLogger(cfg config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	switch cfg.Log.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	case "console", "":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		return nil, errors.New("log format error: supported values are console or json")
	}
	return log, nil
}
