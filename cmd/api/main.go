package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fddhub/internal/access"
	"fddhub/internal/adapters/storage"
	"fddhub/internal/advisor"
	"fddhub/internal/auth"
	"fddhub/internal/contact"
	"fddhub/internal/email"
	"fddhub/internal/engagement"
	"fddhub/internal/events"
	"fddhub/internal/franchisors"
	apphttp "fddhub/internal/http"
	"fddhub/internal/http/router"
	"fddhub/internal/invitations"
	"fddhub/internal/leads"
	"fddhub/internal/notification"
	"fddhub/internal/pipeline"
	"fddhub/internal/team"
	"fddhub/internal/webhook"
	"fddhub/migrations"
	"fddhub/platform/cache"
	"fddhub/platform/config"
	"fddhub/platform/db"
	"fddhub/platform/logger"
	"fddhub/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const notificationLockPrefix = "fddhub:lock:sales-eligible:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	eventBus := events.NewInMemoryBus(log)

	redisClient, locker := initRedis(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	val := validator.New()
	store := initStorage(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Subscribed to the bus by the router.
	notificationModule := notification.New(pool, sender, cfg, locker, log)

	authModule := auth.NewModule(pool, cfg, val, log)
	franchisorsModule := franchisors.NewModule(pool, log)
	pipelineModule := pipeline.NewModule(pool, eventBus, val, log)
	engagementModule := engagement.NewModule(pool, eventBus, val, log)
	accessModule := access.NewModule(pool, store, cfg.GetMinioBucketSignatures(), eventBus, val, log)
	invitationsModule := invitations.NewModule(
		pool,
		franchisorsModule.Repository(),
		pipelineModule.Service(),
		authModule.Accounts(),
		cfg,
		eventBus,
		val,
		log,
	)
	leadsModule := leads.NewModule(pool, pipelineModule.Service(), log)
	teamModule := team.NewModule(pool, authModule.Accounts(), cfg, eventBus, val, log)
	contactModule := contact.NewModule(pool, sender, val, log)
	webhookModule := webhook.NewModule(accessModule.Service(), store, cfg.GetMinioBucketReceipts(), cfg, log)

	advisorModule, err := advisor.NewModule(ctx, cfg, engagementModule.Service(), val, log)
	if err != nil {
		log.Error("failed to initialize advisor module", "error", err)
		panic("failed to initialize advisor module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:               cfg,
		Logger:               log,
		Health:               pool,
		EventBus:             eventBus,
		FranchisorMembership: franchisorsModule.Middleware(),
		Modules: []apphttp.Module{
			authModule,
			franchisorsModule,
			pipelineModule,
			invitationsModule,
			leadsModule,
			contactModule,
			engagementModule,
			accessModule,
			webhookModule,
			teamModule,
			notificationModule,
			advisorModule,
		},
	}
	if redisClient != nil {
		app.Cache = cache.HealthCheck{Client: redisClient}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis returns a nil client and a no-op locker when REDIS_URL is unset.
func initRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, cache.Locker) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; notification locks are process-local")
		return nil, cache.NoopLocker{}
	}

	var client *redis.Client
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, err := cache.NewRedis(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	return client, cache.NewRedisLocker(client, notificationLockPrefix)
}

// initStorage returns storage.Disabled when MinIO is not configured; signature
// and receipt uploads then fail with a clear error.
func initStorage(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) storage.ObjectStore {
	svc, err := storage.NewMinIOService(cfg)
	if errors.Is(err, storage.ErrDisabled) {
		log.Warn("MINIO_ENDPOINT not configured; signature and receipt storage disabled")
		return storage.Disabled{}
	}
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	for _, bucket := range []string{cfg.GetMinioBucketSignatures(), cfg.GetMinioBucketReceipts()} {
		if err := withRetry(ctx, log, "ensure bucket "+bucket, 5, 2*time.Second, func() error {
			return svc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
	}
	log.Info("storage service initialized", "signaturesBucket", cfg.GetMinioBucketSignatures(), "receiptsBucket", cfg.GetMinioBucketReceipts())
	return svc
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
