package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/sentinel/internal/auth"
	"github.com/BradenHooton/sentinel/internal/background"
	"github.com/BradenHooton/sentinel/internal/config"
	"github.com/BradenHooton/sentinel/internal/database"
	"github.com/BradenHooton/sentinel/internal/handlers"
	"github.com/BradenHooton/sentinel/internal/metrics"
	middlewareCustom "github.com/BradenHooton/sentinel/internal/middleware"
	"github.com/BradenHooton/sentinel/internal/notify"
	"github.com/BradenHooton/sentinel/internal/repositories"
	"github.com/BradenHooton/sentinel/internal/routes"
	"github.com/BradenHooton/sentinel/internal/services"
	pkghttp "github.com/BradenHooton/sentinel/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// attemptBackend is an attempt store that can also purge old events
type attemptBackend interface {
	services.AttemptStore
	background.Purger
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("attempt_store", cfg.Store.AttemptBackend),
		slog.String("alert_store", cfg.Store.AlertBackend),
	)

	healthChecks := map[string]handlers.HealthCheck{}

	// Initialize database
	var db *database.DB
	if cfg.Store.UsesPostgres() {
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		healthChecks["database"] = db.HealthCheck
	}

	// Initialize repositories
	var attempts attemptBackend
	switch cfg.Store.AttemptBackend {
	case config.BackendPostgres:
		attempts = repositories.NewAttemptRepository(db)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		healthChecks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		attempts = repositories.NewRedisAttemptStore(client, cfg.Redis.KeyPrefix, cfg.Retention.AttemptRetention)
	default:
		attempts = repositories.NewMemoryAttemptStore()
	}

	var (
		ruleStore    services.AlertRuleStore
		historyStore services.AlertHistoryStore
	)
	if cfg.Store.AlertBackend == config.BackendPostgres {
		ruleStore = repositories.NewAlertRuleRepository(db)
		historyStore = repositories.NewAlertHistoryRepository(db)
	} else {
		ruleStore = repositories.NewMemoryAlertRuleStore()
		historyStore = repositories.NewMemoryAlertHistoryStore()
	}

	// Audit logs are persisted only when a database is available
	var auditRepo *repositories.AuditLogRepository
	var auditStore services.AuditLogRepository
	if db != nil {
		auditRepo = repositories.NewAuditLogRepository(db)
		auditStore = auditRepo
	}
	auditService := services.NewAuditService(auditStore, logger)

	// Notification channels
	sink, closeSinks := buildNotificationSink(cfg, logger)
	defer closeSinks()

	m := metrics.New()

	attemptGate := services.NewAttemptGate(attempts, auditService, cfg.Rules.Attempts, logger,
		services.WithMetrics(m),
	)
	alertGate := services.NewAlertGate(ruleStore, historyStore, sink, cfg.Rules.Alerts, logger,
		services.WithMetrics(m),
		services.WithAlertAudit(auditService),
	)

	// Initialize cleanup manager
	purgeTargets := []background.PurgeTarget{
		{Name: "attempt_events", Store: attempts, Retention: cfg.Retention.AttemptRetention},
	}
	if auditRepo != nil {
		purgeTargets = append(purgeTargets, background.PurgeTarget{
			Name: "audit_logs", Store: auditRepo, Retention: cfg.Retention.AuditRetention,
		})
	}
	cleanupManager := background.NewCleanupManager(purgeTargets, logger, cfg.Retention.CleanupInterval)

	tokenManager := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.Issuer)
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecureLogger(logger, m))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	rateLimit := middlewareCustom.DefaultAPIRateLimit(ipConfig)
	rateLimit.Requests = cfg.Server.APIRateLimit
	rateLimit.Window = cfg.Server.APIRateWindow

	// Register routes
	routes.RegisterRoutes(router, routes.Handlers{
		Attempts: handlers.NewAttemptHandler(attemptGate, ipConfig),
		Alerts:   handlers.NewAlertHandler(alertGate),
		Audit:    handlers.NewAuditHandler(auditService),
		Health:   handlers.NewHealthHandler(healthChecks),
		Metrics:  m.Handler(),
	}, tokenManager, rateLimit, logger)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// buildNotificationSink fans alerts out to the log and to every configured
// channel. A channel that fails to start is skipped, not fatal.
func buildNotificationSink(cfg *config.Config, logger *slog.Logger) (notify.Sink, func()) {
	sinks := []notify.Sink{notify.NewLogSink(logger)}
	closers := []func(){}

	if cfg.NATS.Enabled() {
		natsSink, err := notify.NewNATSSink(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logger.Error("failed to connect to NATS, alerts will not be published", slog.Any("error", err))
		} else {
			sinks = append(sinks, natsSink)
			closers = append(closers, natsSink.Close)
		}
	}

	if cfg.SES.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesSink, err := notify.NewSESSink(ctx, cfg.SES.Region, cfg.SES.FromAddress, cfg.SES.Recipients, cfg.SES.MinSeverity, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize SES, alerts will not be e-mailed", slog.Any("error", err))
		} else {
			sinks = append(sinks, sesSink)
		}
	}

	multi := notify.NewMultiSink(sinks...)
	logger.Info("notification channels ready", slog.Int("channels", multi.Len()))

	return multi, func() {
		for _, c := range closers {
			c()
		}
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
