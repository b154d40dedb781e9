// Package main is the entrypoint for the Tally API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/authz"
	"github.com/tallyhours/tally/internal/cache"
	"github.com/tallyhours/tally/internal/config"
	"github.com/tallyhours/tally/internal/handler"
	"github.com/tallyhours/tally/internal/metrics"
	"github.com/tallyhours/tally/internal/middleware"
	"github.com/tallyhours/tally/internal/repository"
	"github.com/tallyhours/tally/internal/server"
	"github.com/tallyhours/tally/internal/service"
)

const (
	authLimiterIdleTTL       = 10 * time.Minute
	authLimiterSweepInterval = time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Apply schema before the pool starts serving
	if cfg.AutoMigrate {
		if err := repository.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			return err
		}
		logger.Info("migrations applied")
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		return err
	}
	logger.Info("connected to Redis")

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewPrometheus(registry)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.HTTPMetrics(registry)
	if err != nil {
		return err
	}

	// Authorization policy
	authorizer, err := authz.New()
	if err != nil {
		return err
	}

	// Initialize services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	accountService := service.NewAccountService(repo, tokens, cacheClient, recorder)
	projectService := service.NewProjectService(repo, recorder)
	timeLogService := service.NewTimeLogService(repo, recorder)
	reportService := service.NewReportService(repo, recorder, cfg.Location(), cfg.WeekStartDay())

	// Credential endpoint limiter runs its sweeper until shutdown
	authLimiter := middleware.NewIPLimiter(cfg.RateLimitAuthRPM, cfg.RateLimitAuthBurst, authLimiterIdleTTL)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go authLimiter.Run(sweepCtx, authLimiterSweepInterval)

	// Setup router
	r := handler.NewRouter(handler.RouterDeps{
		Logger:      logger,
		Accounts:    accountService,
		Projects:    projectService,
		TimeLogs:    timeLogService,
		Reports:     reportService,
		Tokens:      tokens,
		Revocations: cacheClient,
		Authorizer:  authorizer,
		UserLimiter: cacheClient,
		AuthLimiter: authLimiter,
		RateLimit: handler.RateLimitOptions{
			Enabled: cfg.RateLimitAPIEnabled,
			RPM:     cfg.RateLimitAPIRPM,
			Burst:   cfg.RateLimitAPIBurst,
		},
		Database:           repo,
		Cache:              cacheClient,
		Gatherer:           registry,
		HTTPMetrics:        httpMetrics,
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxBodySize:        cfg.MaxRequestBodySize,
		Development:        cfg.IsDevelopment(),
	})

	// Create and run server
	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Closed in reverse order: limiter sweeper, Redis, then Postgres
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})
	srv.OnShutdown("auth-limiter", func(ctx context.Context) error {
		stopSweep()
		return nil
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"report_timezone", cfg.Location().String(),
		"week_start", cfg.WeekStartDay().String(),
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
