package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tallyhours/tally/internal/authz"
	"github.com/tallyhours/tally/internal/middleware"
	"github.com/tallyhours/tally/internal/service"
)

// RouterDeps collects everything the HTTP surface is built from.
type RouterDeps struct {
	Logger *slog.Logger

	Accounts *service.AccountService
	Projects *service.ProjectService
	TimeLogs *service.TimeLogService
	Reports  *service.ReportService

	// Session resolution and authorization.
	Tokens      middleware.TokenParser
	Revocations middleware.RevocationChecker
	Authorizer  middleware.Authorizer

	// Rate limiting. A nil AuthLimiter disables the credential endpoint limit.
	UserLimiter middleware.UserRateLimiter
	AuthLimiter *middleware.IPLimiter
	RateLimit   RateLimitOptions

	// Readiness probes. Nil checkers report "not configured".
	Database HealthChecker
	Cache    HealthChecker

	// Metrics. A nil Gatherer disables /metrics; HTTPMetrics may be nil.
	Gatherer    prometheus.Gatherer
	HTTPMetrics func(http.Handler) http.Handler

	CORSAllowedOrigins []string
	MaxBodySize        int64
	Development        bool
}

// RateLimitOptions configures the per-user API limiter.
type RateLimitOptions struct {
	Enabled bool
	RPM     int
	Burst   int
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := New()
	healthHandler := NewHealthHandler(deps.Database, deps.Cache, logger)
	metricsHandler := NewMetricsHandler(deps.Gatherer)
	authHandler := NewAuthHandler(deps.Accounts, logger)
	userHandler := NewUserHandler(deps.Accounts, logger)
	projectHandler := NewProjectHandler(deps.Projects, logger)
	timeLogHandler := NewTimeLogHandler(deps.TimeLogs, deps.Reports, logger)
	timerHandler := NewTimerHandler(deps.TimeLogs, logger)
	dashboardHandler := NewDashboardHandler(deps.Reports, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, deps.Development))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics)
	}
	r.Use(middleware.Security(deps.Development))
	r.Use(middleware.MaxBodySize(deps.MaxBodySize))
	if len(deps.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:         300,
		}))
	}

	// Probes and scrape (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/", h.Hello)

	authn := middleware.Authenticate(middleware.AuthConfig{
		Logger:      logger,
		Tokens:      deps.Tokens,
		Revocations: deps.Revocations,
	})
	limitUser := middleware.RateLimitUser(middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: deps.UserLimiter,
		Enabled: deps.RateLimit.Enabled && deps.UserLimiter != nil,
		RPM:     deps.RateLimit.RPM,
		Burst:   deps.RateLimit.Burst,
	})
	can := func(capability authz.Capability) func(http.Handler) http.Handler {
		return middleware.RequireCapability(deps.Authorizer, capability, logger)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints, limited per client IP
		r.Group(func(r chi.Router) {
			if deps.AuthLimiter != nil {
				r.Use(middleware.RateLimitAuth(deps.AuthLimiter, logger))
			}
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		// Everything else requires a session
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Use(limitUser)

			r.With(can(authz.SessionManage)).Post("/auth/logout", authHandler.Logout)
			r.With(can(authz.SessionManage)).Get("/auth/me", authHandler.Me)

			r.With(can(authz.UserList)).Get("/users", userHandler.List)

			r.Route("/projects", func(r chi.Router) {
				r.With(can(authz.ProjectList)).Get("/", projectHandler.List)
				r.With(can(authz.ProjectCreate)).Post("/", projectHandler.Create)
				r.With(can(authz.ProjectAssign)).Get("/assignments", projectHandler.Assignments)
				r.With(can(authz.ProjectAssign)).Patch("/{id}/assign", projectHandler.Assign)
				r.With(can(authz.ProjectAssign)).Patch("/{id}/unassign", projectHandler.Unassign)
			})

			r.Route("/time-logs", func(r chi.Router) {
				r.With(can(authz.TimeLogRead)).Get("/", timeLogHandler.List)
				r.With(can(authz.TimeLogWrite)).Post("/", timeLogHandler.Create)
				r.With(can(authz.TimeLogReport)).Get("/summary", timeLogHandler.Summary)
				r.With(can(authz.TimeLogWrite)).Put("/{id}", timeLogHandler.Update)
				r.With(can(authz.TimeLogWrite)).Delete("/{id}", timeLogHandler.Delete)
			})

			r.Route("/timer", func(r chi.Router) {
				r.Use(can(authz.TimerUse))
				r.Post("/start", timerHandler.Start)
				r.Post("/stop", timerHandler.Stop)
				r.Get("/status", timerHandler.Status)
			})

			r.With(can(authz.DashboardView)).Get("/dashboard/stats", dashboardHandler.Stats)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
