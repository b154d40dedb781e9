package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/model"
)

// TokenParser validates a bearer token. *auth.TokenManager implements it.
type TokenParser interface {
	Parse(token string) (*model.AuthContext, error)
}

// RevocationChecker reports revoked token ids. *cache.Cache implements it.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger      *slog.Logger
	Tokens      TokenParser
	Revocations RevocationChecker
}

// Authenticate resolves the caller from "Authorization: Bearer <token>" and
// stores the identity in the request context. Failures answer 401 with one
// generic message; a revocation store outage answers 503.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeUnauthorized(w)
				return
			}

			identity, err := cfg.Tokens.Parse(token)
			if err != nil {
				logAuthFailure(cfg.Logger, r, "invalid_token")
				writeUnauthorized(w)
				return
			}

			if cfg.Revocations != nil {
				revoked, err := cfg.Revocations.IsTokenRevoked(r.Context(), identity.TokenID)
				if err != nil {
					cfg.Logger.Error("revocation check failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
					return
				}
				if revoked {
					logAuthFailure(cfg.Logger, r, "revoked_token")
					writeUnauthorized(w)
					return
				}
			}

			ctx := auth.ContextWithAuth(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
}
