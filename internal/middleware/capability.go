package middleware

import (
	"log/slog"
	"net/http"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/authz"
	"github.com/tallyhours/tally/internal/model"
)

// Authorizer decides whether a role holds a capability. *authz.Authorizer implements it.
type Authorizer interface {
	Allowed(role model.Role, capability authz.Capability) (bool, error)
}

// RequireCapability allows the request only when the authenticated caller's
// role holds capability. It must run after Authenticate.
func RequireCapability(authorizer Authorizer, capability authz.Capability, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.AuthFromContext(r.Context())
			if identity == nil {
				writeUnauthorized(w)
				return
			}

			ok, err := authorizer.Allowed(identity.Role, capability)
			if err != nil {
				logger.Error("authorization check failed",
					slog.String("error", err.Error()),
					slog.String("capability", string(capability)),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}
			if !ok {
				logger.Warn("capability denied",
					slog.String("user_id", identity.UserID),
					slog.String("role", string(identity.Role)),
					slog.String("capability", string(capability)),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
