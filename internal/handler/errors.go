package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tallyhours/tally/internal/middleware"
	"github.com/tallyhours/tally/internal/service"
)

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", validation.Message)
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request")
	case errors.Is(err, service.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "INVALID_TIME_RANGE", "End time must be after start time")
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrProjectAccessDenied):
		writeError(w, http.StatusForbidden, "PROJECT_ACCESS_DENIED", "Project not found or access denied")
	case errors.Is(err, service.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
	case errors.Is(err, service.ErrTimeLogNotFound):
		writeError(w, http.StatusNotFound, "TIME_LOG_NOT_FOUND", "Time log not found")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrTimerAlreadyRunning):
		writeError(w, http.StatusBadRequest, "TIMER_ALREADY_RUNNING", "Timer already running")
	case errors.Is(err, service.ErrNoActiveTimer):
		writeError(w, http.StatusNotFound, "NO_ACTIVE_TIMER", "No active timer found")
	case errors.Is(err, service.ErrTimerActive):
		writeError(w, http.StatusBadRequest, "TIMER_ACTIVE", "Only the description of a running timer can be edited")
	case errors.Is(err, service.ErrEditConflict):
		writeError(w, http.StatusConflict, "EDIT_CONFLICT", "Time log was modified, reload and try again")
	case errors.Is(err, service.ErrUnknownUser):
		writeError(w, http.StatusBadRequest, "UNKNOWN_USER", "One or more users do not exist")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
	default:
		logger.Error("internal_error",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
