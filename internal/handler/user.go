package handler

import (
	"log/slog"
	"net/http"

	"github.com/tallyhours/tally/internal/handler/dto"
	"github.com/tallyhours/tally/internal/service"
)

// UserHandler serves the admin user directory.
type UserHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponses(users))
}
