package handler

import (
	"log/slog"
	"net/http"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/handler/dto"
	"github.com/tallyhours/tally/internal/service"
)

// DashboardHandler serves the personal summary.
type DashboardHandler struct {
	svc    *service.ReportService
	logger *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *service.ReportService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		svc:    svc,
		logger: logger,
	}
}

// Stats handles GET /api/v1/dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.PersonalSummary(r.Context(), auth.AuthFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDashboardStatsResponse(summary))
}
