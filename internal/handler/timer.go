package handler

import (
	"log/slog"
	"net/http"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/handler/dto"
	"github.com/tallyhours/tally/internal/service"
)

// TimerHandler handles the start/stop timer.
type TimerHandler struct {
	svc    *service.TimeLogService
	logger *slog.Logger
}

// NewTimerHandler creates a new TimerHandler.
func NewTimerHandler(svc *service.TimeLogService, logger *slog.Logger) *TimerHandler {
	return &TimerHandler{
		svc:    svc,
		logger: logger,
	}
}

// Start handles POST /api/v1/timer/start.
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartTimerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	log, err := h.svc.StartTimer(r.Context(), auth.AuthFromContext(r.Context()), service.StartTimerInput{
		ProjectID:   req.ProjectID,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("timer_started",
		"time_log_id", log.ID,
		"project_id", log.ProjectID,
	)

	writeJSON(w, http.StatusCreated, dto.ToTimeLogResponse(log))
}

// Stop handles POST /api/v1/timer/stop.
func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	log, err := h.svc.StopTimer(r.Context(), auth.AuthFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("timer_stopped",
		"time_log_id", log.ID,
		"duration_minutes", log.Minutes(),
	)

	writeJSON(w, http.StatusOK, dto.ToTimeLogResponse(log))
}

// Status handles GET /api/v1/timer/status.
func (h *TimerHandler) Status(w http.ResponseWriter, r *http.Request) {
	log, err := h.svc.ActiveTimer(r.Context(), auth.AuthFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	var resp dto.TimerStatusResponse
	if log != nil {
		resp.ActiveTimer = dto.ToTimeLogResponse(log)
	}
	writeJSON(w, http.StatusOK, resp)
}
