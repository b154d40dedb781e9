package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/handler/dto"
	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/service"
)

// TimeLogHandler handles HTTP requests for time log operations.
type TimeLogHandler struct {
	logs    *service.TimeLogService
	reports *service.ReportService
	logger  *slog.Logger
}

// NewTimeLogHandler creates a new TimeLogHandler.
func NewTimeLogHandler(logs *service.TimeLogService, reports *service.ReportService, logger *slog.Logger) *TimeLogHandler {
	return &TimeLogHandler{
		logs:    logs,
		reports: reports,
		logger:  logger,
	}
}

// Create handles POST /api/v1/time-logs.
func (h *TimeLogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTimeLogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	log, err := h.logs.CreateManual(r.Context(), auth.AuthFromContext(r.Context()), service.CreateTimeLogInput{
		ProjectID:   req.ProjectID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("time_log_created",
		"time_log_id", log.ID,
		"project_id", log.ProjectID,
		"duration_minutes", log.Minutes(),
	)

	writeJSON(w, http.StatusCreated, dto.ToTimeLogResponse(log))
}

// List handles GET /api/v1/time-logs?page&limit.
func (h *TimeLogHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := queryInt(query.Get("page"))
	limit := queryInt(query.Get("limit"))

	result, err := h.reports.PaginatedUserLogs(r.Context(), auth.AuthFromContext(r.Context()), page, limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTimeLogPageResponse(result))
}

// Update handles PUT /api/v1/time-logs/{id}.
func (h *TimeLogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdateTimeLogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	log, err := h.logs.EditManual(r.Context(), auth.AuthFromContext(r.Context()), id, service.UpdateTimeLogInput{
		ProjectID:   req.ProjectID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("time_log_updated", "time_log_id", log.ID)

	writeJSON(w, http.StatusOK, dto.ToTimeLogResponse(log))
}

// Delete handles DELETE /api/v1/time-logs/{id}.
func (h *TimeLogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.logs.Delete(r.Context(), auth.AuthFromContext(r.Context()), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("time_log_deleted", "time_log_id", id)

	writeMessage(w, "Time log deleted successfully")
}

// Summary handles GET /api/v1/time-logs/summary?userId&projectId.
// Empty filters match every log.
func (h *TimeLogHandler) Summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.TimeLogFilter{
		UserID:    query.Get("userId"),
		ProjectID: query.Get("projectId"),
	}

	details, err := h.reports.FilteredLogs(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTimeLogDetailResponses(details))
}

// queryInt parses a positive query value. Anything else yields 0 so the
// service applies its default.
func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
