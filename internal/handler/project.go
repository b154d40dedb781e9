package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tallyhours/tally/internal/auth"
	"github.com/tallyhours/tally/internal/handler/dto"
	"github.com/tallyhours/tally/internal/service"
)

// ProjectHandler handles HTTP requests for projects and their rosters.
type ProjectHandler struct {
	svc    *service.ProjectService
	logger *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(svc *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	project, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("project_created",
		"project_id", project.ID,
		"user_id", auth.UserIDFromContext(r.Context()),
	)

	writeJSON(w, http.StatusCreated, dto.ToProjectResponse(project))
}

// List handles GET /api/v1/projects.
// Admins see every project, users see the ones assigned to them.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.List(r.Context(), auth.AuthFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProjectResponses(projects))
}

// Assign handles PATCH /api/v1/projects/{id}/assign.
func (h *ProjectHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.AssignUsersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.UserIDs == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "userIds must be an array")
		return
	}

	project, err := h.svc.AssignUsers(r.Context(), id, req.UserIDs)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("project_members_set",
		"project_id", project.ID,
		"member_count", len(project.Members),
	)

	writeJSON(w, http.StatusOK, dto.ToProjectMembersResponse(project))
}

// Unassign handles PATCH /api/v1/projects/{id}/unassign.
func (h *ProjectHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UnassignUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.svc.UnassignUser(r.Context(), id, req.UserID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("project_member_removed",
		"project_id", id,
		"member_id", req.UserID,
	)

	writeMessage(w, "User unassigned successfully")
}

// Assignments handles GET /api/v1/projects/assignments.
func (h *ProjectHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Assignments(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserAssignmentsResponses(rows))
}
