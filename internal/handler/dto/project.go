package dto

import (
	"time"

	"github.com/tallyhours/tally/internal/model"
)

// CreateProjectRequest represents the request body for creating a project.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// AssignUsersRequest replaces a project's roster.
type AssignUsersRequest struct {
	UserIDs []string `json:"userIds"`
}

// UnassignUserRequest removes one member.
type UnassignUserRequest struct {
	UserID string `json:"userId"`
}

// ProjectResponse represents a project in API responses.
type ProjectResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProjectMembersResponse is a project with its full roster.
type ProjectMembersResponse struct {
	ProjectResponse
	Users []*UserResponse `json:"users"`
}

// UserAssignmentsResponse is one user with the projects assigned to them.
type UserAssignmentsResponse struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Projects []ProjectRef `json:"projects"`
}

// ToProjectResponse converts a Project model to ProjectResponse DTO.
func ToProjectResponse(project *model.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:        project.ID,
		Name:      project.Name,
		CreatedAt: project.CreatedAt,
	}
}

// ToProjectMembersResponse converts a project and its members.
func ToProjectMembersResponse(project *model.Project) *ProjectMembersResponse {
	return &ProjectMembersResponse{
		ProjectResponse: *ToProjectResponse(project),
		Users:           ToUserResponses(project.Members),
	}
}

// ToProjectResponses converts a project list.
func ToProjectResponses(projects []*model.Project) []*ProjectResponse {
	out := make([]*ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, ToProjectResponse(p))
	}
	return out
}

// ToUserAssignmentsResponses converts the assignment overview.
func ToUserAssignmentsResponses(rows []*model.UserProjects) []*UserAssignmentsResponse {
	out := make([]*UserAssignmentsResponse, 0, len(rows))
	for _, row := range rows {
		projects := make([]ProjectRef, 0, len(row.Projects))
		for _, p := range row.Projects {
			projects = append(projects, ProjectRef{ID: p.ID, Name: p.Name})
		}
		out = append(out, &UserAssignmentsResponse{
			ID:       row.User.ID,
			Name:     row.User.Name,
			Email:    row.User.Email,
			Projects: projects,
		})
	}
	return out
}
