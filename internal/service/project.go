package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tallyhours/tally/internal/metrics"
	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/repository"
)

const maxProjectNameLength = 200

// ProjectService manages projects and their rosters.
type ProjectService struct {
	store   ProjectStore
	metrics metrics.Recorder
	now     Clock
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store ProjectStore, recorder metrics.Recorder) *ProjectService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ProjectService{
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// Create adds a project with an empty roster.
func (s *ProjectService) Create(ctx context.Context, name string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("Project name is required")
	}
	if utf8.RuneCountInString(name) > maxProjectNameLength {
		return nil, validationError(fmt.Sprintf("Project name must be at most %d characters", maxProjectNameLength))
	}

	project := &model.Project{
		ID:        newID(),
		Name:      name,
		CreatedAt: s.now().UTC().Truncate(model.TimestampPrecision),
		Members:   []*model.User{},
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.metrics.IncProjectCreated()
	return project, nil
}

// List returns every project for admins and the assigned projects for users.
func (s *ProjectService) List(ctx context.Context, identity *model.AuthContext) ([]*model.Project, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	var (
		projects []*model.Project
		err      error
	)
	if identity.Role == model.RoleAdmin {
		projects, err = s.store.ListProjects(ctx)
	} else {
		projects, err = s.store.ListProjectsForUser(ctx, identity.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// AssignUsers replaces the project's roster with userIDs.
// Duplicates are collapsed. If any id is unknown nothing changes.
func (s *ProjectService) AssignUsers(ctx context.Context, projectID string, userIDs []string) (*model.Project, error) {
	ids, err := dedupeIDs(userIDs)
	if err != nil {
		return nil, err
	}

	project, err := s.store.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	members, err := s.store.SetProjectMembers(ctx, projectID, ids)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProjectNotFound):
			return nil, ErrProjectNotFound
		case errors.Is(err, repository.ErrUnknownUsers):
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to assign users: %w", err)
	}

	project.Members = members
	return project, nil
}

// UnassignUser removes one user from the roster. Their existing logs are kept.
func (s *ProjectService) UnassignUser(ctx context.Context, projectID, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return validationError("userId is required")
	}

	if err := s.store.RemoveProjectMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to unassign user: %w", err)
	}
	return nil
}

// Assignments lists USER accounts with the projects each is assigned to.
func (s *ProjectService) Assignments(ctx context.Context) ([]*model.UserProjects, error) {
	result, err := s.store.ListUsersWithProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return result, nil
}

func dedupeIDs(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, validationError("userIds must not contain empty values")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
