package service

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tallyhours/tally/internal/model"
)

// TimeLogStore persists time logs. *repository.Repository implements it.
type TimeLogStore interface {
	InsertTimeLog(ctx context.Context, log *model.TimeLog) error
	GetActiveTimeLog(ctx context.Context, userID string) (*model.TimeLog, error)
	CloseActiveTimeLog(ctx context.Context, userID string, end time.Time) (*model.TimeLog, error)
	GetTimeLogForUser(ctx context.Context, id, userID string) (*model.TimeLog, error)
	UpdateTimeLog(ctx context.Context, log *model.TimeLog, prevEnd *time.Time) error
	DeleteTimeLog(ctx context.Context, id, userID string) error
	IsProjectMember(ctx context.Context, projectID, userID string) (bool, error)
}

// ReportStore runs aggregate and listing queries over time logs.
type ReportStore interface {
	SummarizeTimeLogs(ctx context.Context, userID string, windows model.SummaryWindows) (*model.Summary, error)
	ListTimeLogsFiltered(ctx context.Context, filter model.TimeLogFilter) ([]*model.TimeLogDetail, error)
	ListTimeLogsByUser(ctx context.Context, userID string, limit, offset int) ([]*model.TimeLog, int, error)
}

// ProjectStore persists projects and their rosters.
type ProjectStore interface {
	CreateProject(ctx context.Context, project *model.Project) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]*model.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]*model.Project, error)
	SetProjectMembers(ctx context.Context, projectID string, userIDs []string) ([]*model.User, error)
	RemoveProjectMember(ctx context.Context, projectID, userID string) error
	ListUsersWithProjects(ctx context.Context) ([]*model.UserProjects, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func newID() string {
	return ulid.Make().String()
}
