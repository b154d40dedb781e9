// Package memstore is an in-memory stand-in for the Postgres repository.
// It honours the same sentinel errors and the one-open-log-per-user rule.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/repository"
)

// Store holds users, projects, rosters and time logs in maps.
type Store struct {
	mu       sync.Mutex
	users    map[string]*model.User
	projects map[string]*model.Project
	members  map[string]map[string]time.Time // project id -> user id -> assigned at
	logs     map[string]*model.TimeLog

	// Err, when set, is returned by every call.
	Err error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[string]*model.User),
		projects: make(map[string]*model.Project),
		members:  make(map[string]map[string]time.Time),
		logs:     make(map[string]*model.TimeLog),
	}
}

// Ping reports the injected error, if any.
func (s *Store) Ping(ctx context.Context) error {
	return s.Err
}

// CreateUser stores a user, rejecting duplicate emails.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

// GetUserByID returns a copy of the user.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// GetUserByEmail returns a copy of the user with that email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		users = append(users, &c)
	}
	sortUsers(users)
	return users, nil
}

// CreateProject stores a project.
func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	p := *project
	p.Members = nil
	s.projects[project.ID] = &p
	return nil
}

// GetProjectByID returns a copy of the project.
func (s *Store) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	p, ok := s.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	c := *p
	return &c, nil
}

// ListProjects returns every project ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	projects := []*model.Project{}
	for _, p := range s.projects {
		c := *p
		projects = append(projects, &c)
	}
	sortProjects(projects)
	return projects, nil
}

// ListProjectsForUser returns the user's assigned projects ordered by name.
func (s *Store) ListProjectsForUser(ctx context.Context, userID string) ([]*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.projectsForUserLocked(userID), nil
}

// IsProjectMember reports roster membership.
func (s *Store) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.members[projectID][userID]
	return ok, nil
}

// SetProjectMembers replaces the roster, failing atomically on unknown users.
func (s *Store) SetProjectMembers(ctx context.Context, projectID string, userIDs []string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	if _, ok := s.projects[projectID]; !ok {
		return nil, repository.ErrProjectNotFound
	}

	var missing []string
	for _, id := range userIDs {
		if _, ok := s.users[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", repository.ErrUnknownUsers, strings.Join(missing, ", "))
	}

	prev := s.members[projectID]
	roster := make(map[string]time.Time, len(userIDs))
	now := time.Now().UTC()
	for _, id := range userIDs {
		if at, ok := prev[id]; ok {
			roster[id] = at
		} else {
			roster[id] = now
		}
	}
	s.members[projectID] = roster

	return s.membersLocked(projectID), nil
}

// RemoveProjectMember drops a user from the roster.
func (s *Store) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if _, ok := s.projects[projectID]; !ok {
		return repository.ErrProjectNotFound
	}
	delete(s.members[projectID], userID)
	return nil
}

// ListProjectMembers returns the project's roster ordered by name.
func (s *Store) ListProjectMembers(ctx context.Context, projectID string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.membersLocked(projectID), nil
}

// ListUsersWithProjects returns USER accounts with their projects.
func (s *Store) ListUsersWithProjects(ctx context.Context) ([]*model.UserProjects, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var users []*model.User
	for _, u := range s.users {
		if u.Role == model.RoleUser {
			c := *u
			users = append(users, &c)
		}
	}
	sortUsers(users)

	result := make([]*model.UserProjects, 0, len(users))
	for _, u := range users {
		result = append(result, &model.UserProjects{User: u, Projects: s.projectsForUserLocked(u.ID)})
	}
	return result, nil
}

// InsertTimeLog stores a log for a roster member, keeping one open log per user.
func (s *Store) InsertTimeLog(ctx context.Context, log *model.TimeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if _, ok := s.members[log.ProjectID][log.UserID]; !ok {
		return repository.ErrNotProjectMember
	}
	if log.IsActive() {
		for _, existing := range s.logs {
			if existing.UserID == log.UserID && existing.IsActive() {
				return repository.ErrTimerRunning
			}
		}
	}

	log.ProjectName = s.projects[log.ProjectID].Name
	s.logs[log.ID] = copyLog(log)
	return nil
}

// GetActiveTimeLog returns the user's open log.
func (s *Store) GetActiveTimeLog(ctx context.Context, userID string) (*model.TimeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	if log := s.activeLocked(userID); log != nil {
		return s.withNameLocked(log), nil
	}
	return nil, repository.ErrNoActiveTimeLog
}

// CloseActiveTimeLog closes the user's open log at end.
func (s *Store) CloseActiveTimeLog(ctx context.Context, userID string, end time.Time) (*model.TimeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	log := s.activeLocked(userID)
	if log == nil {
		return nil, repository.ErrNoActiveTimeLog
	}
	if err := log.Close(end); err != nil {
		return nil, err
	}
	return s.withNameLocked(log), nil
}

// GetTimeLogForUser returns one of the user's logs.
func (s *Store) GetTimeLogForUser(ctx context.Context, id, userID string) (*model.TimeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	log, ok := s.logs[id]
	if !ok || log.UserID != userID {
		return nil, repository.ErrTimeLogNotFound
	}
	return s.withNameLocked(log), nil
}

// UpdateTimeLog writes log while the stored end still equals prevEnd.
func (s *Store) UpdateTimeLog(ctx context.Context, log *model.TimeLog, prevEnd *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	stored, ok := s.logs[log.ID]
	if !ok || stored.UserID != log.UserID {
		return repository.ErrTimeLogNotFound
	}
	if !sameEnd(stored.EndTime, prevEnd) {
		return repository.ErrTimeLogConflict
	}

	created := stored.CreatedAt
	s.logs[log.ID] = copyLog(log)
	s.logs[log.ID].CreatedAt = created
	log.ProjectName = s.projects[log.ProjectID].Name
	return nil
}

// DeleteTimeLog removes one of the user's logs.
func (s *Store) DeleteTimeLog(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	log, ok := s.logs[id]
	if !ok || log.UserID != userID {
		return repository.ErrTimeLogNotFound
	}
	delete(s.logs, id)
	return nil
}

// SummarizeTimeLogs sums closed minutes per window and per project.
func (s *Store) SummarizeTimeLogs(ctx context.Context, userID string, windows model.SummaryWindows) (*model.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	summary := &model.Summary{Projects: []model.ProjectTotal{}}
	perProject := map[string]int{}
	for _, log := range s.logs {
		if log.UserID != userID || log.DurationMinutes == nil {
			continue
		}
		minutes := *log.DurationMinutes
		summary.TotalMinutes += minutes
		if windows.Today.Contains(log.StartTime) {
			summary.TodayMinutes += minutes
		}
		if windows.Week.Contains(log.StartTime) {
			summary.WeekMinutes += minutes
		}
		if windows.Month.Contains(log.StartTime) {
			summary.MonthMinutes += minutes
		}
		perProject[log.ProjectID] += minutes
	}

	for id, total := range perProject {
		summary.Projects = append(summary.Projects, model.ProjectTotal{
			ProjectID:    id,
			ProjectName:  s.projects[id].Name,
			TotalMinutes: total,
		})
	}
	sort.Slice(summary.Projects, func(i, j int) bool {
		a, b := summary.Projects[i], summary.Projects[j]
		if a.TotalMinutes != b.TotalMinutes {
			return a.TotalMinutes > b.TotalMinutes
		}
		return a.ProjectID < b.ProjectID
	})
	return summary, nil
}

// ListTimeLogsFiltered returns matching logs with owner details, newest start first.
func (s *Store) ListTimeLogsFiltered(ctx context.Context, filter model.TimeLogFilter) ([]*model.TimeLogDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	details := []*model.TimeLogDetail{}
	for _, log := range s.logs {
		if filter.UserID != "" && log.UserID != filter.UserID {
			continue
		}
		if filter.ProjectID != "" && log.ProjectID != filter.ProjectID {
			continue
		}
		d := &model.TimeLogDetail{TimeLog: *s.withNameLocked(log)}
		if u, ok := s.users[log.UserID]; ok {
			d.UserName = u.Name
			d.UserEmail = u.Email
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool {
		a, b := details[i], details[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.After(b.StartTime)
		}
		return a.ID > b.ID
	})
	return details, nil
}

// ListTimeLogsByUser returns one page of the user's logs, newest created first.
func (s *Store) ListTimeLogsByUser(ctx context.Context, userID string, limit, offset int) ([]*model.TimeLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	var all []*model.TimeLog
	for _, log := range s.logs {
		if log.UserID == userID {
			all = append(all, s.withNameLocked(log))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	total := len(all)
	page := []*model.TimeLog{}
	for i := offset; i < total && i < offset+limit; i++ {
		page = append(page, all[i])
	}
	return page, total, nil
}

// ActiveCount returns how many open logs the user has. Tests use it to check
// the single-timer invariant directly.
func (s *Store) ActiveCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, log := range s.logs {
		if log.UserID == userID && log.IsActive() {
			n++
		}
	}
	return n
}

// LogCount returns the number of stored logs.
func (s *Store) LogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

func (s *Store) activeLocked(userID string) *model.TimeLog {
	for _, log := range s.logs {
		if log.UserID == userID && log.IsActive() {
			return log
		}
	}
	return nil
}

func (s *Store) withNameLocked(log *model.TimeLog) *model.TimeLog {
	c := copyLog(log)
	if p, ok := s.projects[log.ProjectID]; ok {
		c.ProjectName = p.Name
	}
	return c
}

func (s *Store) membersLocked(projectID string) []*model.User {
	members := []*model.User{}
	for id := range s.members[projectID] {
		c := *s.users[id]
		members = append(members, &c)
	}
	sortUsers(members)
	return members
}

func (s *Store) projectsForUserLocked(userID string) []*model.Project {
	projects := []*model.Project{}
	for projectID, roster := range s.members {
		if _, ok := roster[userID]; ok {
			c := *s.projects[projectID]
			projects = append(projects, &c)
		}
	}
	sortProjects(projects)
	return projects
}

func copyLog(log *model.TimeLog) *model.TimeLog {
	c := *log
	if log.EndTime != nil {
		end := *log.EndTime
		c.EndTime = &end
	}
	if log.DurationMinutes != nil {
		d := *log.DurationMinutes
		c.DurationMinutes = &d
	}
	return &c
}

func sameEnd(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sortUsers(users []*model.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
}

func sortProjects(projects []*model.Project) {
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Name != projects[j].Name {
			return projects[i].Name < projects[j].Name
		}
		return projects[i].ID < projects[j].ID
	})
}
