package service

import (
	"context"
	"testing"
	"time"

	"github.com/tallyhours/tally/internal/metrics"
	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/testutil"
	"github.com/tallyhours/tally/internal/testutil/memstore"
)

type testEnv struct {
	ctx      context.Context
	store    *memstore.Store
	recorder *metrics.InMemoryRecorder
	logs     *TimeLogService
	reports  *ReportService
	projects *ProjectService
	user     *model.User
	project  *model.Project
	clock    *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestEnv wires the services over a memstore with one user assigned to one project.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	store := memstore.New()
	recorder := metrics.NewInMemory()
	clock := &fakeClock{now: time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)}

	logs := NewTimeLogService(store, recorder)
	logs.now = clock.Now
	reports := NewReportService(store, recorder, time.UTC, time.Sunday)
	reports.now = clock.Now
	projects := NewProjectService(store, recorder)

	user := testutil.NewTestUser(t, "Ada")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	project := testutil.NewTestProject(t, "Apollo")
	if err := store.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if _, err := store.SetProjectMembers(ctx, project.ID, []string{user.ID}); err != nil {
		t.Fatalf("SetProjectMembers() error = %v", err)
	}

	return &testEnv{
		ctx:      ctx,
		store:    store,
		recorder: recorder,
		logs:     logs,
		reports:  reports,
		projects: projects,
		user:     user,
		project:  project,
		clock:    clock,
	}
}

func (e *testEnv) identity(user *model.User) *model.AuthContext {
	return &model.AuthContext{UserID: user.ID, Email: user.Email, Role: user.Role}
}

func (e *testEnv) addUser(t *testing.T, name string) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, name)
	if err := e.store.CreateUser(e.ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func strPtr(s string) *string {
	return &s
}
