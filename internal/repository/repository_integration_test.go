//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/testutil"
)

func newRepoTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}

// seedMember stores a user and a project with the user on its roster.
func seedMember(t *testing.T, ctx context.Context, repo *Repository, name string) (*model.User, *model.Project) {
	t.Helper()

	user := testutil.NewTestUser(t, name)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	project := testutil.NewTestProject(t, name+" project")
	if err := repo.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if _, err := repo.SetProjectMembers(ctx, project.ID, []string{user.ID}); err != nil {
		t.Fatalf("SetProjectMembers failed: %v", err)
	}
	return user, project
}
