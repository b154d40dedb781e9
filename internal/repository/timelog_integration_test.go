//go:build integration

package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/testutil"
)

// ============================================================================
// Time Log Repository Integration Tests
// ============================================================================

func openLog(userID, projectID string, start time.Time) *model.TimeLog {
	return &model.TimeLog{
		ID:          testutil.UniqueID("log"),
		UserID:      userID,
		ProjectID:   projectID,
		StartTime:   start.UTC().Truncate(model.TimestampPrecision),
		Description: "timer",
		CreatedAt:   time.Now().UTC().Truncate(model.TimestampPrecision),
	}
}

func TestIntegrationTimeLogRepository_InsertRequiresMembership(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	user, project := seedMember(t, ctx, repo, "Ada")

	outsider := testutil.NewTestUser(t, "Eve")
	if err := repo.CreateUser(ctx, outsider); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	log := testutil.NewClosedTimeLog(t, user.ID, project.ID, start, 95*time.Second)
	if err := repo.InsertTimeLog(ctx, log); err != nil {
		t.Fatalf("InsertTimeLog failed: %v", err)
	}
	if log.ProjectName != project.Name {
		t.Errorf("ProjectName = %q, want %q", log.ProjectName, project.Name)
	}

	stored, err := repo.GetTimeLogForUser(ctx, log.ID, user.ID)
	if err != nil {
		t.Fatalf("GetTimeLogForUser failed: %v", err)
	}
	if stored.Minutes() != 1 || !stored.EndTime.Equal(start.Add(95*time.Second)) {
		t.Errorf("stored log = %+v, want 1 minute ending at +95s", stored)
	}

	foreign := testutil.NewClosedTimeLog(t, outsider.ID, project.ID, start, time.Hour)
	if err := repo.InsertTimeLog(ctx, foreign); !errors.Is(err, ErrNotProjectMember) {
		t.Errorf("expected ErrNotProjectMember, got %v", err)
	}

	if _, err := repo.GetTimeLogForUser(ctx, log.ID, outsider.ID); !errors.Is(err, ErrTimeLogNotFound) {
		t.Errorf("foreign read should be not found, got %v", err)
	}
}

func TestIntegrationTimeLogRepository_OneActivePerUser(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	user, project := seedMember(t, ctx, repo, "Ada")

	first := openLog(user.ID, project.ID, time.Now())
	if err := repo.InsertTimeLog(ctx, first); err != nil {
		t.Fatalf("InsertTimeLog (first) failed: %v", err)
	}

	second := openLog(user.ID, project.ID, time.Now())
	if err := repo.InsertTimeLog(ctx, second); !errors.Is(err, ErrTimerRunning) {
		t.Fatalf("expected ErrTimerRunning, got %v", err)
	}

	active, err := repo.GetActiveTimeLog(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetActiveTimeLog failed: %v", err)
	}
	if active.ID != first.ID {
		t.Errorf("active log = %s, want %s", active.ID, first.ID)
	}
}

func TestIntegrationTimeLogRepository_ConcurrentStarts(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	user, project := seedMember(t, ctx, repo, "Ada")

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.InsertTimeLog(ctx, openLog(user.ID, project.ID, time.Now()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrTimerRunning):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != attempts-1 {
		t.Errorf("succeeded = %d, conflicts = %d; want 1 and %d", succeeded, conflicts, attempts-1)
	}

	var open int
	if err := repo.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM time_logs WHERE user_id = $1 AND end_time IS NULL`, user.ID,
	).Scan(&open); err != nil {
		t.Fatalf("count open logs: %v", err)
	}
	if open != 1 {
		t.Errorf("open logs = %d, want 1", open)
	}
}

func TestIntegrationTimeLogRepository_CloseActive(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	user, project := seedMember(t, ctx, repo, "Ada")

	start := time.Now().UTC().Add(-10 * time.Minute)
	log := openLog(user.ID, project.ID, start)
	if err := repo.InsertTimeLog(ctx, log); err != nil {
		t.Fatalf("InsertTimeLog failed: %v", err)
	}

	closed, err := repo.CloseActiveTimeLog(ctx, user.ID, log.StartTime.Add(95*time.Second))
	if err != nil {
		t.Fatalf("CloseActiveTimeLog failed: %v", err)
	}
	if closed.ID != log.ID || closed.Minutes() != 1 {
		t.Errorf("closed = %+v, want id %s with 1 minute", closed, log.ID)
	}

	if _, err := repo.CloseActiveTimeLog(ctx, user.ID, time.Now()); !errors.Is(err, ErrNoActiveTimeLog) {
		t.Errorf("second close should find no active log, got %v", err)
	}

	stored, err := repo.GetTimeLogForUser(ctx, log.ID, user.ID)
	if err != nil {
		t.Fatalf("GetTimeLogForUser failed: %v", err)
	}
	if !stored.EndTime.Equal(*closed.EndTime) {
		t.Errorf("second close must not touch the closed log: end %v, want %v", stored.EndTime, closed.EndTime)
	}
}

func TestIntegrationTimeLogRepository_UpdateDetectsConflict(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	user, project := seedMember(t, ctx, repo, "Ada")

	log := openLog(user.ID, project.ID, time.Now().Add(-time.Hour))
	if err := repo.InsertTimeLog(ctx, log); err != nil {
		t.Fatalf("InsertTimeLog failed: %v", err)
	}

	// The timer is stopped after the edit was read but before it was written.
	stale := *log
	if _, err := repo.CloseActiveTimeLog(ctx, user.ID, time.Now()); err != nil {
		t.Fatalf("CloseActiveTimeLog failed: %v", err)
	}

	stale.Description = "renamed"
	if err := repo.UpdateTimeLog(ctx, &stale, nil); !errors.Is(err, ErrTimeLogConflict) {
		t.Fatalf("expected ErrTimeLogConflict, got %v", err)
	}

	missing := stale
	missing.ID = "does-not-exist"
	if err := repo.UpdateTimeLog(ctx, &missing, nil); !errors.Is(err, ErrTimeLogNotFound) {
		t.Errorf("expected ErrTimeLogNotFound, got %v", err)
	}
}

func TestIntegrationTimeLogRepository_Delete(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	user, project := seedMember(t, ctx, repo, "Ada")

	log := testutil.NewClosedTimeLog(t, user.ID, project.ID, time.Now().Add(-time.Hour), 30*time.Minute)
	if err := repo.InsertTimeLog(ctx, log); err != nil {
		t.Fatalf("InsertTimeLog failed: %v", err)
	}

	if err := repo.DeleteTimeLog(ctx, log.ID, "someone-else"); !errors.Is(err, ErrTimeLogNotFound) {
		t.Errorf("foreign delete should be not found, got %v", err)
	}
	if err := repo.DeleteTimeLog(ctx, log.ID, user.ID); err != nil {
		t.Fatalf("DeleteTimeLog failed: %v", err)
	}
	if err := repo.DeleteTimeLog(ctx, log.ID, user.ID); !errors.Is(err, ErrTimeLogNotFound) {
		t.Errorf("repeat delete should be not found, got %v", err)
	}
}

func TestIntegrationReportRepository_Summarize(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	user, project := seedMember(t, ctx, repo, "Ada")

	day := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	for i, minutes := range []int{30, 45, 25} {
		start := day.Add(time.Duration(9+i) * time.Hour)
		log := testutil.NewClosedTimeLog(t, user.ID, project.ID, start, time.Duration(minutes)*time.Minute)
		if err := repo.InsertTimeLog(ctx, log); err != nil {
			t.Fatalf("InsertTimeLog failed: %v", err)
		}
	}
	older := testutil.NewClosedTimeLog(t, user.ID, project.ID, day.AddDate(0, -1, 0), time.Hour)
	if err := repo.InsertTimeLog(ctx, older); err != nil {
		t.Fatalf("InsertTimeLog failed: %v", err)
	}
	if err := repo.InsertTimeLog(ctx, openLog(user.ID, project.ID, day.Add(15*time.Hour))); err != nil {
		t.Fatalf("InsertTimeLog (open) failed: %v", err)
	}

	windows := model.SummaryWindows{
		Today: model.Window{Start: day, End: day.AddDate(0, 0, 1)},
		Week:  model.Window{Start: day.AddDate(0, 0, -3), End: day.AddDate(0, 0, 4)},
		Month: model.Window{Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	summary, err := repo.SummarizeTimeLogs(ctx, user.ID, windows)
	if err != nil {
		t.Fatalf("SummarizeTimeLogs failed: %v", err)
	}

	if summary.TodayMinutes != 100 || summary.WeekMinutes != 100 || summary.MonthMinutes != 100 {
		t.Errorf("window totals = %d/%d/%d, want 100 each", summary.TodayMinutes, summary.WeekMinutes, summary.MonthMinutes)
	}
	if summary.TotalMinutes != 160 {
		t.Errorf("TotalMinutes = %d, want 160", summary.TotalMinutes)
	}
	if len(summary.Projects) != 1 || summary.Projects[0].TotalMinutes != 160 || summary.Projects[0].ProjectName != project.Name {
		t.Errorf("unexpected per-project totals: %+v", summary.Projects)
	}
}

func TestIntegrationReportRepository_ListByUserPaginates(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	user, project := seedMember(t, ctx, repo, "Ada")

	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		log := testutil.NewClosedTimeLog(t, user.ID, project.ID, base.Add(time.Duration(i)*time.Hour), time.Hour)
		log.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.InsertTimeLog(ctx, log); err != nil {
			t.Fatalf("InsertTimeLog failed: %v", err)
		}
	}

	logs, total, err := repo.ListTimeLogsByUser(ctx, user.ID, 2, 0)
	if err != nil {
		t.Fatalf("ListTimeLogsByUser failed: %v", err)
	}
	if total != 5 || len(logs) != 2 {
		t.Fatalf("total = %d, page = %d; want 5 and 2", total, len(logs))
	}
	if !logs[0].CreatedAt.After(logs[1].CreatedAt) {
		t.Error("logs should be ordered newest created first")
	}

	details, err := repo.ListTimeLogsFiltered(ctx, model.TimeLogFilter{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("ListTimeLogsFiltered failed: %v", err)
	}
	if len(details) != 5 || details[0].UserName != user.Name {
		t.Errorf("unexpected filtered rows: %d, first user %q", len(details), details[0].UserName)
	}
}
