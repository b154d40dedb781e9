package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tallyhours/tally/internal/model"
)

func TestTimeLogService_TimerStartStop(t *testing.T) {
	env := newTestEnv(t)
	id := env.identity(env.user)
	t0 := env.clock.now

	active, err := env.logs.StartTimer(env.ctx, id, StartTimerInput{ProjectID: env.project.ID, Description: "pairing"})
	if err != nil {
		t.Fatalf("StartTimer() error = %v", err)
	}
	if !active.IsActive() || active.DurationMinutes != nil {
		t.Fatalf("started log should be active with no duration, got end=%v duration=%v", active.EndTime, active.DurationMinutes)
	}
	if active.ProjectName != "Apollo" {
		t.Errorf("ProjectName = %q, want Apollo", active.ProjectName)
	}

	env.clock.Advance(95 * time.Second)
	closed, err := env.logs.StopTimer(env.ctx, id)
	if err != nil {
		t.Fatalf("StopTimer() error = %v", err)
	}
	if closed.Minutes() != 1 {
		t.Errorf("duration = %d, want 1", closed.Minutes())
	}
	if !closed.EndTime.Equal(t0.Add(95 * time.Second)) {
		t.Errorf("EndTime = %v, want %v", closed.EndTime, t0.Add(95*time.Second))
	}

	snap := env.recorder.Snapshot()
	if snap.TimersStarted != 1 || snap.TimersStopped != 1 || snap.TimerLogsCreated != 1 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestTimeLogService_StartWhileRunning(t *testing.T) {
	env := newTestEnv(t)
	id := env.identity(env.user)

	if _, err := env.logs.StartTimer(env.ctx, id, StartTimerInput{ProjectID: env.project.ID, Description: "first"}); err != nil {
		t.Fatalf("StartTimer() error = %v", err)
	}

	_, err := env.logs.StartTimer(env.ctx, id, StartTimerInput{ProjectID: env.project.ID, Description: "second"})
	if !errors.Is(err, ErrTimerAlreadyRunning) {
		t.Fatalf("second StartTimer() error = %v, want ErrTimerAlreadyRunning", err)
	}
	if got := env.store.LogCount(); got != 1 {
		t.Errorf("LogCount() = %d, want 1", got)
	}
	if got := env.recorder.Snapshot().TimerConflicts; got != 1 {
		t.Errorf("TimerConflicts = %d, want 1", got)
	}
}

func TestTimeLogService_ConcurrentStartsOpenOneTimer(t *testing.T) {
	env := newTestEnv(t)
	id := env.identity(env.user)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.logs.StartTimer(context.Background(), id, StartTimerInput{ProjectID: env.project.ID, Description: "race"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrTimerAlreadyRunning) {
				t.Errorf("StartTimer() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("successful starts = %d, want 1", succeeded)
	}
	if got := env.store.ActiveCount(env.user.ID); got != 1 {
		t.Errorf("ActiveCount() = %d, want 1", got)
	}
}

func TestTimeLogService_StopTwice(t *testing.T) {
	env := newTestEnv(t)
	id := env.identity(env.user)

	if _, err := env.logs.StartTimer(env.ctx, id, StartTimerInput{ProjectID: env.project.ID, Description: "once"}); err != nil {
		t.Fatalf("StartTimer() error = %v", err)
	}
	env.clock.Advance(10 * time.Minute)
	first, err := env.logs.StopTimer(env.ctx, id)
	if err != nil {
		t.Fatalf("StopTimer() error = %v", err)
	}

	env.clock.Advance(10 * time.Minute)
	if _, err := env.logs.StopTimer(env.ctx, id); !errors.Is(err, ErrNoActiveTimer) {
		t.Fatalf("second StopTimer() error = %v, want ErrNoActiveTimer", err)
	}

	stored, err := env.store.GetTimeLogForUser(env.ctx, first.ID, env.user.ID)
	if err != nil {
		t.Fatalf("GetTimeLogForUser() error = %v", err)
	}
	if stored.Minutes() != 10 || !stored.EndTime.Equal(*first.EndTime) {
		t.Errorf("closed log changed: minutes=%d end=%v", stored.Minutes(), stored.EndTime)
	}
}

func TestTimeLogService_StopWithoutTimer(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.logs.StopTimer(env.ctx, env.identity(env.user)); !errors.Is(err, ErrNoActiveTimer) {
		t.Fatalf("StopTimer() error = %v, want ErrNoActiveTimer", err)
	}
}

func TestTimeLogService_ActiveTimer(t *testing.T) {
	env := newTestEnv(t)
	id := env.identity(env.user)

	got, err := env.logs.ActiveTimer(env.ctx, id)
	if err != nil || got != nil {
		t.Fatalf("ActiveTimer() = %v, %v; want nil, nil", got, err)
	}

	started, err := env.logs.StartTimer(env.ctx, id, StartTimerInput{ProjectID: env.project.ID, Description: "status"})
	if err != nil {
		t.Fatalf("StartTimer() error = %v", err)
	}
	got, err = env.logs.ActiveTimer(env.ctx, id)
	if err != nil {
		t.Fatalf("ActiveTimer() error = %v", err)
	}
	if got == nil || got.ID != started.ID {
		t.Errorf("ActiveTimer() = %v, want %s", got, started.ID)
	}
}

func TestTimeLogService_CreateManualValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.identity(env.user)
	outsider := env.addUser(t, "Grace")

	ten := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	nine := ten.Add(-time.Hour)

	tests := []struct {
		name     string
		identity *model.AuthContext
		input    CreateTimeLogInput
		wantErr  error
	}{
		{
			name:     "missing description",
			identity: id,
			input:    CreateTimeLogInput{ProjectID: env.project.ID, StartTime: &nine, EndTime: &ten},
			wantErr:  ErrValidation,
		},
		{
			name:     "missing end",
			identity: id,
			input:    CreateTimeLogInput{ProjectID: env.project.ID, StartTime: &nine, Description: "x"},
			wantErr:  ErrValidation,
		},
		{
			name:     "end before start",
			identity: id,
			input:    CreateTimeLogInput{ProjectID: env.project.ID, StartTime: &ten, EndTime: &nine, Description: "x"},
			wantErr:  ErrInvalidTimeRange,
		},
		{
			name:     "end equals start",
			identity: id,
			input:    CreateTimeLogInput{ProjectID: env.project.ID, StartTime: &ten, EndTime: &ten, Description: "x"},
			wantErr:  ErrInvalidTimeRange,
		},
		{
			name:     "project not assigned",
			identity: env.identity(outsider),
			input:    CreateTimeLogInput{ProjectID: env.project.ID, StartTime: &nine, EndTime: &ten, Description: "x"},
			wantErr:  ErrProjectAccessDenied,
		},
		{
			name:     "unknown project",
			identity: id,
			input:    CreateTimeLogInput{ProjectID: "missing", StartTime: &nine, EndTime: &ten, Description: "x"},
			wantErr:  ErrProjectAccessDenied,
		},
		{
			name:    "no identity",
			input:   CreateTimeLogInput{ProjectID: env.project.ID, StartTime: &nine, EndTime: &ten, Description: "x"},
			wantErr: ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.logs.CreateManual(env.ctx, tt.identity, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateManual() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := env.store.LogCount(); got != 0 {
		t.Errorf("LogCount() = %d, want 0 after rejected creates", got)
	}
}

func TestTimeLogService_AssignedUsersOnly(t *testing.T) {
	env := newTestEnv(t)
	u2 := env.addUser(t, "Barbara")
	u3 := env.addUser(t, "Charles")

	if _, err := env.projects.AssignUsers(env.ctx, env.project.ID, []string{env.user.ID, u2.ID}); err != nil {
		t.Fatalf("AssignUsers() error = %v", err)
	}

	start := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)
	input := CreateTimeLogInput{ProjectID: env.project.ID, StartTime: &start, EndTime: &end, Description: "review"}

	log, err := env.logs.CreateManual(env.ctx, env.identity(env.user), input)
	if err != nil {
		t.Fatalf("CreateManual() for assigned user error = %v", err)
	}
	if log.Minutes() != 45 || log.ProjectName != "Apollo" {
		t.Errorf("created log minutes=%d project=%q", log.Minutes(), log.ProjectName)
	}

	if _, err := env.logs.CreateManual(env.ctx, env.identity(u3), input); !errors.Is(err, ErrProjectAccessDenied) {
		t.Fatalf("CreateManual() for unassigned user error = %v, want ErrProjectAccessDenied", err)
	}
	if _, err := env.logs.StartTimer(env.ctx, env.identity(u3), StartTimerInput{ProjectID: env.project.ID, Description: "x"}); !errors.Is(err, ErrProjectAccessDenied) {
		t.Fatalf("StartTimer() for unassigned user error = %v, want ErrProjectAccessDenied", err)
	}
}

func TestTimeLogService_StartTimerValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.logs.StartTimer(env.ctx, env.identity(env.user), StartTimerInput{ProjectID: env.project.ID, Description: "   "})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("StartTimer() error = %v, want *ValidationError", err)
	}
	if ve.Message != "Project ID and description are required" {
		t.Errorf("Message = %q", ve.Message)
	}
}

func createClosed(t *testing.T, env *testEnv, start time.Time, length time.Duration) *model.TimeLog {
	t.Helper()
	end := start.Add(length)
	log, err := env.logs.CreateManual(env.ctx, env.identity(env.user), CreateTimeLogInput{
		ProjectID:   env.project.ID,
		StartTime:   &start,
		EndTime:     &end,
		Description: "work",
	})
	if err != nil {
		t.Fatalf("CreateManual() error = %v", err)
	}
	return log
}

func TestTimeLogService_EditDescriptionKeepsDuration(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	log := createClosed(t, env, start, 50*time.Minute+30*time.Second)

	updated, err := env.logs.EditManual(env.ctx, env.identity(env.user), log.ID, UpdateTimeLogInput{Description: strPtr("renamed")})
	if err != nil {
		t.Fatalf("EditManual() error = %v", err)
	}
	if updated.Description != "renamed" {
		t.Errorf("Description = %q, want renamed", updated.Description)
	}
	if updated.Minutes() != 50 || !updated.EndTime.Equal(*log.EndTime) {
		t.Errorf("duration/end changed: minutes=%d end=%v", updated.Minutes(), updated.EndTime)
	}
}

func TestTimeLogService_EditRecomputesDuration(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	log := createClosed(t, env, start, 30*time.Minute)

	newEnd := start.Add(2*time.Hour + 59*time.Second)
	updated, err := env.logs.EditManual(env.ctx, env.identity(env.user), log.ID, UpdateTimeLogInput{EndTime: &newEnd})
	if err != nil {
		t.Fatalf("EditManual() error = %v", err)
	}
	if updated.Minutes() != 120 {
		t.Errorf("Minutes() = %d, want 120", updated.Minutes())
	}

	stored, err := env.store.GetTimeLogForUser(env.ctx, log.ID, env.user.ID)
	if err != nil {
		t.Fatalf("GetTimeLogForUser() error = %v", err)
	}
	if stored.Minutes() != 120 {
		t.Errorf("stored Minutes() = %d, want 120", stored.Minutes())
	}
	if got := env.recorder.Snapshot().TimeLogsUpdated; got != 1 {
		t.Errorf("TimeLogsUpdated = %d, want 1", got)
	}
}

func TestTimeLogService_EditRejections(t *testing.T) {
	env := newTestEnv(t)
	other := env.addUser(t, "Edsger")
	unassigned := &model.Project{ID: "project-unassigned", Name: "Gemini", CreatedAt: time.Now().UTC()}
	if err := env.store.CreateProject(env.ctx, unassigned); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	start := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	log := createClosed(t, env, start, time.Hour)
	before := start.Add(-time.Minute)

	tests := []struct {
		name     string
		identity *model.AuthContext
		id       string
		input    UpdateTimeLogInput
		wantErr  error
	}{
		{"end before start", env.identity(env.user), log.ID, UpdateTimeLogInput{EndTime: &before}, ErrInvalidTimeRange},
		{"start after end", env.identity(env.user), log.ID, UpdateTimeLogInput{StartTime: timePtr(start.Add(2 * time.Hour))}, ErrInvalidTimeRange},
		{"unassigned project", env.identity(env.user), log.ID, UpdateTimeLogInput{ProjectID: strPtr(unassigned.ID)}, ErrProjectAccessDenied},
		{"someone else's log", env.identity(other), log.ID, UpdateTimeLogInput{Description: strPtr("x")}, ErrTimeLogNotFound},
		{"missing log", env.identity(env.user), "nope", UpdateTimeLogInput{Description: strPtr("x")}, ErrTimeLogNotFound},
		{"blank description", env.identity(env.user), log.ID, UpdateTimeLogInput{Description: strPtr(" ")}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.logs.EditManual(env.ctx, tt.identity, tt.id, tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("EditManual() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	stored, err := env.store.GetTimeLogForUser(env.ctx, log.ID, env.user.ID)
	if err != nil {
		t.Fatalf("GetTimeLogForUser() error = %v", err)
	}
	if stored.Minutes() != 60 || stored.ProjectID != env.project.ID || stored.Description != "work" {
		t.Errorf("rejected edits changed the log: %+v", stored)
	}
}

func TestTimeLogService_EditRunningTimer(t *testing.T) {
	env := newTestEnv(t)
	id := env.identity(env.user)

	active, err := env.logs.StartTimer(env.ctx, id, StartTimerInput{ProjectID: env.project.ID, Description: "draft"})
	if err != nil {
		t.Fatalf("StartTimer() error = %v", err)
	}

	end := env.clock.now.Add(time.Hour)
	if _, err := env.logs.EditManual(env.ctx, id, active.ID, UpdateTimeLogInput{EndTime: &end}); !errors.Is(err, ErrTimerActive) {
		t.Fatalf("EditManual(end) error = %v, want ErrTimerActive", err)
	}
	if _, err := env.logs.EditManual(env.ctx, id, active.ID, UpdateTimeLogInput{StartTime: timePtr(active.StartTime.Add(-time.Hour))}); !errors.Is(err, ErrTimerActive) {
		t.Fatalf("EditManual(start) error = %v, want ErrTimerActive", err)
	}

	updated, err := env.logs.EditManual(env.ctx, id, active.ID, UpdateTimeLogInput{Description: strPtr("final")})
	if err != nil {
		t.Fatalf("EditManual(description) error = %v", err)
	}
	if !updated.IsActive() || updated.Description != "final" {
		t.Errorf("edited timer active=%v description=%q", updated.IsActive(), updated.Description)
	}
	if got := env.store.ActiveCount(env.user.ID); got != 1 {
		t.Errorf("ActiveCount() = %d, want 1", got)
	}
}

func TestTimeLogService_EditConflict(t *testing.T) {
	env := newTestEnv(t)
	id := env.identity(env.user)

	active, err := env.logs.StartTimer(env.ctx, id, StartTimerInput{ProjectID: env.project.ID, Description: "draft"})
	if err != nil {
		t.Fatalf("StartTimer() error = %v", err)
	}

	// Close the timer behind the edit's back, after it has read the row.
	stops := &stopOnUpdate{TimeLogStore: env.store, stop: func() {
		env.clock.Advance(time.Minute)
		if _, err := env.store.CloseActiveTimeLog(env.ctx, env.user.ID, env.clock.now); err != nil {
			t.Fatalf("CloseActiveTimeLog() error = %v", err)
		}
	}}
	svc := NewTimeLogService(stops, nil)

	if _, err := svc.EditManual(env.ctx, id, active.ID, UpdateTimeLogInput{Description: strPtr("late")}); !errors.Is(err, ErrEditConflict) {
		t.Fatalf("EditManual() error = %v, want ErrEditConflict", err)
	}
}

type stopOnUpdate struct {
	TimeLogStore
	stop func()
}

func (s *stopOnUpdate) UpdateTimeLog(ctx context.Context, log *model.TimeLog, prevEnd *time.Time) error {
	s.stop()
	return s.TimeLogStore.UpdateTimeLog(ctx, log, prevEnd)
}

func TestTimeLogService_Delete(t *testing.T) {
	env := newTestEnv(t)
	other := env.addUser(t, "Donald")
	log := createClosed(t, env, time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), time.Hour)

	if err := env.logs.Delete(env.ctx, env.identity(other), log.ID); !errors.Is(err, ErrTimeLogNotFound) {
		t.Fatalf("Delete() by non-owner error = %v, want ErrTimeLogNotFound", err)
	}
	if err := env.logs.Delete(env.ctx, env.identity(env.user), log.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := env.logs.Delete(env.ctx, env.identity(env.user), log.ID); !errors.Is(err, ErrTimeLogNotFound) {
		t.Fatalf("second Delete() error = %v, want ErrTimeLogNotFound", err)
	}
	if got := env.recorder.Snapshot().TimeLogsDeleted; got != 1 {
		t.Errorf("TimeLogsDeleted = %d, want 1", got)
	}
}

func TestTimeLogService_StoreFailureIsWrapped(t *testing.T) {
	env := newTestEnv(t)
	boom := errors.New("connection reset")
	env.store.Err = boom

	_, err := env.logs.StopTimer(env.ctx, env.identity(env.user))
	if !errors.Is(err, boom) {
		t.Fatalf("StopTimer() error = %v, want wrapped %v", err, boom)
	}
	if errors.Is(err, ErrNoActiveTimer) {
		t.Error("store failure must not look like a domain error")
	}
}
