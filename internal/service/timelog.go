package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tallyhours/tally/internal/metrics"
	"github.com/tallyhours/tally/internal/model"
	"github.com/tallyhours/tally/internal/repository"
)

const (
	msgMissingFields      = "Missing required fields"
	msgTimerFieldsMissing = "Project ID and description are required"
	msgEmptyDescription   = "Description cannot be empty"
	msgEmptyProjectID     = "Project ID cannot be empty"
)

// TimeLogService owns the time log lifecycle: manual entries, the timer and edits.
type TimeLogService struct {
	store   TimeLogStore
	metrics metrics.Recorder
	now     Clock
}

// NewTimeLogService creates a new TimeLogService.
func NewTimeLogService(store TimeLogStore, recorder metrics.Recorder) *TimeLogService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TimeLogService{
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateTimeLogInput defines input for a manual entry.
type CreateTimeLogInput struct {
	ProjectID   string
	StartTime   *time.Time
	EndTime     *time.Time
	Description string
}

// StartTimerInput defines input for starting the timer.
type StartTimerInput struct {
	ProjectID   string
	Description string
}

// UpdateTimeLogInput is a partial edit. Nil fields keep their stored value.
type UpdateTimeLogInput struct {
	ProjectID   *string
	StartTime   *time.Time
	EndTime     *time.Time
	Description *string
}

// CreateManual records a closed block of work.
func (s *TimeLogService) CreateManual(ctx context.Context, identity *model.AuthContext, input CreateTimeLogInput) (*model.TimeLog, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	projectID := strings.TrimSpace(input.ProjectID)
	description := strings.TrimSpace(input.Description)
	if projectID == "" || description == "" || input.StartTime == nil || input.EndTime == nil {
		return nil, validationError(msgMissingFields)
	}

	minutes, err := model.ComputeDuration(*input.StartTime, *input.EndTime)
	if err != nil {
		return nil, ErrInvalidTimeRange
	}

	start := input.StartTime.Truncate(model.TimestampPrecision)
	end := input.EndTime.Truncate(model.TimestampPrecision)
	log := &model.TimeLog{
		ID:              newID(),
		UserID:          identity.UserID,
		ProjectID:       projectID,
		StartTime:       start,
		EndTime:         &end,
		Description:     description,
		DurationMinutes: &minutes,
		CreatedAt:       s.now().UTC().Truncate(model.TimestampPrecision),
	}

	if err := s.store.InsertTimeLog(ctx, log); err != nil {
		if errors.Is(err, repository.ErrNotProjectMember) {
			return nil, ErrProjectAccessDenied
		}
		return nil, fmt.Errorf("failed to create time log: %w", err)
	}

	s.metrics.IncTimeLogCreated(metrics.SourceManual)
	return log, nil
}

// StartTimer opens a running log for the user.
// The store rejects the insert when another log is already open, so concurrent
// starts cannot both succeed.
func (s *TimeLogService) StartTimer(ctx context.Context, identity *model.AuthContext, input StartTimerInput) (*model.TimeLog, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	projectID := strings.TrimSpace(input.ProjectID)
	description := strings.TrimSpace(input.Description)
	if projectID == "" || description == "" {
		return nil, validationError(msgTimerFieldsMissing)
	}

	now := s.now().UTC().Truncate(model.TimestampPrecision)
	log := &model.TimeLog{
		ID:          newID(),
		UserID:      identity.UserID,
		ProjectID:   projectID,
		StartTime:   now,
		Description: description,
		CreatedAt:   now,
	}

	if err := s.store.InsertTimeLog(ctx, log); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotProjectMember):
			return nil, ErrProjectAccessDenied
		case errors.Is(err, repository.ErrTimerRunning):
			s.metrics.IncTimerConflict()
			return nil, ErrTimerAlreadyRunning
		}
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}

	s.metrics.IncTimerStarted()
	s.metrics.IncTimeLogCreated(metrics.SourceTimer)
	return log, nil
}

// StopTimer closes the user's running log at the current time.
func (s *TimeLogService) StopTimer(ctx context.Context, identity *model.AuthContext) (*model.TimeLog, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	log, err := s.store.CloseActiveTimeLog(ctx, identity.UserID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoActiveTimeLog):
			return nil, ErrNoActiveTimer
		case errors.Is(err, model.ErrInvalidTimeRange):
			return nil, ErrInvalidTimeRange
		}
		return nil, fmt.Errorf("failed to stop timer: %w", err)
	}

	s.metrics.IncTimerStopped()
	return log, nil
}

// ActiveTimer returns the user's running log, or nil when none is open.
func (s *TimeLogService) ActiveTimer(ctx context.Context, identity *model.AuthContext) (*model.TimeLog, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	log, err := s.store.GetActiveTimeLog(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveTimeLog) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active timer: %w", err)
	}
	return log, nil
}

// EditManual applies a partial edit to one of the user's logs.
// Duration is always rederived from the resolved timestamps. A running timer
// only accepts a new description and is never closed by an edit.
func (s *TimeLogService) EditManual(ctx context.Context, identity *model.AuthContext, id string, input UpdateTimeLogInput) (*model.TimeLog, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	existing, err := s.store.GetTimeLogForUser(ctx, id, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrTimeLogNotFound) {
			return nil, ErrTimeLogNotFound
		}
		return nil, fmt.Errorf("failed to get time log: %w", err)
	}

	updated := *existing
	prevEnd := existing.EndTime

	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, validationError(msgEmptyDescription)
		}
		updated.Description = description
	}

	projectChanged := false
	if input.ProjectID != nil {
		projectID := strings.TrimSpace(*input.ProjectID)
		if projectID == "" {
			return nil, validationError(msgEmptyProjectID)
		}
		projectChanged = projectID != existing.ProjectID
		updated.ProjectID = projectID
	}

	if existing.IsActive() {
		if projectChanged || changesTime(input.StartTime, existing.StartTime) || input.EndTime != nil {
			return nil, ErrTimerActive
		}
	} else {
		start := existing.StartTime
		if input.StartTime != nil {
			start = *input.StartTime
		}
		end := *existing.EndTime
		if input.EndTime != nil {
			end = *input.EndTime
		}

		minutes, err := model.ComputeDuration(start, end)
		if err != nil {
			return nil, ErrInvalidTimeRange
		}
		start = start.Truncate(model.TimestampPrecision)
		end = end.Truncate(model.TimestampPrecision)
		updated.StartTime = start
		updated.EndTime = &end
		updated.DurationMinutes = &minutes
	}

	if projectChanged {
		member, err := s.store.IsProjectMember(ctx, updated.ProjectID, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check project access: %w", err)
		}
		if !member {
			return nil, ErrProjectAccessDenied
		}
	}

	if err := s.store.UpdateTimeLog(ctx, &updated, prevEnd); err != nil {
		switch {
		case errors.Is(err, repository.ErrTimeLogNotFound):
			return nil, ErrTimeLogNotFound
		case errors.Is(err, repository.ErrTimeLogConflict):
			return nil, ErrEditConflict
		}
		return nil, fmt.Errorf("failed to update time log: %w", err)
	}

	s.metrics.IncTimeLogUpdated()
	return &updated, nil
}

// Delete removes one of the user's logs.
func (s *TimeLogService) Delete(ctx context.Context, identity *model.AuthContext, id string) error {
	if identity == nil {
		return ErrUnauthenticated
	}

	if err := s.store.DeleteTimeLog(ctx, id, identity.UserID); err != nil {
		if errors.Is(err, repository.ErrTimeLogNotFound) {
			return ErrTimeLogNotFound
		}
		return fmt.Errorf("failed to delete time log: %w", err)
	}

	s.metrics.IncTimeLogDeleted()
	return nil
}

func changesTime(patch *time.Time, current time.Time) bool {
	return patch != nil && !patch.Truncate(model.TimestampPrecision).Equal(current)
}
