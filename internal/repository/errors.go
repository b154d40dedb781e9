package repository

import "errors"

// Repository errors. Callers match them with errors.Is.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already exists")
	ErrUnknownUsers     = errors.New("unknown user ids")
	ErrProjectNotFound  = errors.New("project not found")
	ErrNotProjectMember = errors.New("user is not assigned to project")
	ErrTimeLogNotFound  = errors.New("time log not found")
	ErrTimerRunning     = errors.New("user already has a running timer")
	ErrNoActiveTimeLog  = errors.New("no running timer")
	ErrTimeLogConflict  = errors.New("time log changed concurrently")
)

// activeTimerIndex is the partial unique index allowing one open log per user.
const activeTimerIndex = "time_logs_one_active_per_user"
