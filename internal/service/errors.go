// Package service provides business logic for the application.
package service

import (
	"errors"
)

// Service errors. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrUnauthenticated     = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTimeRange    = errors.New("end time must be after start time")
	ErrProjectAccessDenied = errors.New("project not found or access denied")
	ErrProjectNotFound     = errors.New("project not found")
	ErrTimeLogNotFound     = errors.New("time log not found")
	ErrTimerAlreadyRunning = errors.New("timer already running")
	ErrNoActiveTimer       = errors.New("no active timer found")
	ErrTimerActive         = errors.New("only the description of a running timer can be edited")
	ErrEditConflict        = errors.New("time log was modified concurrently")
	ErrUnknownUser         = errors.New("one or more users do not exist")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)

// ValidationError carries a caller-facing message for malformed input.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(message string) error {
	return &ValidationError{Message: message}
}
