package model

import (
	"errors"
	"time"
)

// ErrInvalidTimeRange is returned when an end timestamp is not after its start.
var ErrInvalidTimeRange = errors.New("end time must be after start time")

// TimestampPrecision is the resolution timestamps are stored with.
const TimestampPrecision = time.Microsecond

// TimeLog is a block of work by one user on one project.
// A nil EndTime marks the user's running timer.
type TimeLog struct {
	ID          string
	UserID      string
	ProjectID   string
	StartTime   time.Time
	EndTime     *time.Time
	Description string
	// DurationMinutes is nil while the timer is running.
	DurationMinutes *int
	CreatedAt       time.Time

	// Display names resolved by joins on read.
	ProjectName string
}

// IsActive reports whether the log is a running timer.
func (l *TimeLog) IsActive() bool {
	return l.EndTime == nil
}

// Minutes returns the closed duration, or 0 for a running timer.
func (l *TimeLog) Minutes() int {
	if l.DurationMinutes == nil {
		return 0
	}
	return *l.DurationMinutes
}

// Close sets the end timestamp and derives the duration from it.
func (l *TimeLog) Close(end time.Time) error {
	minutes, err := ComputeDuration(l.StartTime, end)
	if err != nil {
		return err
	}
	end = end.Truncate(TimestampPrecision)
	l.EndTime = &end
	l.DurationMinutes = &minutes
	return nil
}

// ComputeDuration returns the whole minutes between start and end, floor-divided.
// Both timestamps are truncated to storage precision first.
func ComputeDuration(start, end time.Time) (int, error) {
	start = start.Truncate(TimestampPrecision)
	end = end.Truncate(TimestampPrecision)
	if !end.After(start) {
		return 0, ErrInvalidTimeRange
	}
	return int(end.Sub(start) / time.Minute), nil
}

// TimeLogDetail is a time log with its owner attached, for admin reports.
type TimeLogDetail struct {
	TimeLog
	UserName  string
	UserEmail string
}

// TimeLogFilter narrows an admin time log listing. Empty fields match everything.
type TimeLogFilter struct {
	UserID    string
	ProjectID string
}
