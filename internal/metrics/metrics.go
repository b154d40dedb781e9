// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Sources a time log can be created from.
const (
	SourceManual = "manual"
	SourceTimer  = "timer"
)

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Recorder captures domain events.
// Implementations can expose these to Prometheus or keep them in memory for tests.
type Recorder interface {
	// Time log lifecycle
	IncTimeLogCreated(source string)
	IncTimeLogUpdated()
	IncTimeLogDeleted()

	// Timer
	IncTimerStarted()
	IncTimerStopped()
	IncTimerConflict()

	// Reporting
	ObserveSummaryDuration(duration time.Duration)

	// Accounts and projects
	IncLogin(result string)
	IncProjectCreated()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
