package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ManualLogsCreated uint64
	TimerLogsCreated  uint64
	TimeLogsUpdated   uint64
	TimeLogsDeleted   uint64
	TimersStarted     uint64
	TimersStopped     uint64
	TimerConflicts    uint64
	SummaryCount      uint64
	SummaryDurationNs int64
	LoginSuccesses    uint64
	LoginFailures     uint64
	ProjectsCreated   uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	manualLogsCreated uint64
	timerLogsCreated  uint64
	timeLogsUpdated   uint64
	timeLogsDeleted   uint64
	timersStarted     uint64
	timersStopped     uint64
	timerConflicts    uint64
	summaryCount      uint64
	summaryDurationNs int64
	loginSuccesses    uint64
	loginFailures     uint64
	projectsCreated   uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ManualLogsCreated: atomic.LoadUint64(&m.manualLogsCreated),
		TimerLogsCreated:  atomic.LoadUint64(&m.timerLogsCreated),
		TimeLogsUpdated:   atomic.LoadUint64(&m.timeLogsUpdated),
		TimeLogsDeleted:   atomic.LoadUint64(&m.timeLogsDeleted),
		TimersStarted:     atomic.LoadUint64(&m.timersStarted),
		TimersStopped:     atomic.LoadUint64(&m.timersStopped),
		TimerConflicts:    atomic.LoadUint64(&m.timerConflicts),
		SummaryCount:      atomic.LoadUint64(&m.summaryCount),
		SummaryDurationNs: atomic.LoadInt64(&m.summaryDurationNs),
		LoginSuccesses:    atomic.LoadUint64(&m.loginSuccesses),
		LoginFailures:     atomic.LoadUint64(&m.loginFailures),
		ProjectsCreated:   atomic.LoadUint64(&m.projectsCreated),
	}
}

// IncTimeLogCreated counts a new log by source.
func (m *InMemoryRecorder) IncTimeLogCreated(source string) {
	if source == SourceTimer {
		atomic.AddUint64(&m.timerLogsCreated, 1)
		return
	}
	atomic.AddUint64(&m.manualLogsCreated, 1)
}

// IncTimeLogUpdated increments the edit counter.
func (m *InMemoryRecorder) IncTimeLogUpdated() {
	atomic.AddUint64(&m.timeLogsUpdated, 1)
}

// IncTimeLogDeleted increments the delete counter.
func (m *InMemoryRecorder) IncTimeLogDeleted() {
	atomic.AddUint64(&m.timeLogsDeleted, 1)
}

// IncTimerStarted increments the timer start counter.
func (m *InMemoryRecorder) IncTimerStarted() {
	atomic.AddUint64(&m.timersStarted, 1)
}

// IncTimerStopped increments the timer stop counter.
func (m *InMemoryRecorder) IncTimerStopped() {
	atomic.AddUint64(&m.timersStopped, 1)
}

// IncTimerConflict counts starts rejected because a timer was running.
func (m *InMemoryRecorder) IncTimerConflict() {
	atomic.AddUint64(&m.timerConflicts, 1)
}

// ObserveSummaryDuration records how long a summary took.
func (m *InMemoryRecorder) ObserveSummaryDuration(duration time.Duration) {
	atomic.AddUint64(&m.summaryCount, 1)
	atomic.AddInt64(&m.summaryDurationNs, duration.Nanoseconds())
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(result string) {
	if result == LoginSuccess {
		atomic.AddUint64(&m.loginSuccesses, 1)
		return
	}
	atomic.AddUint64(&m.loginFailures, 1)
}

// IncProjectCreated increments the project counter.
func (m *InMemoryRecorder) IncProjectCreated() {
	atomic.AddUint64(&m.projectsCreated, 1)
}
