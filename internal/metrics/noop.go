package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncTimeLogCreated(source string)               {}
func (n *NoopRecorder) IncTimeLogUpdated()                            {}
func (n *NoopRecorder) IncTimeLogDeleted()                            {}
func (n *NoopRecorder) IncTimerStarted()                              {}
func (n *NoopRecorder) IncTimerStopped()                              {}
func (n *NoopRecorder) IncTimerConflict()                             {}
func (n *NoopRecorder) ObserveSummaryDuration(duration time.Duration) {}
func (n *NoopRecorder) IncLogin(result string)                        {}
func (n *NoopRecorder) IncProjectCreated()                            {}
