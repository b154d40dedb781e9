package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tally"

// PrometheusRecorder exports domain events as Prometheus collectors.
type PrometheusRecorder struct {
	timeLogsCreated *prometheus.CounterVec
	timeLogsUpdated prometheus.Counter
	timeLogsDeleted prometheus.Counter
	timersStarted   prometheus.Counter
	timersStopped   prometheus.Counter
	timerConflicts  prometheus.Counter
	summaryDuration prometheus.Histogram
	logins          *prometheus.CounterVec
	projectsCreated prometheus.Counter
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		timeLogsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "time_logs_created_total",
			Help:      "Time logs created, by source.",
		}, []string{"source"}),
		timeLogsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "time_logs_updated_total",
			Help:      "Time logs edited.",
		}),
		timeLogsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "time_logs_deleted_total",
			Help:      "Time logs deleted.",
		}),
		timersStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_started_total",
			Help:      "Timers started.",
		}),
		timersStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_stopped_total",
			Help:      "Timers stopped.",
		}),
		timerConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_conflicts_total",
			Help:      "Timer starts rejected because one was already running.",
		}),
		summaryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_duration_seconds",
			Help:      "Latency of personal summary aggregation.",
			Buckets:   prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		projectsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_created_total",
			Help:      "Projects created.",
		}),
	}

	collectors := []prometheus.Collector{
		r.timeLogsCreated, r.timeLogsUpdated, r.timeLogsDeleted,
		r.timersStarted, r.timersStopped, r.timerConflicts,
		r.summaryDuration, r.logins, r.projectsCreated,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *PrometheusRecorder) IncTimeLogCreated(source string) {
	r.timeLogsCreated.WithLabelValues(source).Inc()
}

func (r *PrometheusRecorder) IncTimeLogUpdated() { r.timeLogsUpdated.Inc() }
func (r *PrometheusRecorder) IncTimeLogDeleted() { r.timeLogsDeleted.Inc() }
func (r *PrometheusRecorder) IncTimerStarted()   { r.timersStarted.Inc() }
func (r *PrometheusRecorder) IncTimerStopped()   { r.timersStopped.Inc() }
func (r *PrometheusRecorder) IncTimerConflict()  { r.timerConflicts.Inc() }
func (r *PrometheusRecorder) IncProjectCreated() { r.projectsCreated.Inc() }

func (r *PrometheusRecorder) ObserveSummaryDuration(duration time.Duration) {
	r.summaryDuration.Observe(duration.Seconds())
}

func (r *PrometheusRecorder) IncLogin(result string) {
	r.logins.WithLabelValues(result).Inc()
}
