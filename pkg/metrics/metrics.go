package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Data Info Provider metrics
	DataVersionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxrun_data_versions_total",
			Help: "Total number of live data versions tracked by the data info provider",
		},
	)

	DIIAllocationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxrun_dii_allocations_total",
			Help: "Total number of data instance ids allocated",
		},
	)

	// Task Analyser metrics
	TasksSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxrun_tasks_submitted_total",
			Help: "Total number of tasks submitted by application",
		},
		[]string{"app"},
	)

	TasksByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fluxrun_tasks_by_state",
			Help: "Number of tasks currently in each state",
		},
		[]string{"state"},
	)

	TaskAnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxrun_task_analysis_duration_seconds",
			Help:    "Time taken to process a task submission through dependency analysis",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Scheduler metrics
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxrun_scheduling_latency_seconds",
			Help:    "Time from an action becoming ready to it being placed on a worker",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReadyQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxrun_ready_queue_depth",
			Help: "Number of actions currently waiting in the ready queue",
		},
	)

	ActionsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxrun_actions_scheduled_total",
			Help: "Total number of actions placed on a worker, by policy",
		},
		[]string{"policy"},
	)

	ActionsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxrun_actions_failed_total",
			Help: "Total number of actions that ended in failure, by retriable classification",
		},
		[]string{"retriable"},
	)

	ActionsRetried = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxrun_actions_retried_total",
			Help: "Total number of action retries issued by the scheduler",
		},
	)

	StarvationBumpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxrun_starvation_bumps_total",
			Help: "Total number of priority bumps applied to starved actions",
		},
	)

	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fluxrun_workers_total",
			Help: "Total number of known workers by status",
		},
		[]string{"status"},
	)

	// Data Manager / transfer metrics
	TransferBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxrun_transfer_bytes_total",
			Help: "Total bytes transferred between workers, by parameter type",
		},
		[]string{"type"},
	)

	TransferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxrun_transfer_duration_seconds",
			Help:    "Time taken to fetch a parameter onto a worker",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	TransfersInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fluxrun_transfers_in_flight",
			Help: "Number of transfers currently in flight across all workers",
		},
	)

	// Failure monitor metrics
	TimeoutCancellationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxrun_timeout_cancellations_total",
			Help: "Total number of actions cancelled for exceeding their implementation timeout",
		},
	)

	FailureMonitorCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxrun_failure_monitor_cycles_total",
			Help: "Total number of failure-monitor scan cycles completed",
		},
	)

	FailureMonitorDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxrun_failure_monitor_duration_seconds",
			Help:    "Time taken for one failure-monitor scan cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxrun_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluxrun_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		DataVersionsTotal,
		DIIAllocationsTotal,
		TasksSubmittedTotal,
		TasksByState,
		TaskAnalysisDuration,
		SchedulingLatency,
		ReadyQueueDepth,
		ActionsScheduled,
		ActionsFailed,
		ActionsRetried,
		StarvationBumpsTotal,
		WorkersTotal,
		TransferBytesTotal,
		TransferDuration,
		TransfersInFlight,
		TimeoutCancellationsTotal,
		FailureMonitorCyclesTotal,
		FailureMonitorDuration,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
