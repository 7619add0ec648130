package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/metrics"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// heartbeatTimeout is how long a worker may go without a heartbeat before
// the failure monitor considers it unreachable.
const heartbeatTimeout = 30 * time.Second

// TimeoutEvent reports an action that overran its implementation's
// deadline and a worker that went unreachable, for the caller to drive
// through the task analyser's retry path and the scheduler's RemoveWorker.
type TimeoutEvent struct {
	TaskID         string
	UnreachableIDs []string
}

// FailureMonitor is a ticking scan over running actions and worker
// heartbeats: a ticker-loop-plus-metrics.Timer shape generalized from
// node/container health checks to action timeout and worker heartbeat
// staleness.
type FailureMonitor struct {
	sched    *Scheduler
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
	eventsCh chan TimeoutEvent
}

// NewFailureMonitor creates a FailureMonitor that scans sched every
// interval.
func NewFailureMonitor(sched *Scheduler, interval time.Duration) *FailureMonitor {
	return &FailureMonitor{
		sched:    sched,
		interval: interval,
		logger:   log.WithComponent("scheduler.failuremonitor"),
		stopCh:   make(chan struct{}),
		eventsCh: make(chan TimeoutEvent, 64),
	}
}

// Events returns the channel the dispatcher drains for timeout/
// unreachable-worker notifications.
func (f *FailureMonitor) Events() <-chan TimeoutEvent { return f.eventsCh }

// Start begins the scan loop in its own goroutine.
func (f *FailureMonitor) Start() { go f.run() }

// Stop terminates the scan loop.
func (f *FailureMonitor) Stop() { close(f.stopCh) }

func (f *FailureMonitor) run() {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.scan()
		case <-f.stopCh:
			return
		}
	}
}

func (f *FailureMonitor) scan() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.FailureMonitorDuration)
		metrics.FailureMonitorCyclesTotal.Inc()
	}()

	f.sched.mu.Lock()
	now := time.Now()

	var unreachable []string
	for id, w := range f.sched.workers {
		if w.Node.Status == types.WorkerUp && now.Sub(w.Node.LastHeartbeat) > heartbeatTimeout {
			f.logger.Warn().Str("worker_id", id).Dur("since_heartbeat", now.Sub(w.Node.LastHeartbeat)).
				Msg("worker missed heartbeat deadline, marking unreachable")
			w.Node.Status = types.WorkerUnreachable
			unreachable = append(unreachable, id)
		}
		if !w.CancelDeadline.IsZero() && now.After(w.CancelDeadline) {
			f.logger.Warn().Str("worker_id", id).Msg("cancel grace period elapsed without confirmation")
		}
	}

	var timedOut []string
	for taskID, a := range f.sched.assignments {
		if a.impl.Timeout <= 0 {
			continue
		}
		// Assignment carries no start timestamp by default; callers that
		// care about timeouts stamp it via MarkRunning.
		if a.runningSince.IsZero() {
			continue
		}
		if now.Sub(a.runningSince) > a.impl.Timeout {
			timedOut = append(timedOut, taskID)
			metrics.TimeoutCancellationsTotal.Inc()
		}
	}
	f.sched.mu.Unlock()

	if len(unreachable) > 0 {
		select {
		case f.eventsCh <- TimeoutEvent{UnreachableIDs: unreachable}:
		default:
			f.logger.Warn().Msg("failure monitor event channel full, dropping unreachable-worker notification")
		}
	}
	for _, taskID := range timedOut {
		select {
		case f.eventsCh <- TimeoutEvent{TaskID: taskID}:
		default:
			f.logger.Warn().Msg("failure monitor event channel full, dropping timeout notification")
		}
	}
}
