package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/metrics"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// Placement is one action assignment the caller must dispatch to a worker.
type Placement struct {
	Task     *types.Task
	WorkerID string
	Impl     types.ImplementationCandidate
}

type assignment struct {
	workerID     string
	impl         types.ImplementationCandidate
	task         *types.Task
	runningSince time.Time
}

// Scheduler is the Scheduler (component D). All of its methods are meant
// to be called only from the runtime's single dispatcher goroutine; it
// holds a mutex because the failure monitor's goroutine reads worker
// heartbeats and assignments and marks stale workers unreachable. The
// ready queue is changed only by the dispatcher's calls.
type Scheduler struct {
	mu sync.Mutex

	logger zerolog.Logger
	policy Policy

	ready       *readyQueue
	workers     map[string]*WorkerView
	assignments map[string]*assignment // task id -> assignment

	cancelTimeout  time.Duration
	starvationWait time.Duration
	starvationBump int
	starvationCap  int
}

// Config holds the scheduler's runtime tunables.
type Config struct {
	CancelTimeout  time.Duration
	StarvationWait time.Duration
	StarvationBump int
	StarvationCap  int
}

// New creates a Scheduler driven by policy.
func New(policy Policy, cfg Config) *Scheduler {
	return &Scheduler{
		logger:         log.WithComponent("scheduler"),
		policy:         policy,
		ready:          newReadyQueue(),
		workers:        make(map[string]*WorkerView),
		assignments:    make(map[string]*assignment),
		cancelTimeout:  cfg.CancelTimeout,
		starvationWait: cfg.StarvationWait,
		starvationBump: cfg.StarvationBump,
		starvationCap:  cfg.StarvationCap,
	}
}

// Submit enqueues a READY action and attempts immediate placement under a
// no-preemption rule: a newly-ready action is tried against current
// capacity but never displaces a running one.
func (s *Scheduler) Submit(task *types.Task) []Placement {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.ready.push(&readyItem{
		task:           task,
		submitPriority: task.Priority,
		effectivePrio:  task.Priority,
		enqueuedAt:     now,
		lastBumpAt:     now,
	})
	s.policy.OnActionReady(task)
	metrics.ReadyQueueDepth.Set(float64(s.ready.len()))
	return s.tryPlaceLocked()
}

// Cancel removes an action from the ready queue, or marks an already
// scheduled/running one so the cancel-timeout grace period applies.
func (s *Scheduler) Cancel(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.remove(taskID) {
		metrics.ReadyQueueDepth.Set(float64(s.ready.len()))
		return
	}
	if a, ok := s.assignments[taskID]; ok {
		if w, ok := s.workers[a.workerID]; ok {
			w.CancelDeadline = time.Now().Add(s.cancelTimeout)
		}
	}
}

// AddWorker registers a new worker and attempts to place queued work
// against its freshly-available capacity.
func (s *Scheduler) AddWorker(node types.Node) []Placement {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workers[node.ID] = &WorkerView{Node: node, Running: make(map[string]bool)}
	metrics.WorkersTotal.WithLabelValues(string(types.WorkerUp)).Inc()
	return s.tryPlaceLocked()
}

// Heartbeat refreshes a worker's liveness timestamp.
func (s *Scheduler) Heartbeat(workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workers[workerID]; ok {
		w.Node.LastHeartbeat = time.Now()
		w.Node.Status = types.WorkerUp
	}
}

// RemoveWorker evicts a worker (heartbeat timeout or explicit removal) and
// returns the task ids that were running on it, which the caller must feed
// back through the task analyser's failure path for the retry policy.
func (s *Scheduler) RemoveWorker(workerID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[workerID]
	if !ok {
		return nil
	}
	var orphaned []string
	for taskID := range w.Running {
		orphaned = append(orphaned, taskID)
		delete(s.assignments, taskID)
	}
	delete(s.workers, workerID)
	metrics.WorkersTotal.WithLabelValues(string(types.WorkerUp)).Dec()
	return orphaned
}

// MarkRunning stamps an assignment's start time once the worker confirms
// the action began executing, enabling the failure monitor's per-
// implementation timeout scan.
func (s *Scheduler) MarkRunning(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.assignments[taskID]; ok {
		a.runningSince = time.Now()
	}
}

// ReportActionEnd records a placed action's outcome, frees its worker
// capacity, and attempts to place more queued work into the freed slot. It
// returns the worker that ran the action, so the caller's retry policy can
// exclude it, alongside any newly placed work.
func (s *Scheduler) ReportActionEnd(taskID string, err error) (string, []Placement) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[taskID]
	if !ok {
		return "", nil
	}
	delete(s.assignments, taskID)
	if w, ok := s.workers[a.workerID]; ok {
		w.release(a.impl, taskID)
	}
	s.policy.OnActionEnd(a.task, types.Result{Task: a.task, WorkerID: a.workerID, Err: err})
	return a.workerID, s.tryPlaceLocked()
}

// Rescore re-evaluates placement for the ready queue against current
// worker state, triggered by a data-arrival event (a task's outputs just
// became resident on a worker, which can change data-locality scores for
// actions still waiting for a slot). Scores are computed fresh against
// live worker state on every placement attempt rather than cached at
// enqueue time, so rescoring reduces to retrying placement; it never
// touches an already-scheduled or running assignment.
func (s *Scheduler) Rescore() []Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tryPlaceLocked()
}

// BumpStarved raises the effective priority of every ready action that has
// waited longer than starvationWait, capped at submitPriority+starvationCap.
func (s *Scheduler) BumpStarved() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, item := range s.ready.all() {
		if now.Sub(item.lastBumpAt) < s.starvationWait {
			continue
		}
		before := item.effectivePrio
		s.ready.bump(item, s.starvationBump, s.starvationCap)
		item.lastBumpAt = now
		if item.effectivePrio != before {
			metrics.StarvationBumpsTotal.Inc()
		}
	}
}

// tryPlaceLocked greedily places ready actions against available workers in
// priority order. Called with s.mu held.
func (s *Scheduler) tryPlaceLocked() []Placement {
	var placements []Placement

	for {
		items := s.ready.all()
		if len(items) == 0 || len(s.workers) == 0 {
			break
		}
		placed := s.placeBestLocked(items)
		if placed == nil {
			break
		}
		placements = append(placements, *placed)
	}
	metrics.ReadyQueueDepth.Set(float64(s.ready.len()))
	return placements
}

// isBetterCandidate reports whether (score, worker) should replace the
// current best: higher score wins outright; on a tied score, the worker
// with the smaller running queue wins; on a further tie, the
// lexicographically smaller worker id wins. Needed because iteration over
// s.workers is a Go map and therefore unordered, so ties must be broken
// explicitly to keep placement deterministic.
func isBetterCandidate(score types.Score, worker *WorkerView, bestScore types.Score, bestWorker *WorkerView) bool {
	if score.Greater(bestScore) {
		return true
	}
	if bestScore.Greater(score) {
		return false
	}
	if len(worker.Running) != len(bestWorker.Running) {
		return len(worker.Running) < len(bestWorker.Running)
	}
	return worker.Node.ID < bestWorker.Node.ID
}

func (s *Scheduler) placeBestLocked(items []*readyItem) *Placement {
	var best struct {
		item   *readyItem
		worker *WorkerView
		impl   types.ImplementationCandidate
		score  types.Score
		set    bool
	}

	for _, item := range items {
		for _, impl := range item.task.ImplCandidates {
			for _, w := range s.workers {
				if w.Node.Status != types.WorkerUp {
					continue
				}
				if item.task.ExcludedNodes != nil && item.task.ExcludedNodes[w.Node.ID] {
					continue
				}
				if impl.WorkerKind != "" && impl.WorkerKind != w.Node.Kind {
					continue
				}
				if !w.Fits(impl) {
					continue
				}
				sc := s.policy.Score(item.task, w, impl)
				if !best.set || isBetterCandidate(sc, w, best.score, best.worker) {
					best.item, best.worker, best.impl, best.score, best.set = item, w, impl, sc, true
				}
			}
		}
	}
	if !best.set {
		return nil
	}

	s.ready.remove(best.item.task.ID)
	if err := types.Transition(best.item.task.State, types.Scheduled); err != nil {
		s.logger.Error().Err(err).Str("task_id", best.item.task.ID).Msg("illegal transition during placement")
		return nil
	}
	best.item.task.State = types.Scheduled
	best.worker.reserve(best.impl, best.item.task.ID)
	s.assignments[best.item.task.ID] = &assignment{workerID: best.worker.Node.ID, impl: best.impl, task: best.item.task}
	metrics.ActionsScheduled.WithLabelValues(s.policy.Name()).Inc()

	return &Placement{Task: best.item.task, WorkerID: best.worker.Node.ID, Impl: best.impl}
}
