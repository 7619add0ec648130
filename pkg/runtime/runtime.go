package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/config"
	"github.com/fluxrun/fluxrun/pkg/dip"
	"github.com/fluxrun/fluxrun/pkg/events"
	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/scheduler"
	"github.com/fluxrun/fluxrun/pkg/taskanalyser"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// highWaterMark bounds the number of task submissions in flight at once:
// a submitter blocks once this many submissions are queued ahead of it.
const highWaterMark = 4096

// Dispatcher hands a Placement off to whatever tells a worker to run it
// (the worker agent's poll queue, in the concrete binary). It is optional;
// a Runtime with no Dispatcher set still schedules but drops placements,
// which is only useful for tests that only care about scheduling decisions.
type Dispatcher interface {
	Dispatch(p scheduler.Placement)
}

type submitReq struct {
	task *types.Task
	done chan error
}

type endReq struct {
	taskID string
	err    error
	done   chan struct{}
}

type markRunningReq struct {
	taskID string
	done   chan error
}

type addWorkerReq struct {
	node types.Node
	done chan struct{}
}

type removeWorkerReq struct {
	workerID string
	done     chan struct{}
}

type barrierReq struct {
	app    string
	result chan (<-chan struct{})
}

type barrierGroupReq struct {
	key    string
	ids    []string
	result chan (<-chan struct{})
}

// Runtime is the single process-wide struct owning the Data Info Provider,
// Task Analyser, and Scheduler. Every method that mutates their state
// round-trips through Run's dispatcher goroutine; DIP methods that don't
// need the task/scheduling view (OpenFile-style direct data operations)
// are safe to call directly since dip.Provider guards its own state.
type Runtime struct {
	cfg            *config.Config
	dip            *dip.Provider
	ta             *taskanalyser.Analyser
	sched          *scheduler.Scheduler
	profiles       *scheduler.ProfileTable
	failureMonitor *scheduler.FailureMonitor
	broker         *events.Broker
	dispatcher     Dispatcher
	logger         zerolog.Logger

	submitCh       chan submitReq
	endCh          chan endReq
	markRunningCh  chan markRunningReq
	addWorkerCh    chan addWorkerReq
	heartbeatCh    chan string
	removeWorkerCh chan removeWorkerReq
	cancelAppCh    chan string
	barrierCh      chan barrierReq
	barrierGroupCh chan barrierGroupReq
	sem            chan struct{}

	halted atomic.Pointer[error]
}

// New builds a Runtime from cfg (config.Default() if nil).
func New(cfg *config.Config) *Runtime {
	if cfg == nil {
		cfg = config.Default()
	}

	profiles := scheduler.NewProfileTable(cfg.Scheduler.ProfileMaxAge)
	policy := scheduler.NewPolicy(cfg.Scheduler.Policy, profiles, nil)
	sched := scheduler.New(policy, scheduler.Config{
		CancelTimeout:  cfg.Scheduler.CancelTimeout,
		StarvationWait: cfg.Scheduler.StarvationWait,
		StarvationBump: cfg.Scheduler.StarvationBump,
		StarvationCap:  cfg.Scheduler.StarvationCap,
	})
	dataProvider := dip.New()

	r := &Runtime{
		cfg:            cfg,
		dip:            dataProvider,
		sched:          sched,
		profiles:       profiles,
		failureMonitor: scheduler.NewFailureMonitor(sched, cfg.Scheduler.FailureScanEvery),
		broker:         events.NewBroker(),
		logger:         log.WithComponent("runtime"),
		submitCh:       make(chan submitReq),
		endCh:          make(chan endReq),
		markRunningCh:  make(chan markRunningReq),
		addWorkerCh:    make(chan addWorkerReq),
		heartbeatCh:    make(chan string, 64),
		removeWorkerCh: make(chan removeWorkerReq),
		cancelAppCh:    make(chan string, 16),
		barrierCh:      make(chan barrierReq),
		barrierGroupCh: make(chan barrierGroupReq),
		sem:            make(chan struct{}, highWaterMark),
	}
	r.ta = taskanalyser.New(dataProvider, &schedulerAdapter{rt: r})
	return r
}

// SetDispatcher wires the component that hands placements to workers.
func (r *Runtime) SetDispatcher(d Dispatcher) { r.dispatcher = d }

// Events returns a subscription to the runtime's event stream (CLI
// streaming, monitoring).
func (r *Runtime) Events() events.Subscriber { return r.broker.Subscribe() }

// DIP exposes the Data Info Provider directly for operations that don't
// need task/scheduling bookkeeping (OpenFile/DeleteFile/RegisterData at
// the API layer).
func (r *Runtime) DIP() *dip.Provider { return r.dip }

// Run is the event-dispatch loop: the sole goroutine that mutates the
// Data Info Provider's task-facing bookkeeping, the Task Analyser, and the
// Scheduler. It blocks until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	r.broker.Start()
	defer r.broker.Stop()

	r.failureMonitor.Start()
	defer r.failureMonitor.Stop()

	stopDecay, err := r.profiles.StartDecayJob(r.cfg.Scheduler.ProfileDecaySpec)
	if err != nil {
		return err
	}
	defer stopDecay()

	starvationTicker := time.NewTicker(r.cfg.Scheduler.StarvationWait)
	defer starvationTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req := <-r.submitCh:
			err := r.ta.ProcessTask(req.task)
			<-r.sem
			r.noteIfFatal(err)
			req.done <- err

		case req := <-r.endCh:
			r.completeTask(req.taskID, req.err)
			close(req.done)

		case req := <-r.markRunningCh:
			err := r.ta.MarkRunning(req.taskID)
			if err == nil {
				r.sched.MarkRunning(req.taskID)
				r.publish(events.EventTaskRunning, req.taskID)
			} else {
				r.noteIfFatal(err)
			}
			req.done <- err

		case req := <-r.addWorkerCh:
			placements := r.sched.AddWorker(req.node)
			r.publish(events.EventWorkerJoined, req.node.ID)
			r.dispatchPlacements(placements)
			close(req.done)

		case workerID := <-r.heartbeatCh:
			r.sched.Heartbeat(workerID)

		case req := <-r.removeWorkerCh:
			orphaned := r.sched.RemoveWorker(req.workerID)
			r.publish(events.EventWorkerLeft, req.workerID)
			for _, taskID := range orphaned {
				if err := r.ta.EndTask(taskID, types.ErrWorkerUnreachable, req.workerID); err != nil {
					r.noteIfFatal(err)
				}
			}
			close(req.done)

		case app := <-r.cancelAppCh:
			r.ta.CancelApplication(app)

		case req := <-r.barrierCh:
			req.result <- r.ta.Barrier(req.app)

		case req := <-r.barrierGroupCh:
			req.result <- r.ta.BarrierGroup(req.key, req.ids)

		case te := <-r.failureMonitor.Events():
			if te.TaskID != "" {
				r.completeTask(te.TaskID, types.ErrTimeout)
			}
			for _, wid := range te.UnreachableIDs {
				orphaned := r.sched.RemoveWorker(wid)
				r.publish(events.EventWorkerUnreach, wid)
				for _, taskID := range orphaned {
					if err := r.ta.EndTask(taskID, types.ErrWorkerUnreachable, wid); err != nil {
						r.noteIfFatal(err)
					}
				}
			}

		case <-starvationTicker.C:
			r.sched.BumpStarved()
		}
	}
}

// completeTask frees the worker slot the task held, lets the scheduler
// place queued work into it, then runs the task analyser's retry-or-
// release logic for the outcome. A successful completion is also a
// data-arrival event: the task's outputs are now resident on the worker
// that ran it, so the ready queue is rescored in case that shifts a
// still-queued action's best placement.
func (r *Runtime) completeTask(taskID string, taskErr error) {
	workerID, placements := r.sched.ReportActionEnd(taskID, taskErr)
	r.dispatchPlacements(placements)

	evt := events.EventTaskDone
	if taskErr != nil {
		evt = events.EventTaskFailed
	}
	r.publish(evt, taskID)

	if err := r.ta.EndTask(taskID, taskErr, workerID); err != nil {
		r.noteIfFatal(err)
	}

	if taskErr == nil {
		r.publish(events.EventDataRegistered, taskID)
		r.dispatchPlacements(r.sched.Rescore())
	}
}

func (r *Runtime) dispatchPlacements(placements []scheduler.Placement) {
	for _, p := range placements {
		r.publish(events.EventTaskScheduled, p.Task.ID)
		if r.dispatcher != nil {
			r.dispatcher.Dispatch(p)
		}
	}
}

func (r *Runtime) publish(t events.EventType, msg string) {
	r.broker.Publish(&events.Event{ID: uuid.NewString(), Type: t, Message: msg})
}

// noteIfFatal halts the runtime's submission path when the task state
// machine reports a corrupt/illegal transition: per types.Transition's
// doc comment, that error is non-retriable and the runtime must stop
// accepting new submissions rather than keep mutating inconsistent state.
func (r *Runtime) noteIfFatal(err error) {
	if err == nil || !errors.Is(err, types.ErrCorruptSchedulerState) {
		return
	}
	e := err
	r.halted.Store(&e)
	r.logger.Error().Err(err).Msg("runtime halting submissions after fatal task-analyser error")
}

// Halted reports the fatal error that stopped the runtime from accepting
// new submissions, if any.
func (r *Runtime) Halted() error {
	if p := r.halted.Load(); p != nil {
		return *p
	}
	return nil
}

// SubmitTask hands task to the Task Analyser via the dispatcher loop,
// blocking on the bounded backpressure semaphore when the runtime already
// has highWaterMark submissions in flight.
func (r *Runtime) SubmitTask(ctx context.Context, task *types.Task) error {
	if err := r.Halted(); err != nil {
		return err
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan error, 1)
	select {
	case r.submitCh <- submitReq{task: task, done: done}:
	case <-ctx.Done():
		<-r.sem
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MarkRunning records that taskID's worker confirmed it started executing.
func (r *Runtime) MarkRunning(ctx context.Context, taskID string) error {
	done := make(chan error, 1)
	select {
	case r.markRunningCh <- markRunningReq{taskID: taskID, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EndTask reports a placed task's terminal outcome (nil err for success).
func (r *Runtime) EndTask(ctx context.Context, taskID string, taskErr error) error {
	done := make(chan struct{})
	select {
	case r.endCh <- endReq{taskID: taskID, err: taskErr, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddWorker registers a new worker and returns once any immediately
// placeable work has been dispatched against its capacity.
func (r *Runtime) AddWorker(ctx context.Context, node types.Node) error {
	done := make(chan struct{})
	select {
	case r.addWorkerCh <- addWorkerReq{node: node, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Heartbeat refreshes a worker's liveness timestamp.
func (r *Runtime) Heartbeat(workerID string) {
	select {
	case r.heartbeatCh <- workerID:
	default:
		r.logger.Warn().Str("worker_id", workerID).Msg("heartbeat channel full, dropping")
	}
}

// RemoveWorker evicts a worker and requeues/fails its running tasks.
func (r *Runtime) RemoveWorker(ctx context.Context, workerID string) error {
	done := make(chan struct{})
	select {
	case r.removeWorkerCh <- removeWorkerReq{workerID: workerID, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelApplication cancels every non-terminal task belonging to app.
func (r *Runtime) CancelApplication(app string) {
	r.cancelAppCh <- app
}

// Barrier blocks the caller until every task submitted for app has reached
// a terminal state.
func (r *Runtime) Barrier(ctx context.Context, app string) error {
	result := make(chan (<-chan struct{}))
	select {
	case r.barrierCh <- barrierReq{app: app, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	}
	var ch <-chan struct{}
	select {
	case ch = <-result:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BarrierGroup blocks the caller until every task in taskIDs has reached a
// terminal state.
func (r *Runtime) BarrierGroup(ctx context.Context, key string, taskIDs []string) error {
	result := make(chan (<-chan struct{}))
	select {
	case r.barrierGroupCh <- barrierGroupReq{key: key, ids: taskIDs, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	}
	var ch <-chan struct{}
	select {
	case ch = <-result:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// schedulerAdapter satisfies taskanalyser.SchedulerFacade by wrapping the
// Scheduler's placement-returning methods and routing the resulting
// Placements to the Runtime's Dispatcher. It is only ever invoked from
// within Run's dispatcher goroutine (via Analyser.ProcessTask/EndTask), so
// it never needs its own synchronization.
type schedulerAdapter struct {
	rt *Runtime
}

func (a *schedulerAdapter) Submit(task *types.Task) {
	placements := a.rt.sched.Submit(task)
	a.rt.dispatchPlacements(placements)
}

func (a *schedulerAdapter) Cancel(taskID string) {
	a.rt.sched.Cancel(taskID)
}
