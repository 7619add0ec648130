package taskanalyser

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/dip"
	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/metrics"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// DataProvider is the slice of the Data Info Provider the analyser needs.
type DataProvider interface {
	RegisterAccess(app string, acc types.Access) (read, write, invalidated *types.DataInstanceID, err error)
	FinishAccess(dii types.DataInstanceID) error
	FindWaitedConcurrent(did types.DID, t dip.WaitTicket) bool
}

// SchedulerFacade is the slice of the Scheduler the analyser drives.
type SchedulerFacade interface {
	Submit(task *types.Task)
	Cancel(taskID string)
}

type taskNode struct {
	task                *types.Task
	pendingPredecessors int
	writtenDIIs         []types.DataInstanceID
	readDIIs            []types.DataInstanceID
}

// Analyser is the Task Analyser (component C).
type Analyser struct {
	mu sync.Mutex

	logger zerolog.Logger
	dip    DataProvider
	sched  SchedulerFacade

	tasks        map[string]*taskNode
	producerOf   map[types.DataInstanceID]string    // DII -> producing task id
	readersOf    map[types.DataInstanceID][]string  // DII -> task ids that read it
	waitersOf    map[string][]string                // task id -> dependent task ids blocked on it
	appPending   map[string]int                     // app -> count of non-terminal tasks
	appBarriers  map[string][]chan struct{}
	groupPending map[string]map[string]int // barrier-group-key -> remaining task ids (as a set-count)
	groupWaiters map[string][]chan struct{}
}

// New creates an Analyser wired to the given DIP and Scheduler facades.
func New(dip DataProvider, sched SchedulerFacade) *Analyser {
	return &Analyser{
		logger:       log.WithComponent("taskanalyser"),
		dip:          dip,
		sched:        sched,
		tasks:        make(map[string]*taskNode),
		producerOf:   make(map[types.DataInstanceID]string),
		readersOf:    make(map[types.DataInstanceID][]string),
		waitersOf:    make(map[string][]string),
		appPending:   make(map[string]int),
		appBarriers:  make(map[string][]chan struct{}),
		groupPending: make(map[string]map[string]int),
		groupWaiters: make(map[string][]chan struct{}),
	}
}

// ProcessTask resolves every parameter access for task, wires it into the
// implicit DAG, and either marks it READY for the scheduler immediately or
// WAITING on its unfinished producers.
func (a *Analyser) ProcessTask(task *types.Task) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TaskAnalysisDuration)

	a.mu.Lock()
	defer a.mu.Unlock()

	node := &taskNode{task: task}
	pending := 0

	for i := range task.Params {
		p := &task.Params[i]
		if p.DID == 0 {
			continue // literal/primitive parameter, no access to resolve
		}
		read, write, invalidated, err := a.dip.RegisterAccess(task.App, types.Access{DID: p.DID, Mode: p.Direction})
		if err != nil {
			return fmt.Errorf("%w: task %s param %s: %v", types.ErrDependency, task.ID, p.FormalName, err)
		}
		if read != nil {
			p.ReadRenaming = *read
			node.readDIIs = append(node.readDIIs, *read)
			a.readersOf[*read] = append(a.readersOf[*read], task.ID)
			if producer, ok := a.producerOf[*read]; ok {
				if producerNode, ok := a.tasks[producer]; ok && producerNode.task.State != types.Done {
					pending++
					a.waitersOf[producer] = append(a.waitersOf[producer], task.ID)
				}
			}
		}
		if write != nil {
			p.WriteRenaming = *write
			node.writtenDIIs = append(node.writtenDIIs, *write)
			a.producerOf[*write] = task.ID
		}
		// invalidated names a version this access retires outright (W, RW);
		// any other task still reading it must finish before this one runs,
		// since RegisterAccess advanced the current version without waiting
		// on outstanding readers itself.
		if invalidated != nil {
			for _, readerID := range a.readersOf[*invalidated] {
				if readerID == task.ID {
					continue
				}
				if readerNode, ok := a.tasks[readerID]; ok && readerNode.task.State != types.Done {
					pending++
					a.waitersOf[readerID] = append(a.waitersOf[readerID], task.ID)
				}
			}
		}
	}

	node.pendingPredecessors = pending
	a.tasks[task.ID] = node
	a.appPending[task.App]++
	metrics.TasksSubmittedTotal.WithLabelValues(task.App).Inc()

	if pending == 0 {
		if err := types.Transition(task.State, types.Ready); err != nil {
			return err
		}
		task.State = types.Ready
		metrics.TasksByState.WithLabelValues(task.State.String()).Inc()
		a.sched.Submit(task)
	} else {
		if err := types.Transition(task.State, types.Waiting); err != nil {
			return err
		}
		task.State = types.Waiting
		metrics.TasksByState.WithLabelValues(task.State.String()).Inc()
	}
	return nil
}

// MarkRunning transitions a scheduled task to RUNNING once its worker
// confirms it started executing, so EndTask's terminal transitions and the
// scheduler's per-implementation timeout scan both have an accurate start
// point to work from.
func (a *Analyser) MarkRunning(taskID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	node, ok := a.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: mark running unknown task %s", types.ErrCorruptSchedulerState, taskID)
	}
	if err := types.Transition(node.task.State, types.Running); err != nil {
		return err
	}
	node.task.State = types.Running
	metrics.TasksByState.WithLabelValues(types.Running.String()).Inc()
	return nil
}

// EndTask records a task's terminal outcome, finishes its DIP accesses,
// applies the retry policy on failure, and releases any dependents or
// barrier waiters it was blocking. workerID names the worker that ran the
// task; on a retriable failure it is excluded from the retry's candidate
// set so the next attempt lands elsewhere.
func (a *Analyser) EndTask(taskID string, err error, workerID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	node, ok := a.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: end of unknown task %s", types.ErrCorruptSchedulerState, taskID)
	}

	for _, dii := range node.readDIIs {
		_ = a.dip.FinishAccess(dii)
	}

	if err == nil {
		if terr := types.Transition(node.task.State, types.Done); terr != nil {
			return terr
		}
		node.task.State = types.Done
		for _, dii := range node.writtenDIIs {
			_ = a.dip.FinishAccess(dii)
		}
		a.releaseWaiters(taskID)
		a.decrementPending(node.task.App, taskID)
		return nil
	}

	if terr := types.Transition(node.task.State, types.Failed); terr != nil {
		return terr
	}
	node.task.State = types.Failed
	metrics.ActionsFailed.WithLabelValues(fmt.Sprintf("%v", types.IsRetriable(err))).Inc()

	if types.IsRetriable(err) && node.task.Attempt < node.task.MaxRetries {
		node.task.Attempt++
		if workerID != "" {
			if node.task.ExcludedNodes == nil {
				node.task.ExcludedNodes = make(map[string]bool, 1)
			}
			node.task.ExcludedNodes[workerID] = true
		}
		if terr := types.Transition(types.Failed, types.Ready); terr != nil {
			return terr
		}
		node.task.State = types.Ready
		metrics.ActionsRetried.Inc()
		log.WithTaskID(taskID).Warn().Err(err).Str("worker_id", workerID).
			Int("attempt", node.task.Attempt).Msg("retrying failed task on another worker")
		a.sched.Submit(node.task)
		return nil
	}

	if terr := types.Transition(types.Failed, types.Cancelled); terr != nil {
		return terr
	}
	node.task.State = types.Cancelled
	for _, dii := range node.writtenDIIs {
		_ = a.dip.FinishAccess(dii)
	}
	a.releaseWaiters(taskID)
	a.decrementPending(node.task.App, taskID)
	return nil
}

func (a *Analyser) releaseWaiters(taskID string) {
	for _, waiterID := range a.waitersOf[taskID] {
		wnode, ok := a.tasks[waiterID]
		if !ok {
			continue
		}
		wnode.pendingPredecessors--
		if wnode.pendingPredecessors <= 0 && wnode.task.State == types.Waiting {
			if err := types.Transition(types.Waiting, types.Ready); err == nil {
				wnode.task.State = types.Ready
				a.sched.Submit(wnode.task)
			}
		}
	}
	delete(a.waitersOf, taskID)
}

func (a *Analyser) decrementPending(app, taskID string) {
	a.appPending[app]--
	for key, pending := range a.groupPending {
		if _, inGroup := pending[taskID]; inGroup {
			delete(pending, taskID)
			if len(pending) == 0 {
				for _, ch := range a.groupWaiters[key] {
					close(ch)
				}
				delete(a.groupWaiters, key)
				delete(a.groupPending, key)
			}
		}
	}
	if a.appPending[app] <= 0 {
		for _, ch := range a.appBarriers[app] {
			close(ch)
		}
		delete(a.appBarriers, app)
	}
}

// Barrier returns a channel that closes once every task currently
// submitted for app has reached a terminal state.
func (a *Analyser) Barrier(app string) <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan struct{})
	if a.appPending[app] <= 0 {
		close(ch)
		return ch
	}
	a.appBarriers[app] = append(a.appBarriers[app], ch)
	return ch
}

// BarrierGroup returns a channel that closes once every task in taskIDs
// has reached a terminal state.
func (a *Analyser) BarrierGroup(key string, taskIDs []string) <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := make(chan struct{})
	pending := make(map[string]int, len(taskIDs))
	for _, id := range taskIDs {
		node, ok := a.tasks[id]
		if !ok || node.task.State.IsTerminal() {
			continue
		}
		pending[id] = 1
	}
	if len(pending) == 0 {
		close(ch)
		return ch
	}
	a.groupPending[key] = pending
	a.groupWaiters[key] = append(a.groupWaiters[key], ch)
	return ch
}

// FindWaitedTask reports whether taskID has reached a terminal state.
func (a *Analyser) FindWaitedTask(taskID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	node, ok := a.tasks[taskID]
	if !ok {
		return false, fmt.Errorf("%w: unknown task %s", types.ErrDependency, taskID)
	}
	return node.task.State.IsTerminal(), nil
}

// FindWaitedConcurrent delegates to the DIP and reports whether did
// currently has concurrent (C) writers in flight. It returns at once: it
// does not block until those writers finish, and the ticket t is not
// consulted.
func (a *Analyser) FindWaitedConcurrent(did types.DID, t dip.WaitTicket) bool {
	return a.dip.FindWaitedConcurrent(did, t)
}

// CancelApplication transitions every non-terminal task belonging to app
// to CANCELLED and asks the scheduler to drop it from placement.
func (a *Analyser) CancelApplication(app string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cancelled := 0
	for id, node := range a.tasks {
		if node.task.App != app || node.task.State.IsTerminal() {
			continue
		}
		if err := types.Transition(node.task.State, types.Cancelled); err == nil {
			node.task.State = types.Cancelled
			a.sched.Cancel(id)
			a.decrementPending(app, id)
			cancelled++
		}
	}
	log.WithAppID(app).Info().Int("cancelled", cancelled).Msg("application cancelled")
}
