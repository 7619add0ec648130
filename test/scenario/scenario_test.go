// Package scenario exercises the runtime end-to-end against realistic task
// graphs, driving a *runtime.Runtime through its public API exactly as an
// application or worker would.
package scenario

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxrun/fluxrun/pkg/config"
	"github.com/fluxrun/fluxrun/pkg/runtime"
	"github.com/fluxrun/fluxrun/pkg/scheduler"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// recordingDispatcher captures every placement in arrival order, and lets
// a test drive a task through RUNNING/DONE/FAILED via the harness.
type recordingDispatcher struct {
	mu         sync.Mutex
	placements []scheduler.Placement
}

func (d *recordingDispatcher) Dispatch(p scheduler.Placement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.placements = append(d.placements, p)
}

func (d *recordingDispatcher) all() []scheduler.Placement {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]scheduler.Placement, len(d.placements))
	copy(out, d.placements)
	return out
}

func (d *recordingDispatcher) placementFor(taskID string) (scheduler.Placement, bool) {
	for _, p := range d.all() {
		if p.Task.ID == taskID {
			return p, true
		}
	}
	return scheduler.Placement{}, false
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scheduler.StarvationWait = time.Hour
	cfg.Scheduler.FailureScanEvery = time.Hour
	cfg.Scheduler.ProfileDecaySpec = "0 0 0 1 1 *"
	return cfg
}

type harness struct {
	rt   *runtime.Runtime
	disp *recordingDispatcher
}

func newHarness(t *testing.T, policy string) *harness {
	t.Helper()
	cfg := testConfig()
	if policy != "" {
		cfg.Scheduler.Policy = policy
	}
	rt := runtime.New(cfg)
	disp := &recordingDispatcher{}
	rt.SetDispatcher(disp)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = rt.Run(ctx) }()
	t.Cleanup(cancel)
	return &harness{rt: rt, disp: disp}
}

func (h *harness) addWorker(t *testing.T, id string, localData map[types.DID]bool) {
	t.Helper()
	require.NoError(t, h.rt.AddWorker(context.Background(), types.Node{
		ID:        id,
		Status:    types.WorkerUp,
		Resources: types.WorkerResources{CPUs: 4, MemoryMB: 4096},
		LocalData: localData,
	}))
}

// run drives a dispatched task to DONE, in order: wait for dispatch, mark
// running, end task.
func (h *harness) run(t *testing.T, taskID string) {
	t.Helper()
	ctx := context.Background()
	assert.Eventually(t, func() bool { _, ok := h.disp.placementFor(taskID); return ok }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.rt.MarkRunning(ctx, taskID))
	require.NoError(t, h.rt.EndTask(ctx, taskID, nil))
}

func implOf(name string) []types.ImplementationCandidate {
	return []types.ImplementationCandidate{{Name: name, CPUs: 1, MemoryMB: 1}}
}

// TestReadAfterWriteChain: f()->D1, g(D1)->D2, h(D2). g must wait on f, h on g.
func TestReadAfterWriteChain(t *testing.T) {
	h := newHarness(t, "fifo")
	ctx := context.Background()
	h.addWorker(t, "w1", nil)
	h.addWorker(t, "w2", nil)

	d1 := h.rt.DIP().NewDID()
	d2 := h.rt.DIP().NewDID()

	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "f", App: "app1", ImplCandidates: implOf("f"), MaxRetries: 1,
		Params: []types.Parameter{{FormalName: "out", Direction: types.W, DID: d1}},
	}))
	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "g", App: "app1", ImplCandidates: implOf("g"), MaxRetries: 1,
		Params: []types.Parameter{
			{FormalName: "in", Direction: types.R, DID: d1},
			{FormalName: "out", Direction: types.W, DID: d2},
		},
	}))
	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "h", App: "app1", ImplCandidates: implOf("h"), MaxRetries: 1,
		Params: []types.Parameter{{FormalName: "in", Direction: types.R, DID: d2}},
	}))

	// g and h must not be placed until their predecessor completes.
	time.Sleep(20 * time.Millisecond)
	_, gPlaced := h.disp.placementFor("g")
	_, hPlaced := h.disp.placementFor("h")
	assert.False(t, gPlaced, "g dispatched before f completed")
	assert.False(t, hPlaced, "h dispatched before g completed")

	h.run(t, "f")
	assert.Eventually(t, func() bool { _, ok := h.disp.placementFor("g"); return ok }, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	_, hPlaced = h.disp.placementFor("h")
	assert.False(t, hPlaced, "h dispatched before g completed")

	h.run(t, "g")
	assert.Eventually(t, func() bool { _, ok := h.disp.placementFor("h"); return ok }, time.Second, 5*time.Millisecond)
	h.run(t, "h")
}

// TestFanOutFanIn: producer()->D1; 4x map(D1)->Ri; reduce(R1..R4). All
// four maps become READY together; reduce waits for all four.
func TestFanOutFanIn(t *testing.T) {
	h := newHarness(t, "fifo")
	ctx := context.Background()
	h.addWorker(t, "w1", nil)

	d1 := h.rt.DIP().NewDID()
	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "producer", App: "app1", ImplCandidates: implOf("producer"), MaxRetries: 1,
		Params: []types.Parameter{{FormalName: "out", Direction: types.W, DID: d1}},
	}))
	h.run(t, "producer")

	rDIDs := make([]types.DID, 4)
	mapIDs := make([]string, 4)
	for i := 0; i < 4; i++ {
		rDIDs[i] = h.rt.DIP().NewDID()
		mapIDs[i] = "map" + string(rune('0'+i))
		require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
			ID: mapIDs[i], App: "app1", ImplCandidates: implOf("map"), MaxRetries: 1,
			Params: []types.Parameter{
				{FormalName: "in", Direction: types.R, DID: d1},
				{FormalName: "out", Direction: types.W, DID: rDIDs[i]},
			},
		}))
	}

	reduceParams := make([]types.Parameter, 4)
	for i, did := range rDIDs {
		reduceParams[i] = types.Parameter{FormalName: "in", Direction: types.R, DID: did}
	}
	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "reduce", App: "app1", ImplCandidates: implOf("reduce"), MaxRetries: 1,
		Params: reduceParams,
	}))

	for _, id := range mapIDs {
		assert.Eventually(t, func() bool { _, ok := h.disp.placementFor(id); return ok }, time.Second, 5*time.Millisecond)
	}

	time.Sleep(20 * time.Millisecond)
	_, reducePlaced := h.disp.placementFor("reduce")
	assert.False(t, reducePlaced, "reduce dispatched before all maps completed")

	for i, id := range mapIDs {
		h.run(t, id)
		if i < len(mapIDs)-1 {
			time.Sleep(10 * time.Millisecond)
			_, reducePlaced = h.disp.placementFor("reduce")
			assert.False(t, reducePlaced, "reduce dispatched before all maps completed")
		}
	}

	assert.Eventually(t, func() bool { _, ok := h.disp.placementFor("reduce"); return ok }, time.Second, 5*time.Millisecond)
}

// TestWriteAfterRead: r reads D1; w writes D1. w must not run before r
// finishes, despite declaring no read dependency on w's own output.
func TestWriteAfterRead(t *testing.T) {
	h := newHarness(t, "fifo")
	ctx := context.Background()
	h.addWorker(t, "w1", nil)

	d1 := h.rt.DIP().NewDID()
	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "r", App: "app1", ImplCandidates: implOf("r"), MaxRetries: 1,
		Params: []types.Parameter{{FormalName: "in", Direction: types.R, DID: d1}},
	}))
	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "w", App: "app1", ImplCandidates: implOf("w"), MaxRetries: 1,
		Params: []types.Parameter{{FormalName: "out", Direction: types.W, DID: d1}},
	}))

	assert.Eventually(t, func() bool { _, ok := h.disp.placementFor("r"); return ok }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, wPlaced := h.disp.placementFor("w")
	assert.False(t, wPlaced, "write dispatched before the preceding read finished")

	h.run(t, "r")
	assert.Eventually(t, func() bool { _, ok := h.disp.placementFor("w"); return ok }, time.Second, 5*time.Millisecond)
	h.run(t, "w")
}

// TestRetryExcludesFaultingWorker: maxRetries=2 means the task runs up to
// 3 times; each retry excludes every worker that has already failed it.
func TestRetryExcludesFaultingWorker(t *testing.T) {
	h := newHarness(t, "fifo")
	ctx := context.Background()
	h.addWorker(t, "w1", nil)
	h.addWorker(t, "w2", nil)

	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "x", App: "app1", ImplCandidates: implOf("x"), MaxRetries: 2,
	}))

	assert.Eventually(t, func() bool { _, ok := h.disp.placementFor("x"); return ok }, time.Second, 5*time.Millisecond)
	first, _ := h.disp.placementFor("x")

	require.NoError(t, h.rt.MarkRunning(ctx, "x"))
	require.NoError(t, h.rt.EndTask(ctx, "x", types.ErrTransfer))

	attemptsOf := func() []scheduler.Placement {
		var out []scheduler.Placement
		for _, p := range h.disp.all() {
			if p.Task.ID == "x" {
				out = append(out, p)
			}
		}
		return out
	}
	assert.Eventually(t, func() bool { return len(attemptsOf()) >= 2 }, time.Second, 5*time.Millisecond)

	second := attemptsOf()[1]
	assert.NotEqual(t, first.WorkerID, second.WorkerID, "retry landed back on the worker that just failed it")
	assert.True(t, second.Task.ExcludedNodes[first.WorkerID], "retry's excluded set should carry the faulting worker")
}

// TestCommutativeWritesAnyOrder: three commutative writes to D1 may
// complete in any order; the application barrier only returns once all
// three have returned.
func TestCommutativeWritesAnyOrder(t *testing.T) {
	h := newHarness(t, "fifo")
	ctx := context.Background()
	h.addWorker(t, "w1", nil)

	d1 := h.rt.DIP().NewDID()
	writerIDs := []string{"m1", "m2", "m3"}
	for _, id := range writerIDs {
		require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
			ID: id, App: "app1", ImplCandidates: implOf("commute"), MaxRetries: 1,
			Params: []types.Parameter{{FormalName: "acc", Direction: types.M, DID: d1}},
		}))
	}

	for _, id := range writerIDs {
		assert.Eventually(t, func() bool { _, ok := h.disp.placementFor(id); return ok }, time.Second, 5*time.Millisecond)
	}

	// Complete them out of submission order: m2, m3, m1.
	h.run(t, "m2")
	h.run(t, "m3")
	h.run(t, "m1")

	barrierDone := make(chan error, 1)
	go func() { barrierDone <- h.rt.Barrier(ctx, "app1") }()
	select {
	case err := <-barrierDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("barrier never closed after all commutative writers finished")
	}
}

// TestBarrierWaitsForAllTerminalTasks checks that barrier(app) returns
// only once every task registered before the call reaches a terminal state.
func TestBarrierWaitsForAllTerminalTasks(t *testing.T) {
	h := newHarness(t, "fifo")
	ctx := context.Background()
	h.addWorker(t, "w1", nil)

	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{ID: "a", App: "app1", ImplCandidates: implOf("a"), MaxRetries: 1}))
	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{ID: "b", App: "app1", ImplCandidates: implOf("b"), MaxRetries: 1}))

	barrierDone := make(chan error, 1)
	go func() { barrierDone <- h.rt.Barrier(ctx, "app1") }()

	h.run(t, "a")

	select {
	case <-barrierDone:
		t.Fatal("barrier closed before every registered task finished")
	case <-time.After(20 * time.Millisecond):
	}

	h.run(t, "b")
	select {
	case err := <-barrierDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("barrier did not close once every task finished")
	}
}

// TestDataLocalityPrefersWorkerHoldingMoreInputs exercises the
// "data-locality" placement policy: given two equally-resourced idle
// workers, a task reading several DIDs is placed on the one advertising
// more of them as locally resident.
//
// DataLocalityPolicy.Score weighs locality by how many of a task's read
// DIDs a worker already has (localDataCount), not by the byte size of
// those DIDs' backing data — types.Node.LocalData is a presence set with
// no size dimension attached. The fixture below is built asymmetric enough
// (three resident DIDs against one) that the count-based score still picks
// the intuitively "larger data" worker.
func TestDataLocalityPrefersWorkerHoldingMoreInputs(t *testing.T) {
	h := newHarness(t, "data-locality")
	ctx := context.Background()

	d1 := h.rt.DIP().NewDID()
	d2 := h.rt.DIP().NewDID()
	d3 := h.rt.DIP().NewDID()

	h.addWorker(t, "w-cold", map[types.DID]bool{d1: true})
	h.addWorker(t, "w-hot", map[types.DID]bool{d1: true, d2: true, d3: true})

	require.NoError(t, h.rt.SubmitTask(ctx, &types.Task{
		ID: "consume", App: "app1", ImplCandidates: implOf("consume"), MaxRetries: 1,
		Params: []types.Parameter{
			{FormalName: "a", Direction: types.R, DID: d1},
			{FormalName: "b", Direction: types.R, DID: d2},
			{FormalName: "c", Direction: types.R, DID: d3},
		},
	}))

	assert.Eventually(t, func() bool { _, ok := h.disp.placementFor("consume"); return ok }, time.Second, 5*time.Millisecond)
	p, _ := h.disp.placementFor("consume")
	assert.Equal(t, "w-hot", p.WorkerID, "task should land on the worker holding more of its inputs")
}
