package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxrun/fluxrun/pkg/config"
	"github.com/fluxrun/fluxrun/pkg/scheduler"
	"github.com/fluxrun/fluxrun/pkg/types"
)

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

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scheduler.StarvationWait = time.Hour
	cfg.Scheduler.FailureScanEvery = time.Hour
	cfg.Scheduler.ProfileDecaySpec = "0 0 0 1 1 *" // once a year, never fires in tests
	return cfg
}

func newTestRuntime(t *testing.T) (*Runtime, *recordingDispatcher, context.CancelFunc) {
	t.Helper()
	rt := New(testConfig())
	disp := &recordingDispatcher{}
	rt.SetDispatcher(disp)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = rt.Run(ctx) }()
	t.Cleanup(cancel)
	return rt, disp, cancel
}

func simpleTask(id string) *types.Task {
	return &types.Task{
		ID:   id,
		App:  "app1",
		State: types.Created,
		ImplCandidates: []types.ImplementationCandidate{
			{Name: "impl1", WorkerKind: "", CPUs: 1, MemoryMB: 1},
		},
		MaxRetries: 3,
	}
}

func TestSubmitTaskDispatchesWhenWorkerAvailable(t *testing.T) {
	rt, disp, _ := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.AddWorker(ctx, types.Node{
		ID:        "w1",
		Status:    types.WorkerUp,
		Resources: types.WorkerResources{CPUs: 4, MemoryMB: 4096},
	}))

	require.NoError(t, rt.SubmitTask(ctx, simpleTask("t1")))

	assert.Eventually(t, func() bool { return len(disp.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "t1", disp.all()[0].Task.ID)
}

func TestSubmitTaskQueuesWithoutWorker(t *testing.T) {
	rt, disp, _ := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.SubmitTask(ctx, simpleTask("t1")))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, disp.all())

	require.NoError(t, rt.AddWorker(ctx, types.Node{
		ID:        "w1",
		Status:    types.WorkerUp,
		Resources: types.WorkerResources{CPUs: 4, MemoryMB: 4096},
	}))
	assert.Eventually(t, func() bool { return len(disp.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestEndTaskFreesCapacityForNextTask(t *testing.T) {
	rt, disp, _ := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.AddWorker(ctx, types.Node{
		ID:        "w1",
		Status:    types.WorkerUp,
		Resources: types.WorkerResources{CPUs: 1, MemoryMB: 1},
	}))

	require.NoError(t, rt.SubmitTask(ctx, simpleTask("t1")))
	assert.Eventually(t, func() bool { return len(disp.all()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, rt.SubmitTask(ctx, simpleTask("t2")))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, disp.all(), 1, "t2 should queue until t1's capacity frees")

	require.NoError(t, rt.MarkRunning(ctx, "t1"))
	require.NoError(t, rt.EndTask(ctx, "t1", nil))
	assert.Eventually(t, func() bool { return len(disp.all()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestBarrierClosesWhenTaskCompletes(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.AddWorker(ctx, types.Node{
		ID:        "w1",
		Status:    types.WorkerUp,
		Resources: types.WorkerResources{CPUs: 1, MemoryMB: 1},
	}))
	require.NoError(t, rt.SubmitTask(ctx, simpleTask("t1")))

	barrierDone := make(chan error, 1)
	go func() { barrierDone <- rt.Barrier(ctx, "app1") }()

	select {
	case <-barrierDone:
		t.Fatal("barrier closed before task completed")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, rt.MarkRunning(ctx, "t1"))
	require.NoError(t, rt.EndTask(ctx, "t1", nil))
	select {
	case err := <-barrierDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("barrier did not close after task completed")
	}
}

func TestRemoveWorkerRetriesOrphanedTask(t *testing.T) {
	rt, disp, _ := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.AddWorker(ctx, types.Node{
		ID:        "w1",
		Status:    types.WorkerUp,
		Resources: types.WorkerResources{CPUs: 1, MemoryMB: 1},
	}))
	require.NoError(t, rt.SubmitTask(ctx, simpleTask("t1")))
	assert.Eventually(t, func() bool { return len(disp.all()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, rt.AddWorker(ctx, types.Node{
		ID:        "w2",
		Status:    types.WorkerUp,
		Resources: types.WorkerResources{CPUs: 1, MemoryMB: 1},
	}))
	require.NoError(t, rt.RemoveWorker(ctx, "w1"))

	assert.Eventually(t, func() bool {
		for _, p := range disp.all() {
			if p.Task.ID == "t1" && p.WorkerID == "w2" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}
