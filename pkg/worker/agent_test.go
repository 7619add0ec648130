package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxrun/fluxrun/pkg/api/flowpb"
	"github.com/fluxrun/fluxrun/pkg/datamanager"
	"github.com/fluxrun/fluxrun/pkg/storage"
	"github.com/fluxrun/fluxrun/pkg/transfer"
	"github.com/fluxrun/fluxrun/pkg/types"
)

type fakeMaster struct {
	mu          sync.Mutex
	registered  *flowpb.RegisterWorkerRequest
	heartbeats  int
	actions     []*flowpb.AssignedAction
	reports     []*flowpb.ReportActionStatusRequest
}

func (f *fakeMaster) RegisterWorker(ctx context.Context, in *flowpb.RegisterWorkerRequest) (*flowpb.RegisterWorkerResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = in
	return &flowpb.RegisterWorkerResponse{}, nil
}

func (f *fakeMaster) Heartbeat(ctx context.Context, in *flowpb.HeartbeatRequest) (*flowpb.HeartbeatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return &flowpb.HeartbeatResponse{}, nil
}

func (f *fakeMaster) ListAssignedActions(ctx context.Context, in *flowpb.ListAssignedActionsRequest) (*flowpb.ListAssignedActionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.actions
	f.actions = nil
	return &flowpb.ListAssignedActionsResponse{Actions: out}, nil
}

func (f *fakeMaster) ReportActionStatus(ctx context.Context, in *flowpb.ReportActionStatusRequest) (*flowpb.ReportActionStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, in)
	return &flowpb.ReportActionStatusResponse{}, nil
}

func (f *fakeMaster) reportsSnapshot() []*flowpb.ReportActionStatusRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*flowpb.ReportActionStatusRequest, len(f.reports))
	copy(out, f.reports)
	return out
}

func newTestAgent(t *testing.T, master *fakeMaster, invoker UserCodeInvoker) *Agent {
	t.Helper()
	backend, err := storage.New("")
	require.NoError(t, err)
	dm := datamanager.New("w1", t.TempDir(), transfer.NewLocalProvider(), backend, true)
	return New(Config{
		WorkerID:       "w1",
		CPUs:           2,
		MemoryMB:       1024,
		HeartbeatEvery: 10 * time.Millisecond,
		PollEvery:      10 * time.Millisecond,
	}, master, dm, invoker)
}

func TestRunRegistersThenExecutesAssignedAction(t *testing.T) {
	master := &fakeMaster{
		actions: []*flowpb.AssignedAction{
			{TaskID: "t1", CommandLine: []string{"true"}},
		},
	}
	invoker := &FakeInvoker{}
	agent := newTestAgent(t, master, invoker)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = agent.Run(ctx) }()
	t.Cleanup(cancel)

	assert.Eventually(t, func() bool {
		return len(invoker.Invoked) == 1
	}, time.Second, 5*time.Millisecond)

	require.NotNil(t, master.registered)
	assert.Equal(t, "w1", master.registered.WorkerID)

	assert.Eventually(t, func() bool {
		for _, r := range master.reportsSnapshot() {
			if r.TaskID == "t1" && r.Status == int32(types.Done) {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestRunReportsFailedWhenInvokerErrors(t *testing.T) {
	master := &fakeMaster{
		actions: []*flowpb.AssignedAction{
			{TaskID: "t1", CommandLine: []string{"false"}},
		},
	}
	invoker := &FakeInvoker{Err: assertError("boom")}
	agent := newTestAgent(t, master, invoker)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = agent.Run(ctx) }()
	t.Cleanup(cancel)

	assert.Eventually(t, func() bool {
		for _, r := range master.reportsSnapshot() {
			if r.TaskID == "t1" && r.Status == int32(types.Failed) {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatLoopTicksRepeatedly(t *testing.T) {
	master := &fakeMaster{}
	agent := newTestAgent(t, master, &FakeInvoker{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = agent.Run(ctx) }()
	t.Cleanup(cancel)

	assert.Eventually(t, func() bool {
		master.mu.Lock()
		defer master.mu.Unlock()
		return master.heartbeats >= 2
	}, time.Second, 5*time.Millisecond)
}

type assertError string

func (e assertError) Error() string { return string(e) }
