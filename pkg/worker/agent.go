// Package worker is the worker-side agent: it registers with a master,
// heartbeats on a ticker, and polls for assigned actions it fetches,
// executes, and stores the results of.
package worker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fluxrun/fluxrun/pkg/api/flowpb"
	"github.com/fluxrun/fluxrun/pkg/datamanager"
	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// UserCodeInvoker runs one task's user code. The language-side invocation
// of that code inside the worker process is out of scope for this
// runtime; concrete implementations here stand in for it.
type UserCodeInvoker interface {
	Invoke(ctx context.Context, action *flowpb.AssignedAction) error
}

// ShellInvoker runs an action's command line as a local subprocess, for
// single-host testing.
type ShellInvoker struct{}

func (ShellInvoker) Invoke(ctx context.Context, action *flowpb.AssignedAction) error {
	if len(action.CommandLine) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, action.CommandLine[0], action.CommandLine[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("shell invoker: %s: %w: %s", strings.Join(action.CommandLine, " "), err, out)
	}
	return nil
}

// FakeInvoker is a no-op invoker for unit tests, optionally returning a
// fixed error to exercise the failure path.
type FakeInvoker struct {
	Err     error
	Invoked []string
}

func (f *FakeInvoker) Invoke(ctx context.Context, action *flowpb.AssignedAction) error {
	f.Invoked = append(f.Invoked, action.TaskID)
	return f.Err
}

// MasterClient is the subset of flowpb.FlowMasterAPIClient the agent
// drives; satisfied directly by the generated client, and stubbed in
// tests.
type MasterClient interface {
	RegisterWorker(ctx context.Context, in *flowpb.RegisterWorkerRequest) (*flowpb.RegisterWorkerResponse, error)
	Heartbeat(ctx context.Context, in *flowpb.HeartbeatRequest) (*flowpb.HeartbeatResponse, error)
	ListAssignedActions(ctx context.Context, in *flowpb.ListAssignedActionsRequest) (*flowpb.ListAssignedActionsResponse, error)
	ReportActionStatus(ctx context.Context, in *flowpb.ReportActionStatusRequest) (*flowpb.ReportActionStatusResponse, error)
}

// Agent is one worker process: it registers with a master, then runs a
// heartbeat loop and an executor loop until Stop is called.
type Agent struct {
	workerID string
	kind     string
	cpus     int
	memoryMB int

	master  MasterClient
	data    *datamanager.Manager
	invoker UserCodeInvoker
	logger  zerolog.Logger

	heartbeatEvery time.Duration
	pollEvery      time.Duration

	stopCh chan struct{}
}

// Config bundles the pieces Agent needs to run standalone.
type Config struct {
	WorkerID       string
	Kind           string
	CPUs           int
	MemoryMB       int
	HeartbeatEvery time.Duration
	PollEvery      time.Duration
}

// New builds an Agent that registers over master, fetches/stores data
// through data, and runs user code through invoker.
func New(cfg Config, master MasterClient, data *datamanager.Manager, invoker UserCodeInvoker) *Agent {
	heartbeatEvery := cfg.HeartbeatEvery
	if heartbeatEvery == 0 {
		heartbeatEvery = 5 * time.Second
	}
	pollEvery := cfg.PollEvery
	if pollEvery == 0 {
		pollEvery = 3 * time.Second
	}

	return &Agent{
		workerID:       cfg.WorkerID,
		kind:           cfg.Kind,
		cpus:           cfg.CPUs,
		memoryMB:       cfg.MemoryMB,
		master:         master,
		data:           data,
		invoker:        invoker,
		logger:         log.WithComponent("worker").With().Str("worker_id", cfg.WorkerID).Logger(),
		heartbeatEvery: heartbeatEvery,
		pollEvery:      pollEvery,
		stopCh:         make(chan struct{}),
	}
}

// Run registers with the master and blocks running the heartbeat and
// executor loops until ctx is cancelled or Stop is called.
func (a *Agent) Run(ctx context.Context) error {
	if _, err := a.master.RegisterWorker(ctx, &flowpb.RegisterWorkerRequest{
		WorkerID: a.workerID,
		Kind:     a.kind,
		CPUs:     int32(a.cpus),
		MemoryMB: int32(a.memoryMB),
	}); err != nil {
		return fmt.Errorf("worker %s: register: %w", a.workerID, err)
	}

	go a.heartbeatLoop(ctx)
	a.executorLoop(ctx)
	return nil
}

// Stop ends Run's heartbeat and executor loops.
func (a *Agent) Stop() {
	close(a.stopCh)
}

func (a *Agent) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(a.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-ticker.C:
			if _, err := a.master.Heartbeat(ctx, &flowpb.HeartbeatRequest{WorkerID: a.workerID}); err != nil {
				a.logger.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

func (a *Agent) executorLoop(ctx context.Context) {
	ticker := time.NewTicker(a.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.pollAndRun(ctx)
		}
	}
}

func (a *Agent) pollAndRun(ctx context.Context) {
	resp, err := a.master.ListAssignedActions(ctx, &flowpb.ListAssignedActionsRequest{WorkerID: a.workerID})
	if err != nil {
		a.logger.Warn().Err(err).Msg("list assigned actions failed")
		return
	}

	for _, action := range resp.Actions {
		a.runOne(ctx, action)
	}
}

// runOne executes fetch -> execute -> store sequentially for one action,
// reporting RUNNING before execution and DONE/FAILED after.
func (a *Agent) runOne(ctx context.Context, action *flowpb.AssignedAction) {
	logger := a.logger.With().Str("task_id", action.TaskID).Logger()

	if err := a.fetchInputs(ctx, action); err != nil {
		logger.Error().Err(err).Msg("fetch failed")
		a.report(ctx, action.TaskID, types.Failed, err)
		return
	}

	if _, err := a.master.ReportActionStatus(ctx, &flowpb.ReportActionStatusRequest{
		WorkerID: a.workerID, TaskID: action.TaskID, Status: int32(types.Running),
	}); err != nil {
		logger.Warn().Err(err).Msg("report running failed")
	}

	if err := a.invoker.Invoke(ctx, action); err != nil {
		logger.Error().Err(err).Msg("execution failed")
		a.report(ctx, action.TaskID, types.Failed, err)
		return
	}

	if err := a.storeOutputs(action); err != nil {
		logger.Error().Err(err).Msg("store failed")
		a.report(ctx, action.TaskID, types.Failed, err)
		return
	}

	a.report(ctx, action.TaskID, types.Done, nil)
}

func (a *Agent) fetchInputs(ctx context.Context, action *flowpb.AssignedAction) error {
	for _, p := range action.Params {
		if p.ReadRenaming == "" {
			continue
		}
		param := wireParamToDomain(p)
		renaming := types.DataInstanceID(p.ReadRenaming)
		// Single-host deployments share one workDir across workers, so
		// the producing and consuming workers resolve the same renaming
		// to the same on-disk path (see transfer.LocalProvider).
		sourcePath := a.data.LocalPath(renaming)
		if err := a.data.FetchParam(ctx, param, renaming, "", sourcePath); err != nil {
			return fmt.Errorf("fetch %s: %w", p.FormalName, err)
		}
	}
	return nil
}

func (a *Agent) storeOutputs(action *flowpb.AssignedAction) error {
	for _, p := range action.Params {
		if p.WriteRenaming == "" {
			continue
		}
		param := wireParamToDomain(p)
		renaming := types.DataInstanceID(p.WriteRenaming)
		value, err := a.data.LoadParam(renaming)
		if err != nil {
			return fmt.Errorf("load produced %s: %w", p.FormalName, err)
		}
		if err := a.data.StoreParam(param, renaming, value); err != nil {
			return fmt.Errorf("store %s: %w", p.FormalName, err)
		}
	}
	return nil
}

func (a *Agent) report(ctx context.Context, taskID string, status types.TaskState, taskErr error) {
	req := &flowpb.ReportActionStatusRequest{WorkerID: a.workerID, TaskID: taskID, Status: int32(status)}
	if taskErr != nil {
		req.Error = taskErr.Error()
	}
	if _, err := a.master.ReportActionStatus(ctx, req); err != nil {
		a.logger.Warn().Err(err).Str("task_id", taskID).Msg("report status failed")
	}
}

func wireParamToDomain(p *flowpb.ParameterWire) types.Parameter {
	return types.Parameter{
		FormalName:    p.FormalName,
		Direction:     types.Direction(p.Direction),
		TypeTag:       types.TypeTag(p.TypeTag),
		Prefix:        p.Prefix,
		StreamBinding: p.StreamBinding,
		DID:           types.DID(p.DID),
		ReadRenaming:  types.DataInstanceID(p.ReadRenaming),
		WriteRenaming: types.DataInstanceID(p.WriteRenaming),
	}
}
