package api

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/fluxrun/fluxrun/pkg/api/flowpb"
	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/runtime"
	"github.com/fluxrun/fluxrun/pkg/scheduler"
	"github.com/fluxrun/fluxrun/pkg/types"
)

// Server implements flowpb.FlowMasterAPIServer over a *runtime.Runtime. It
// also doubles as the runtime's Dispatcher: placements the scheduler
// produces are queued per worker here, and workers drain their queue
// through ListAssignedActions.
type Server struct {
	flowpb.UnimplementedFlowMasterAPIServer

	rt     *runtime.Runtime
	logger zerolog.Logger
	grpc   *grpc.Server

	mu      sync.Mutex
	pending map[string][]*flowpb.AssignedAction
}

// NewServer creates an API server fronting rt. The caller must still call
// rt.SetDispatcher(server) before rt.Run, so placements reach the queue
// this server drains.
func NewServer(rt *runtime.Runtime) *Server {
	s := &Server{
		rt:      rt,
		logger:  log.WithComponent("api"),
		pending: make(map[string][]*flowpb.AssignedAction),
	}
	s.grpc = grpc.NewServer(flowpb.ServerCodecOption())
	return s
}

// Dispatch implements runtime.Dispatcher: it queues one placement for the
// worker it was assigned to, to be handed out on the worker's next
// ListAssignedActions poll.
func (s *Server) Dispatch(p scheduler.Placement) {
	action := &flowpb.AssignedAction{
		TaskID:      p.Task.ID,
		CommandLine: p.Task.CommandLine,
		Params:      paramsToWire(p.Task.Params),
		Impl:        implToWire(p.Impl),
	}

	s.mu.Lock()
	s.pending[p.WorkerID] = append(s.pending[p.WorkerID], action)
	s.mu.Unlock()
}

// Start listens on addr and serves until Stop is called or the listener
// errors.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", addr, err)
	}

	flowpb.RegisterFlowMasterAPIServer(s.grpc, s)
	s.logger.Info().Str("addr", addr).Msg("gRPC API listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully drains in-flight RPCs and shuts down the listener.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

func (s *Server) SubmitTask(ctx context.Context, req *flowpb.SubmitTaskRequest) (*flowpb.SubmitTaskResponse, error) {
	task := &types.Task{
		ID:             req.TaskID,
		App:            req.App,
		Params:         wireToParams(req.Params),
		ImplCandidates: wireToImpls(req.ImplCandidates),
		Priority:       int(req.Priority),
		MaxRetries:     int(req.MaxRetries),
		CommandLine:    req.CommandLine,
	}

	if err := s.rt.SubmitTask(ctx, task); err != nil {
		return &flowpb.SubmitTaskResponse{Error: err.Error()}, nil
	}
	return &flowpb.SubmitTaskResponse{Accepted: true}, nil
}

func (s *Server) Barrier(ctx context.Context, req *flowpb.BarrierRequest) (*flowpb.BarrierResponse, error) {
	if err := s.rt.Barrier(ctx, req.App); err != nil {
		return &flowpb.BarrierResponse{Error: err.Error()}, nil
	}
	return &flowpb.BarrierResponse{}, nil
}

func (s *Server) BarrierGroup(ctx context.Context, req *flowpb.BarrierGroupRequest) (*flowpb.BarrierGroupResponse, error) {
	if err := s.rt.BarrierGroup(ctx, req.Key, req.TaskIDs); err != nil {
		return &flowpb.BarrierGroupResponse{Error: err.Error()}, nil
	}
	return &flowpb.BarrierGroupResponse{}, nil
}

// OpenFile resolves a DID access for a user-thread synchronous read or
// write. For a mode with a read component (R, RW) it first blocks on
// BlockDataAndGetResultFile, pinning the latest version only once any
// in-flight concurrent or commutative writers on the DID have drained, so
// the renaming it hands back is never a stale pre-write version.
func (s *Server) OpenFile(ctx context.Context, req *flowpb.OpenFileRequest) (*flowpb.OpenFileResponse, error) {
	did := types.DID(req.DID)
	mode := types.AccessMode(req.Mode)

	if mode == types.R || mode == types.RW {
		if _, _, err := s.rt.DIP().BlockDataAndGetResultFile(did); err != nil {
			return &flowpb.OpenFileResponse{Error: err.Error()}, nil
		}
	}

	read, write, _, err := s.rt.DIP().RegisterAccess(req.App, types.Access{
		DID:  did,
		Mode: mode,
	})
	if err != nil {
		return &flowpb.OpenFileResponse{Error: err.Error()}, nil
	}

	resp := &flowpb.OpenFileResponse{}
	if read != nil {
		resp.ReadRenaming = string(*read)
	}
	if write != nil {
		resp.WriteRenaming = string(*write)
	}
	return resp, nil
}

func (s *Server) CloseFile(ctx context.Context, req *flowpb.CloseFileRequest) (*flowpb.CloseFileResponse, error) {
	if err := s.rt.DIP().FinishAccess(types.DataInstanceID(req.Renaming)); err != nil {
		return &flowpb.CloseFileResponse{Error: err.Error()}, nil
	}
	return &flowpb.CloseFileResponse{}, nil
}

func (s *Server) DeleteFile(ctx context.Context, req *flowpb.DeleteFileRequest) (*flowpb.DeleteFileResponse, error) {
	if err := s.rt.DIP().DeleteData(types.DID(req.DID)); err != nil {
		return &flowpb.DeleteFileResponse{Error: err.Error()}, nil
	}
	return &flowpb.DeleteFileResponse{}, nil
}

func (s *Server) RegisterData(ctx context.Context, req *flowpb.RegisterDataRequest) (*flowpb.RegisterDataResponse, error) {
	did := s.rt.DIP().NewDID()
	return &flowpb.RegisterDataResponse{DID: uint64(did)}, nil
}

func (s *Server) CancelApplication(ctx context.Context, req *flowpb.CancelApplicationRequest) (*flowpb.CancelApplicationResponse, error) {
	s.rt.CancelApplication(req.App)
	return &flowpb.CancelApplicationResponse{}, nil
}

func (s *Server) RegisterWorker(ctx context.Context, req *flowpb.RegisterWorkerRequest) (*flowpb.RegisterWorkerResponse, error) {
	node := types.Node{
		ID:      req.WorkerID,
		Address: req.Address,
		Kind:    req.Kind,
		Resources: types.WorkerResources{
			CPUs:     int(req.CPUs),
			MemoryMB: int(req.MemoryMB),
		},
	}
	if err := s.rt.AddWorker(ctx, node); err != nil {
		return &flowpb.RegisterWorkerResponse{Error: err.Error()}, nil
	}

	s.mu.Lock()
	if _, ok := s.pending[req.WorkerID]; !ok {
		s.pending[req.WorkerID] = nil
	}
	s.mu.Unlock()

	return &flowpb.RegisterWorkerResponse{}, nil
}

func (s *Server) Heartbeat(ctx context.Context, req *flowpb.HeartbeatRequest) (*flowpb.HeartbeatResponse, error) {
	s.rt.Heartbeat(req.WorkerID)
	return &flowpb.HeartbeatResponse{}, nil
}

// ListAssignedActions drains and returns every action queued for the
// requesting worker since its last poll.
func (s *Server) ListAssignedActions(ctx context.Context, req *flowpb.ListAssignedActionsRequest) (*flowpb.ListAssignedActionsResponse, error) {
	s.mu.Lock()
	actions := s.pending[req.WorkerID]
	s.pending[req.WorkerID] = nil
	s.mu.Unlock()

	return &flowpb.ListAssignedActionsResponse{Actions: actions}, nil
}

func (s *Server) ReportActionStatus(ctx context.Context, req *flowpb.ReportActionStatusRequest) (*flowpb.ReportActionStatusResponse, error) {
	switch types.TaskState(req.Status) {
	case types.Running:
		if err := s.rt.MarkRunning(ctx, req.TaskID); err != nil {
			return &flowpb.ReportActionStatusResponse{}, err
		}
	case types.Done:
		if err := s.rt.EndTask(ctx, req.TaskID, nil); err != nil {
			return &flowpb.ReportActionStatusResponse{}, err
		}
	case types.Failed:
		taskErr := types.ErrTaskFailure
		if req.Error != "" {
			taskErr = fmt.Errorf("%w: %s", types.ErrTaskFailure, req.Error)
		}
		if err := s.rt.EndTask(ctx, req.TaskID, taskErr); err != nil {
			return &flowpb.ReportActionStatusResponse{}, err
		}
	}
	return &flowpb.ReportActionStatusResponse{}, nil
}

func paramsToWire(params []types.Parameter) []*flowpb.ParameterWire {
	out := make([]*flowpb.ParameterWire, len(params))
	for i, p := range params {
		out[i] = &flowpb.ParameterWire{
			FormalName:     p.FormalName,
			Direction:      int32(p.Direction),
			TypeTag:        int32(p.TypeTag),
			Prefix:         p.Prefix,
			StreamBinding:  p.StreamBinding,
			DID:            uint64(p.DID),
			ReadRenaming:   string(p.ReadRenaming),
			WriteRenaming:  string(p.WriteRenaming),
			SubParams:      subParamsToWire(p.SubParams),
			PreserveSource: p.PreserveSource,
		}
	}
	return out
}

func subParamsToWire(params []*types.Parameter) []*flowpb.ParameterWire {
	if params == nil {
		return nil
	}
	out := make([]*flowpb.ParameterWire, len(params))
	for i, p := range params {
		out[i] = &flowpb.ParameterWire{
			FormalName:     p.FormalName,
			Direction:      int32(p.Direction),
			TypeTag:        int32(p.TypeTag),
			Prefix:         p.Prefix,
			StreamBinding:  p.StreamBinding,
			DID:            uint64(p.DID),
			ReadRenaming:   string(p.ReadRenaming),
			WriteRenaming:  string(p.WriteRenaming),
			SubParams:      subParamsToWire(p.SubParams),
			PreserveSource: p.PreserveSource,
		}
	}
	return out
}

func wireToParams(wire []*flowpb.ParameterWire) []types.Parameter {
	out := make([]types.Parameter, len(wire))
	for i, w := range wire {
		out[i] = types.Parameter{
			FormalName:     w.FormalName,
			Direction:      types.Direction(w.Direction),
			TypeTag:        types.TypeTag(w.TypeTag),
			Prefix:         w.Prefix,
			StreamBinding:  w.StreamBinding,
			DID:            types.DID(w.DID),
			ReadRenaming:   types.DataInstanceID(w.ReadRenaming),
			WriteRenaming:  types.DataInstanceID(w.WriteRenaming),
			SubParams:      wireToSubParams(w.SubParams),
			PreserveSource: w.PreserveSource,
		}
	}
	return out
}

func wireToSubParams(wire []*flowpb.ParameterWire) []*types.Parameter {
	if wire == nil {
		return nil
	}
	out := make([]*types.Parameter, len(wire))
	for i, w := range wire {
		out[i] = &types.Parameter{
			FormalName:     w.FormalName,
			Direction:      types.Direction(w.Direction),
			TypeTag:        types.TypeTag(w.TypeTag),
			Prefix:         w.Prefix,
			StreamBinding:  w.StreamBinding,
			DID:            types.DID(w.DID),
			ReadRenaming:   types.DataInstanceID(w.ReadRenaming),
			WriteRenaming:  types.DataInstanceID(w.WriteRenaming),
			SubParams:      wireToSubParams(w.SubParams),
			PreserveSource: w.PreserveSource,
		}
	}
	return out
}

func wireToImpls(wire []*flowpb.ImplementationWire) []types.ImplementationCandidate {
	out := make([]types.ImplementationCandidate, len(wire))
	for i, w := range wire {
		out[i] = types.ImplementationCandidate{
			Name:       w.Name,
			WorkerKind: w.WorkerKind,
			CPUs:       int(w.CPUs),
			MemoryMB:   int(w.MemoryMB),
			Timeout:    timeoutFromMS(w.TimeoutMS),
		}
	}
	return out
}

func timeoutFromMS(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func implToWire(impl types.ImplementationCandidate) *flowpb.ImplementationWire {
	return &flowpb.ImplementationWire{
		Name:       impl.Name,
		WorkerKind: impl.WorkerKind,
		CPUs:       int32(impl.CPUs),
		MemoryMB:   int32(impl.MemoryMB),
		TimeoutMS:  impl.Timeout.Milliseconds(),
	}
}
