package flowpb

// ParameterWire is the wire form of types.Parameter. A task submission
// crosses the wire as the numeric DID plus its access mode; a placement
// handed to a worker additionally carries the renamings the master
// resolved for that access, in ReadRenaming/WriteRenaming.
type ParameterWire struct {
	FormalName     string
	Direction      int32
	TypeTag        int32
	Prefix         string
	StreamBinding  string
	DID            uint64
	Value          []byte
	ReadRenaming   string
	WriteRenaming  string
	SubParams      []*ParameterWire
	PreserveSource bool
}

// ImplementationWire is the wire form of types.ImplementationCandidate.
type ImplementationWire struct {
	Name       string
	WorkerKind string
	CPUs       int32
	MemoryMB   int32
	TimeoutMS  int64
}

type SubmitTaskRequest struct {
	TaskID         string
	App            string
	Params         []*ParameterWire
	ImplCandidates []*ImplementationWire
	Priority       int32
	MaxRetries     int32
	CommandLine    []string
}

type SubmitTaskResponse struct {
	Accepted bool
	Error    string
}

type BarrierRequest struct {
	App string
}

type BarrierResponse struct {
	Error string
}

type BarrierGroupRequest struct {
	Key     string
	TaskIDs []string
}

type BarrierGroupResponse struct {
	Error string
}

// OpenFileRequest asks the master to resolve a DID access before the
// caller reads or writes the backing file locally.
type OpenFileRequest struct {
	App  string
	DID  uint64
	Mode int32
}

// OpenFileResponse carries whichever renamings RegisterAccess produced
// for the request's mode: ReadRenaming is set for R/RW/C, WriteRenaming for
// W/RW/C/M.
type OpenFileResponse struct {
	ReadRenaming  string
	WriteRenaming string
	Error         string
}

type CloseFileRequest struct {
	DID      uint64
	Renaming string
}

type CloseFileResponse struct {
	Error string
}

type DeleteFileRequest struct {
	DID uint64
}

type DeleteFileResponse struct {
	Error string
}

type RegisterDataRequest struct{}

type RegisterDataResponse struct {
	DID uint64
}

type CancelApplicationRequest struct {
	App string
}

type CancelApplicationResponse struct{}

type RegisterWorkerRequest struct {
	WorkerID string
	Address  string
	Kind     string
	CPUs     int32
	MemoryMB int32
}

type RegisterWorkerResponse struct {
	Error string
}

type HeartbeatRequest struct {
	WorkerID string
}

type HeartbeatResponse struct{}

type ListAssignedActionsRequest struct {
	WorkerID string
}

// AssignedAction is one placement the worker must fetch, execute, and
// store the results of.
type AssignedAction struct {
	TaskID      string
	CommandLine []string
	Params      []*ParameterWire
	Impl        *ImplementationWire
}

type ListAssignedActionsResponse struct {
	Actions []*AssignedAction
}

// ReportActionStatusRequest carries a worker's report of one action's
// outcome. Status mirrors types.TaskState's integer values (Running when
// execution starts, Done/Failed on completion).
type ReportActionStatusRequest struct {
	WorkerID string
	TaskID   string
	Status   int32
	Error    string
}

type ReportActionStatusResponse struct{}
