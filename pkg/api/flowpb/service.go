package flowpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	FlowMasterAPI_SubmitTask_FullMethodName          = "/flowpb.FlowMasterAPI/SubmitTask"
	FlowMasterAPI_Barrier_FullMethodName             = "/flowpb.FlowMasterAPI/Barrier"
	FlowMasterAPI_BarrierGroup_FullMethodName        = "/flowpb.FlowMasterAPI/BarrierGroup"
	FlowMasterAPI_OpenFile_FullMethodName            = "/flowpb.FlowMasterAPI/OpenFile"
	FlowMasterAPI_CloseFile_FullMethodName           = "/flowpb.FlowMasterAPI/CloseFile"
	FlowMasterAPI_DeleteFile_FullMethodName          = "/flowpb.FlowMasterAPI/DeleteFile"
	FlowMasterAPI_RegisterData_FullMethodName        = "/flowpb.FlowMasterAPI/RegisterData"
	FlowMasterAPI_CancelApplication_FullMethodName   = "/flowpb.FlowMasterAPI/CancelApplication"
	FlowMasterAPI_RegisterWorker_FullMethodName      = "/flowpb.FlowMasterAPI/RegisterWorker"
	FlowMasterAPI_Heartbeat_FullMethodName           = "/flowpb.FlowMasterAPI/Heartbeat"
	FlowMasterAPI_ListAssignedActions_FullMethodName = "/flowpb.FlowMasterAPI/ListAssignedActions"
	FlowMasterAPI_ReportActionStatus_FullMethodName  = "/flowpb.FlowMasterAPI/ReportActionStatus"
)

// FlowMasterAPIClient is the client API for the FlowMasterAPI service.
type FlowMasterAPIClient interface {
	SubmitTask(ctx context.Context, in *SubmitTaskRequest, opts ...grpc.CallOption) (*SubmitTaskResponse, error)
	Barrier(ctx context.Context, in *BarrierRequest, opts ...grpc.CallOption) (*BarrierResponse, error)
	BarrierGroup(ctx context.Context, in *BarrierGroupRequest, opts ...grpc.CallOption) (*BarrierGroupResponse, error)
	OpenFile(ctx context.Context, in *OpenFileRequest, opts ...grpc.CallOption) (*OpenFileResponse, error)
	CloseFile(ctx context.Context, in *CloseFileRequest, opts ...grpc.CallOption) (*CloseFileResponse, error)
	DeleteFile(ctx context.Context, in *DeleteFileRequest, opts ...grpc.CallOption) (*DeleteFileResponse, error)
	RegisterData(ctx context.Context, in *RegisterDataRequest, opts ...grpc.CallOption) (*RegisterDataResponse, error)
	CancelApplication(ctx context.Context, in *CancelApplicationRequest, opts ...grpc.CallOption) (*CancelApplicationResponse, error)
	RegisterWorker(ctx context.Context, in *RegisterWorkerRequest, opts ...grpc.CallOption) (*RegisterWorkerResponse, error)
	Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error)
	ListAssignedActions(ctx context.Context, in *ListAssignedActionsRequest, opts ...grpc.CallOption) (*ListAssignedActionsResponse, error)
	ReportActionStatus(ctx context.Context, in *ReportActionStatusRequest, opts ...grpc.CallOption) (*ReportActionStatusResponse, error)
}

type flowMasterAPIClient struct {
	cc grpc.ClientConnInterface
}

// NewFlowMasterAPIClient wraps cc as a FlowMasterAPIClient.
func NewFlowMasterAPIClient(cc grpc.ClientConnInterface) FlowMasterAPIClient {
	return &flowMasterAPIClient{cc}
}

func (c *flowMasterAPIClient) SubmitTask(ctx context.Context, in *SubmitTaskRequest, opts ...grpc.CallOption) (*SubmitTaskResponse, error) {
	out := new(SubmitTaskResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_SubmitTask_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) Barrier(ctx context.Context, in *BarrierRequest, opts ...grpc.CallOption) (*BarrierResponse, error) {
	out := new(BarrierResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_Barrier_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) BarrierGroup(ctx context.Context, in *BarrierGroupRequest, opts ...grpc.CallOption) (*BarrierGroupResponse, error) {
	out := new(BarrierGroupResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_BarrierGroup_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) OpenFile(ctx context.Context, in *OpenFileRequest, opts ...grpc.CallOption) (*OpenFileResponse, error) {
	out := new(OpenFileResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_OpenFile_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) CloseFile(ctx context.Context, in *CloseFileRequest, opts ...grpc.CallOption) (*CloseFileResponse, error) {
	out := new(CloseFileResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_CloseFile_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) DeleteFile(ctx context.Context, in *DeleteFileRequest, opts ...grpc.CallOption) (*DeleteFileResponse, error) {
	out := new(DeleteFileResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_DeleteFile_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) RegisterData(ctx context.Context, in *RegisterDataRequest, opts ...grpc.CallOption) (*RegisterDataResponse, error) {
	out := new(RegisterDataResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_RegisterData_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) CancelApplication(ctx context.Context, in *CancelApplicationRequest, opts ...grpc.CallOption) (*CancelApplicationResponse, error) {
	out := new(CancelApplicationResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_CancelApplication_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) RegisterWorker(ctx context.Context, in *RegisterWorkerRequest, opts ...grpc.CallOption) (*RegisterWorkerResponse, error) {
	out := new(RegisterWorkerResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_RegisterWorker_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error) {
	out := new(HeartbeatResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_Heartbeat_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) ListAssignedActions(ctx context.Context, in *ListAssignedActionsRequest, opts ...grpc.CallOption) (*ListAssignedActionsResponse, error) {
	out := new(ListAssignedActionsResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_ListAssignedActions_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *flowMasterAPIClient) ReportActionStatus(ctx context.Context, in *ReportActionStatusRequest, opts ...grpc.CallOption) (*ReportActionStatusResponse, error) {
	out := new(ReportActionStatusResponse)
	if err := c.cc.Invoke(ctx, FlowMasterAPI_ReportActionStatus_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FlowMasterAPIServer is the server API for the FlowMasterAPI service. All
// implementations must embed UnimplementedFlowMasterAPIServer for forward
// compatibility.
type FlowMasterAPIServer interface {
	SubmitTask(context.Context, *SubmitTaskRequest) (*SubmitTaskResponse, error)
	Barrier(context.Context, *BarrierRequest) (*BarrierResponse, error)
	BarrierGroup(context.Context, *BarrierGroupRequest) (*BarrierGroupResponse, error)
	OpenFile(context.Context, *OpenFileRequest) (*OpenFileResponse, error)
	CloseFile(context.Context, *CloseFileRequest) (*CloseFileResponse, error)
	DeleteFile(context.Context, *DeleteFileRequest) (*DeleteFileResponse, error)
	RegisterData(context.Context, *RegisterDataRequest) (*RegisterDataResponse, error)
	CancelApplication(context.Context, *CancelApplicationRequest) (*CancelApplicationResponse, error)
	RegisterWorker(context.Context, *RegisterWorkerRequest) (*RegisterWorkerResponse, error)
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
	ListAssignedActions(context.Context, *ListAssignedActionsRequest) (*ListAssignedActionsResponse, error)
	ReportActionStatus(context.Context, *ReportActionStatusRequest) (*ReportActionStatusResponse, error)
	mustEmbedUnimplementedFlowMasterAPIServer()
}

// UnimplementedFlowMasterAPIServer must be embedded to have forward
// compatible implementations.
type UnimplementedFlowMasterAPIServer struct{}

func (UnimplementedFlowMasterAPIServer) SubmitTask(context.Context, *SubmitTaskRequest) (*SubmitTaskResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitTask not implemented")
}
func (UnimplementedFlowMasterAPIServer) Barrier(context.Context, *BarrierRequest) (*BarrierResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Barrier not implemented")
}
func (UnimplementedFlowMasterAPIServer) BarrierGroup(context.Context, *BarrierGroupRequest) (*BarrierGroupResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method BarrierGroup not implemented")
}
func (UnimplementedFlowMasterAPIServer) OpenFile(context.Context, *OpenFileRequest) (*OpenFileResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method OpenFile not implemented")
}
func (UnimplementedFlowMasterAPIServer) CloseFile(context.Context, *CloseFileRequest) (*CloseFileResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CloseFile not implemented")
}
func (UnimplementedFlowMasterAPIServer) DeleteFile(context.Context, *DeleteFileRequest) (*DeleteFileResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeleteFile not implemented")
}
func (UnimplementedFlowMasterAPIServer) RegisterData(context.Context, *RegisterDataRequest) (*RegisterDataResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RegisterData not implemented")
}
func (UnimplementedFlowMasterAPIServer) CancelApplication(context.Context, *CancelApplicationRequest) (*CancelApplicationResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CancelApplication not implemented")
}
func (UnimplementedFlowMasterAPIServer) RegisterWorker(context.Context, *RegisterWorkerRequest) (*RegisterWorkerResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RegisterWorker not implemented")
}
func (UnimplementedFlowMasterAPIServer) Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Heartbeat not implemented")
}
func (UnimplementedFlowMasterAPIServer) ListAssignedActions(context.Context, *ListAssignedActionsRequest) (*ListAssignedActionsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListAssignedActions not implemented")
}
func (UnimplementedFlowMasterAPIServer) ReportActionStatus(context.Context, *ReportActionStatusRequest) (*ReportActionStatusResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ReportActionStatus not implemented")
}
func (UnimplementedFlowMasterAPIServer) mustEmbedUnimplementedFlowMasterAPIServer() {}

// RegisterFlowMasterAPIServer registers srv with s.
func RegisterFlowMasterAPIServer(s grpc.ServiceRegistrar, srv FlowMasterAPIServer) {
	s.RegisterService(&FlowMasterAPI_ServiceDesc, srv)
}

func _FlowMasterAPI_SubmitTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitTaskRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).SubmitTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_SubmitTask_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).SubmitTask(ctx, req.(*SubmitTaskRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_Barrier_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BarrierRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).Barrier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_Barrier_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).Barrier(ctx, req.(*BarrierRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_BarrierGroup_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BarrierGroupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).BarrierGroup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_BarrierGroup_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).BarrierGroup(ctx, req.(*BarrierGroupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_OpenFile_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(OpenFileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).OpenFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_OpenFile_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).OpenFile(ctx, req.(*OpenFileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_CloseFile_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CloseFileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).CloseFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_CloseFile_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).CloseFile(ctx, req.(*CloseFileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_DeleteFile_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteFileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).DeleteFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_DeleteFile_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).DeleteFile(ctx, req.(*DeleteFileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_RegisterData_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterDataRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).RegisterData(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_RegisterData_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).RegisterData(ctx, req.(*RegisterDataRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_CancelApplication_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CancelApplicationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).CancelApplication(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_CancelApplication_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).CancelApplication(ctx, req.(*CancelApplicationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_RegisterWorker_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterWorkerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).RegisterWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_RegisterWorker_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).RegisterWorker(ctx, req.(*RegisterWorkerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_Heartbeat_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_Heartbeat_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).Heartbeat(ctx, req.(*HeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_ListAssignedActions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListAssignedActionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).ListAssignedActions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_ListAssignedActions_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).ListAssignedActions(ctx, req.(*ListAssignedActionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlowMasterAPI_ReportActionStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReportActionStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlowMasterAPIServer).ReportActionStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlowMasterAPI_ReportActionStatus_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FlowMasterAPIServer).ReportActionStatus(ctx, req.(*ReportActionStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// FlowMasterAPI_ServiceDesc is the grpc.ServiceDesc for the FlowMasterAPI
// service, in the shape RegisterFlowMasterAPIServer expects.
var FlowMasterAPI_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "flowpb.FlowMasterAPI",
	HandlerType: (*FlowMasterAPIServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitTask", Handler: _FlowMasterAPI_SubmitTask_Handler},
		{MethodName: "Barrier", Handler: _FlowMasterAPI_Barrier_Handler},
		{MethodName: "BarrierGroup", Handler: _FlowMasterAPI_BarrierGroup_Handler},
		{MethodName: "OpenFile", Handler: _FlowMasterAPI_OpenFile_Handler},
		{MethodName: "CloseFile", Handler: _FlowMasterAPI_CloseFile_Handler},
		{MethodName: "DeleteFile", Handler: _FlowMasterAPI_DeleteFile_Handler},
		{MethodName: "RegisterData", Handler: _FlowMasterAPI_RegisterData_Handler},
		{MethodName: "CancelApplication", Handler: _FlowMasterAPI_CancelApplication_Handler},
		{MethodName: "RegisterWorker", Handler: _FlowMasterAPI_RegisterWorker_Handler},
		{MethodName: "Heartbeat", Handler: _FlowMasterAPI_Heartbeat_Handler},
		{MethodName: "ListAssignedActions", Handler: _FlowMasterAPI_ListAssignedActions_Handler},
		{MethodName: "ReportActionStatus", Handler: _FlowMasterAPI_ReportActionStatus_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flowpb/flow_master_api.proto",
}
