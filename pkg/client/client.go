// Package client is a thin Go binding over the flowpb wire contract, used
// by cmd/fluxctl and meant as the reference a real language binding (the
// Python/Java side of the runtime) would follow.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fluxrun/fluxrun/pkg/api/flowpb"
)

const defaultTimeout = 10 * time.Second

// Client wraps a gRPC connection to a master's flowpb.FlowMasterAPI.
type Client struct {
	conn *grpc.ClientConn
	api  flowpb.FlowMasterAPIClient
}

// New dials addr and returns a Client ready to submit work. The connection
// carries no transport credentials beyond TLS-disabled insecure mode;
// authenticating the wire is out of scope (see DESIGN.md).
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		flowpb.DialCodecOption(),
	)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{conn: conn, api: flowpb.NewFlowMasterAPIClient(conn)}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) SubmitTask(req *flowpb.SubmitTaskRequest) (*flowpb.SubmitTaskResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return c.api.SubmitTask(ctx, req)
}

// Barrier has no fixed deadline: it legitimately waits on however long the
// application's in-flight tasks take to finish.
func (c *Client) Barrier(app string) (*flowpb.BarrierResponse, error) {
	return c.api.Barrier(context.Background(), &flowpb.BarrierRequest{App: app})
}

func (c *Client) BarrierGroup(key string, taskIDs []string) (*flowpb.BarrierGroupResponse, error) {
	return c.api.BarrierGroup(context.Background(), &flowpb.BarrierGroupRequest{Key: key, TaskIDs: taskIDs})
}

func (c *Client) OpenFile(app string, did uint64, mode int32) (*flowpb.OpenFileResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return c.api.OpenFile(ctx, &flowpb.OpenFileRequest{App: app, DID: did, Mode: mode})
}

func (c *Client) CloseFile(did uint64, renaming string) (*flowpb.CloseFileResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return c.api.CloseFile(ctx, &flowpb.CloseFileRequest{DID: did, Renaming: renaming})
}

func (c *Client) DeleteFile(did uint64) (*flowpb.DeleteFileResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return c.api.DeleteFile(ctx, &flowpb.DeleteFileRequest{DID: did})
}

func (c *Client) RegisterData() (*flowpb.RegisterDataResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return c.api.RegisterData(ctx, &flowpb.RegisterDataRequest{})
}

func (c *Client) CancelApplication(app string) (*flowpb.CancelApplicationResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return c.api.CancelApplication(ctx, &flowpb.CancelApplicationRequest{App: app})
}
