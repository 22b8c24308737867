package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/wire"
)

// Client calls TargetService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

// RequestReverse asks the server for the closest object behind the robot.
func (c *Client) RequestReverse(ctx context.Context, opts ...grpc.CallOption) (dispatch.Target, error) {
	out := new(wire.Target)
	if err := c.cc.Invoke(ctx, requestReverseMethod, &wire.ReverseRequest{}, out, callOptions(opts)...); err != nil {
		return dispatch.Target{}, err
	}
	return out.Target(), nil
}

// TargetReceiver reads a StreamTargets response stream.
type TargetReceiver struct {
	stream grpc.ClientStream
}

// Recv blocks for the next target.
func (r *TargetReceiver) Recv() (dispatch.Target, error) {
	m := new(wire.Target)
	if err := r.stream.RecvMsg(m); err != nil {
		return dispatch.Target{}, err
	}
	return m.Target(), nil
}

// StreamTargets subscribes to published targets.
func (c *Client) StreamTargets(ctx context.Context, req *wire.StreamRequest, opts ...grpc.CallOption) (*TargetReceiver, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], streamTargetsMethod, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &wire.StreamRequest{}
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &TargetReceiver{stream: stream}, nil
}
