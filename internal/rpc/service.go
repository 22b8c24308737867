package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/banshee-data/nextobject/internal/wire"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "nextobject.v1.TargetService"

const (
	requestReverseMethod = "/" + ServiceName + "/RequestReverse"
	streamTargetsMethod  = "/" + ServiceName + "/StreamTargets"
)

// TargetServiceServer is the server API for TargetService.
type TargetServiceServer interface {
	RequestReverse(context.Context, *wire.ReverseRequest) (*wire.Target, error)
	StreamTargets(*wire.StreamRequest, TargetStream) error
}

// TargetStream is the server side of a StreamTargets call.
type TargetStream interface {
	Send(*wire.Target) error
	Context() context.Context
}

type targetStream struct {
	grpc.ServerStream
}

func (s *targetStream) Send(t *wire.Target) error {
	return s.ServerStream.SendMsg(t)
}

// ServiceDesc describes TargetService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TargetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestReverse", Handler: requestReverseHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamTargets", Handler: streamTargetsHandler, ServerStreams: true},
	},
	Metadata: "internal/wire/target.proto",
}

// RegisterTargetServiceServer registers srv with s.
func RegisterTargetServiceServer(s grpc.ServiceRegistrar, srv TargetServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func requestReverseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.ReverseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TargetServiceServer).RequestReverse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: requestReverseMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TargetServiceServer).RequestReverse(ctx, req.(*wire.ReverseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func streamTargetsHandler(srv any, stream grpc.ServerStream) error {
	in := new(wire.StreamRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TargetServiceServer).StreamTargets(in, &targetStream{stream})
}
