package rpc

import (
	"context"
	"errors"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
	"github.com/banshee-data/nextobject/internal/wire"
)

// ReverseRequester answers a reverse-target request synchronously.
// *dispatch.Dispatcher satisfies it.
type ReverseRequester interface {
	HandleReverseRequest() (dispatch.Target, error)
}

var _ TargetServiceServer = (*Server)(nil)

// Server implements TargetService on top of a dispatcher and a Hub.
type Server struct {
	requests ReverseRequester
	hub      *Hub
}

// NewServer creates a server. hub must also be registered as one of the
// dispatcher's publishers for streams to see targets.
func NewServer(requests ReverseRequester, hub *Hub) *Server {
	return &Server{requests: requests, hub: hub}
}

// RequestReverse runs a reverse selection and returns the chosen target.
func (s *Server) RequestReverse(ctx context.Context, _ *wire.ReverseRequest) (*wire.Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	t, err := s.requests.HandleReverseRequest()
	if err != nil {
		return nil, statusFromSelection(err)
	}
	return wire.FromTarget(t), nil
}

func statusFromSelection(err error) error {
	switch {
	case errors.Is(err, scan.ErrNoScanAvailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, selector.ErrEmptyPointSet):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// StreamTargets sends every published target matching req until the client
// goes away or the hub closes.
func (s *Server) StreamTargets(req *wire.StreamRequest, stream TargetStream) error {
	id, targets, done := s.hub.Subscribe(DirectionFilter(req.ForwardOnly, req.ReverseOnly))
	defer s.hub.Unsubscribe(id)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return status.Error(codes.Unavailable, "server shutting down")
		case t := <-targets:
			if err := stream.Send(wire.FromTarget(t)); err != nil {
				log.Printf("[gRPC] Send error on %s: %v", id, err)
				return err
			}
		}
	}
}

// NewGRPCServer builds a grpc.Server with TargetService registered.
func NewGRPCServer(svc *Server, opts ...grpc.ServerOption) *grpc.Server {
	gs := grpc.NewServer(opts...)
	RegisterTargetServiceServer(gs, svc)
	return gs
}

// Serve runs gs on lis until ctx is cancelled, then stops gracefully after
// closing hub so open streams end.
func Serve(ctx context.Context, gs *grpc.Server, lis net.Listener, hub *Hub) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[gRPC] TargetService listening on %s", lis.Addr())
		errCh <- gs.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		if hub != nil {
			hub.Close()
		}
		gs.GracefulStop()
		<-errCh
		log.Printf("[gRPC] server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
