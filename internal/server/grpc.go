package server

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/givecal/internal/events"
	"github.com/alfredjeanlab/givecal/internal/rpc"
)

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the PledgeService and reflection, and returns it ready to serve.
func NewGRPCServer(cs *CalendarServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor,
			StreamLoggingInterceptor,
		),
	)

	rpc.RegisterPledgeServiceServer(srv, &pledgeService{cs: cs})
	reflection.Register(srv)

	return srv
}

// pledgeService implements rpc.PledgeServiceServer.
type pledgeService struct {
	cs *CalendarServer
}

// Put upserts a pledge.
func (p *pledgeService) Put(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := rpc.IDField(req)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	rec, err := rpc.PledgeField(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid pledge: %v", err)
	}

	stored, err := p.cs.putPledge(ctx, id, *rec)
	switch {
	case errors.Is(err, errLocalOnly):
		return nil, status.Error(codes.Unavailable, err.Error())
	case isInputError(err):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, status.Errorf(codes.Internal, "failed to store pledge: %v", err)
	}
	return rpc.PledgeMessage(stored)
}

// List returns every current pledge.
func (p *pledgeService) List(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	recs, err := p.cs.records(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list pledges: %v", err)
	}
	return rpc.ListMessage(recs)
}

// Watch streams the current pledges, then every new one, until the client
// goes away.
func (p *pledgeService) Watch(_ *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	client := p.cs.sseHub.subscribe([]string{events.TopicPledgePut})
	defer p.cs.sseHub.unsubscribe(client)
	defer p.cs.viewers.Join(grpcViewer(ctx), "grpc")()

	recs, err := p.cs.records(ctx)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to list pledges: %v", err)
	}
	for _, rec := range recs {
		msg, err := rpc.PledgeMessage(rec)
		if err != nil {
			return status.Errorf(codes.Internal, "encoding pledge: %v", err)
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-client.ch:
			rec, err := events.DecodePledgePut(evt.Data)
			if err != nil {
				p.cs.logger.Warn("skipping undecodable pledge event", "error", err)
				continue
			}
			msg, err := rpc.PledgeMessage(rec)
			if err != nil {
				return status.Errorf(codes.Internal, "encoding pledge: %v", err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// grpcViewer identifies the viewer behind a Watch call, like httpViewer.
func grpcViewer(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(viewerHeader); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	if pr, ok := peer.FromContext(ctx); ok && pr.Addr != nil {
		if host, _, err := net.SplitHostPort(pr.Addr.String()); err == nil {
			return host
		}
		return pr.Addr.String()
	}
	return ""
}
