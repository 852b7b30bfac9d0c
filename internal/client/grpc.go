package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/rpc"
)

// GRPCClient implements PledgeClient using the gRPC transport.
type GRPCClient struct {
	conn     *grpc.ClientConn
	client   *rpc.PledgeServiceClient
	token    string
	clientID string
	logger   *slog.Logger
}

// NewGRPCClient connects to the given gRPC address and returns a client.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: rpc.NewPledgeServiceClient(conn),
		token:  token,
		logger: slog.Default(),
	}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) withAuth(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

// Put upserts rec under id and returns the stored record.
func (c *GRPCClient) Put(ctx context.Context, id string, rec model.PledgeRecord) (*model.PledgeRecord, error) {
	req, err := rpc.PutRequest(id, &rec)
	if err != nil {
		return nil, fmt.Errorf("encoding pledge: %w", err)
	}
	resp, err := c.client.Put(c.withAuth(ctx), req)
	if err != nil {
		return nil, err
	}
	return rpc.PledgeField(resp)
}

// List returns every pledge.
func (c *GRPCClient) List(ctx context.Context) ([]*model.PledgeRecord, error) {
	resp, err := c.client.List(c.withAuth(ctx), &structpb.Struct{})
	if err != nil {
		return nil, err
	}
	return rpc.PledgesField(resp)
}

// Subscribe follows Watch, reopening the stream with backoff when it drops.
// Every Watch starts with a full snapshot.
func (c *GRPCClient) Subscribe(ctx context.Context, fn func(id string, rec model.PledgeRecord)) error {
	delay := minReconnectDelay
	for {
		received, err := c.watch(ctx, fn)
		if ctx.Err() != nil {
			return nil
		}
		switch status.Code(err) {
		case codes.Unauthenticated, codes.PermissionDenied, codes.Unimplemented, codes.InvalidArgument:
			return err
		}
		if received {
			delay = minReconnectDelay
		}
		c.logger.Warn("pledge watch interrupted", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

func (c *GRPCClient) watch(ctx context.Context, fn func(id string, rec model.PledgeRecord)) (bool, error) {
	ctx = c.withAuth(ctx)
	if c.clientID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-givecal-client", c.clientID)
	}
	stream, err := c.client.Watch(ctx, &structpb.Struct{})
	if err != nil {
		return false, err
	}
	received := false
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return received, errors.New("pledge watch closed by server")
		}
		if err != nil {
			return received, err
		}
		received = true
		rec, err := rpc.PledgeField(msg)
		if err != nil {
			c.logger.Warn("skipping malformed pledge", "error", err)
			continue
		}
		fn(rec.ID, *rec)
	}
}
