// Package client talks to a givecal server over HTTP/JSON with an SSE feed,
// or over gRPC. Both transports satisfy board.Store, so a terminal calendar
// can run in synced mode against a remote server.
package client

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/givecal/internal/model"
)

// PledgeClient is what every CLI command uses to reach the server.
type PledgeClient interface {
	// Put upserts rec under id. The server validates and timestamps it and
	// the stored record is returned.
	Put(ctx context.Context, id string, rec model.PledgeRecord) (*model.PledgeRecord, error)

	// List returns every stored pledge ordered by id.
	List(ctx context.Context) ([]*model.PledgeRecord, error)

	// Subscribe delivers every current pledge and then each new one until
	// ctx is done.
	Subscribe(ctx context.Context, fn func(id string, rec model.PledgeRecord)) error

	Close() error
}

// Transport names accepted by New.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Options selects and configures a transport.
type Options struct {
	Transport string
	HTTPURL   string
	GRPCAddr  string
	Token     string

	// ClientID identifies this viewer on pledge feeds. Optional.
	ClientID string
}

// New returns the client for opts.Transport.
func New(opts Options) (PledgeClient, error) {
	switch opts.Transport {
	case TransportHTTP, "":
		c := NewHTTPClient(opts.HTTPURL, opts.Token)
		c.clientID = opts.ClientID
		return c, nil
	case TransportGRPC:
		c, err := NewGRPCClient(opts.GRPCAddr, opts.Token)
		if err != nil {
			return nil, err
		}
		c.clientID = opts.ClientID
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Transport)
	}
}
