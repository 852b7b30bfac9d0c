package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/givecal/internal/model"
)

// ErrNotFound is returned when no pledge exists for an id.
var ErrNotFound = errors.New("pledge not found")

// Store defines the persistence interface for pledges. There is exactly one
// record per cell id.
type Store interface {
	// PutPledge upserts rec keyed by rec.ID and stamps rec.CreatedAt with the
	// write time. A second write to the same id replaces the first.
	PutPledge(ctx context.Context, rec *model.PledgeRecord) error
	GetPledge(ctx context.Context, id string) (*model.PledgeRecord, error)
	// ListPledges returns all records ordered by id.
	ListPledges(ctx context.Context) ([]*model.PledgeRecord, error)

	// Lifecycle
	Close() error
}

// Opener constructs a Store from the part of a database URL after the
// scheme separator.
type Opener func(dsn string) (Store, error)

var openers = map[string]Opener{}

// Register makes a backend available to Open under scheme. Backends register
// themselves from init.
func Register(scheme string, open Opener) {
	openers[scheme] = open
}

// Open picks a backend from the URL scheme: "postgres://…", "sqlite://path"
// or "file://dir". Postgres backends receive the full URL.
func Open(databaseURL string) (Store, error) {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return nil, fmt.Errorf("database url %q has no scheme", databaseURL)
	}
	open, ok := openers[scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
	if scheme == "postgres" || scheme == "postgresql" {
		rest = databaseURL
	}
	return open(rest)
}
