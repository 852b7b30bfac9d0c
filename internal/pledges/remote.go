// Package pledges is the server-side pledge store: persistence plus the live
// feed that tells every viewer about new pledges.
package pledges

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/givecal/internal/events"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/store"
)

// Remote implements board.Store over a store.Store and the event bus.
type Remote struct {
	store  store.Store
	pub    events.Publisher
	sub    events.Subscriber
	logger *slog.Logger
	locks  idLocks
}

// New returns a Remote. sub may be nil, in which case Subscribe only replays
// the stored snapshot.
func New(s store.Store, pub events.Publisher, sub events.Subscriber, logger *slog.Logger) *Remote {
	if pub == nil {
		pub = events.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{store: s, pub: pub, sub: sub, logger: logger, locks: idLocks{held: make(map[string]*idLock)}}
}

// Record validates and upserts rec under id, then announces it on the feed.
// A publish failure is logged; the write itself has already succeeded.
//
// Writes to the same id are serialised from the store write through the
// publish, so the feed announces them in the order the store applied them.
func (r *Remote) Record(ctx context.Context, id string, rec model.PledgeRecord) (*model.PledgeRecord, error) {
	if rec.ID == "" {
		rec.ID = id
	}
	if rec.ID != id {
		return nil, &model.ValidationError{Errors: []model.FieldError{
			{Field: "id", Message: fmt.Sprintf("must match path id %q", id)},
		}}
	}
	if err := model.ValidateRecord(&rec); err != nil {
		return nil, err
	}
	unlock := r.locks.lock(id)
	defer unlock()
	if err := r.store.PutPledge(ctx, &rec); err != nil {
		return nil, fmt.Errorf("storing pledge %s: %w", id, err)
	}
	if err := r.pub.Publish(ctx, events.TopicPledgePut, events.PledgePut{Pledge: &rec}); err != nil {
		r.logger.Warn("failed to publish pledge", "id", id, "error", err)
	}
	return &rec, nil
}

// Put implements board.Store.
func (r *Remote) Put(ctx context.Context, id string, rec model.PledgeRecord) (*model.PledgeRecord, error) {
	return r.Record(ctx, id, rec)
}

// Get returns the record for id, or store.ErrNotFound.
func (r *Remote) Get(ctx context.Context, id string) (*model.PledgeRecord, error) {
	return r.store.GetPledge(ctx, id)
}

// List returns all records ordered by id.
func (r *Remote) List(ctx context.Context) ([]*model.PledgeRecord, error) {
	return r.store.ListPledges(ctx)
}

// Subscribe implements board.Store. It first delivers every stored record,
// then each record announced on the feed, until ctx is done. The feed
// subscription is opened before the snapshot is read so no write between
// the two is missed; such a write may be delivered twice.
func (r *Remote) Subscribe(ctx context.Context, fn func(id string, rec model.PledgeRecord)) error {
	var (
		ch     <-chan []byte
		cancel = func() {}
	)
	if r.sub != nil {
		var err error
		ch, cancel, err = r.sub.Subscribe(events.TopicPledgePut)
		if err != nil {
			return fmt.Errorf("subscribing to pledge feed: %w", err)
		}
	}
	defer cancel()

	snapshot, err := r.store.ListPledges(ctx)
	if err != nil {
		return fmt.Errorf("loading pledges: %w", err)
	}
	for _, rec := range snapshot {
		fn(rec.ID, *rec)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return errors.New("pledge feed closed")
			}
			rec, err := events.DecodePledgePut(data)
			if err != nil {
				r.logger.Warn("skipping malformed pledge event", "error", err)
				continue
			}
			fn(rec.ID, *rec)
		}
	}
}

// idLocks hands out one mutex per pledge id, dropping each once no writer
// holds or waits on it.
type idLocks struct {
	mu   sync.Mutex
	held map[string]*idLock
}

type idLock struct {
	sync.Mutex
	refs int
}

func (l *idLocks) lock(id string) func() {
	l.mu.Lock()
	m, ok := l.held[id]
	if !ok {
		m = &idLock{}
		l.held[id] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}

// Close closes the publisher, the subscriber and the underlying store.
func (r *Remote) Close() error {
	var errs []error
	errs = append(errs, r.pub.Close())
	if r.sub != nil {
		errs = append(errs, r.sub.Close())
	}
	errs = append(errs, r.store.Close())
	return errors.Join(errs...)
}
