// Package diskv implements store.Store as one JSON file per pledge in a
// directory, for small single-host deployments.
package diskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/store"
)

func init() {
	store.Register("file", func(dir string) (store.Store, error) { return New(dir) })
}

// Store keeps pledge records under BasePath, keyed by cell id.
type Store struct {
	d   *diskv.Diskv
	mu  sync.Mutex
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns a store rooted at dir, creating it on first write.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("diskv store needs a directory")
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
		now: time.Now,
	}, nil
}

// Close is a no-op; diskv holds no open handles.
func (s *Store) Close() error {
	return nil
}

func (s *Store) PutPledge(_ context.Context, rec *model.PledgeRecord) error {
	if err := validKey(rec.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.CreatedAt = s.now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.d.Write(rec.ID, data); err != nil {
		return fmt.Errorf("write pledge %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) GetPledge(_ context.Context, id string) (*model.PledgeRecord, error) {
	if err := validKey(id); err != nil {
		return nil, store.ErrNotFound
	}
	return s.read(id)
}

func (s *Store) ListPledges(ctx context.Context) ([]*model.PledgeRecord, error) {
	var all []*model.PledgeRecord
	for key := range s.d.Keys(ctx.Done()) {
		p, err := s.read(key)
		if err != nil {
			return nil, err
		}
		all = append(all, p)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (s *Store) read(key string) (*model.PledgeRecord, error) {
	val, err := s.d.Read(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p model.PledgeRecord
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("decode pledge %s: %w", key, err)
	}
	return &p, nil
}

// validKey rejects ids that would escape the base directory.
func validKey(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("invalid pledge id %q", id)
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r == 0 {
			return fmt.Errorf("invalid pledge id %q", id)
		}
	}
	return nil
}
