package sync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/store"
)

// mockStore is a minimal in-memory store for sync tests.
type mockStore struct {
	mu      sync.Mutex
	pledges map[string]*model.PledgeRecord
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{pledges: make(map[string]*model.PledgeRecord)}
}

func (m *mockStore) PutPledge(_ context.Context, rec *model.PledgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.CreatedAt = time.Now().UTC()
	cp := *rec
	m.pledges[rec.ID] = &cp
	return nil
}

func (m *mockStore) GetPledge(_ context.Context, id string) (*model.PledgeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.pledges[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ListPledges returns records in map order so ExportJSONL's sort is exercised.
func (m *mockStore) ListPledges(_ context.Context) ([]*model.PledgeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*model.PledgeRecord, 0, len(m.pledges))
	for _, rec := range m.pledges {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockStore) Close() error { return nil }

var errBoom = errors.New("boom")
