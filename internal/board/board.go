// Package board keeps the calendar's cell states in step with the shared
// pledge store.
//
// Two paths mutate cell status: local confirmations and store feed updates.
// Both go through Board, which serialises them with a single mutex. Observers
// registered with OnChange run outside the lock after each effective change.
//
// Records are ordered by their store-assigned CreatedAt. A record older than
// the last one applied for the same id is dropped, so a late feed delivery or
// a slow Put can never roll a cell back.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alfredjeanlab/givecal/internal/grid"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/selection"
)

var (
	// ErrNotRecorded is returned by Confirm when the store rejected the write.
	// It is not fatal: the visitor still proceeds to payment and the cell
	// stays open.
	ErrNotRecorded = errors.New("pledge not recorded")

	// ErrUnknownCell is returned by Confirm for an id the grid does not hold.
	ErrUnknownCell = errors.New("unknown cell")
)

// Store is a shared, keyed pledge datastore with a live change feed.
type Store interface {
	// Put upserts rec under id and returns the record as stored, with
	// CreatedAt assigned. Last write wins.
	Put(ctx context.Context, id string, rec model.PledgeRecord) (*model.PledgeRecord, error)

	// Subscribe delivers the current records and then every subsequent
	// upsert to fn until ctx is done or the feed ends. Delivery is
	// at-least-once and includes the subscriber's own writes.
	Subscribe(ctx context.Context, fn func(id string, rec model.PledgeRecord)) error
}

// Mode selects whether pledges are shared. It is fixed for a board's
// lifetime.
type Mode struct {
	store Store
}

// LocalOnly returns the mode in which pledges only mark cells in this
// process.
func LocalOnly() Mode {
	return Mode{}
}

// Synced returns the mode in which pledges are written to s and cell states
// follow its feed.
func Synced(s Store) Mode {
	return Mode{store: s}
}

// IsSynced reports whether the mode has a store.
func (m Mode) IsSynced() bool {
	return m.store != nil
}

// String returns "synced" or "local".
func (m Mode) String() string {
	if m.IsSynced() {
		return "synced"
	}
	return "local"
}

// Config carries the identity stamped on records this board writes.
type Config struct {
	OwnerHandle string
	ClientID    string
	Logger      *slog.Logger
}

// Board is the reconciled view of one calendar.
type Board struct {
	mu        sync.Mutex
	grid      *grid.Grid
	mode      Mode
	cfg       Config
	observers []func(model.Cell)
	versions  map[string]version
}

// version tracks the newest record applied for one id. gen counts applies so
// Confirm can tell whether the feed moved while its Put was in flight.
type version struct {
	at  time.Time
	gen uint64
}

// New returns a board over g. Cell statuses in g must only be changed through
// the returned Board from now on.
func New(g *grid.Grid, mode Mode, cfg Config) *Board {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Board{grid: g, mode: mode, cfg: cfg, versions: make(map[string]version)}
}

// Mode returns the board's mode.
func (b *Board) Mode() Mode {
	return b.mode
}

// OnChange registers fn to be called with the new cell value after every
// effective status change.
func (b *Board) OnChange(fn func(model.Cell)) {
	b.mu.Lock()
	b.observers = append(b.observers, fn)
	b.mu.Unlock()
}

// Confirm records a confirmed selection.
//
// In local-only mode the cell is marked pledged immediately and no store is
// touched. In synced mode the record is written first; on failure the cell
// stays open, the failure is logged and an error wrapping ErrNotRecorded is
// returned. On success the record the store returned is applied, unless a
// newer record for the same id reached the board while Put was in flight.
func (b *Board) Confirm(ctx context.Context, in selection.Intent) (model.Cell, error) {
	b.mu.Lock()
	c, ok := b.grid.Lookup(in.Cell.ID)
	var cell model.Cell
	if ok {
		cell = *c
	}
	gen := b.versions[in.Cell.ID].gen
	b.mu.Unlock()
	if !ok {
		return model.Cell{}, fmt.Errorf("%w: %s", ErrUnknownCell, in.Cell.ID)
	}

	if !b.mode.IsSynced() {
		updated, _ := b.set(cell.ID, model.Pledged(in.Amount, in.Name))
		return updated, nil
	}

	rec := model.NewPledgeRecord(&cell, in.Amount, in.Name, b.cfg.OwnerHandle, b.cfg.ClientID)
	stored, err := b.mode.store.Put(ctx, cell.ID, rec)
	if err != nil {
		b.cfg.Logger.Error("pledge not recorded", "cell", cell.ID, "error", err)
		return cell, fmt.Errorf("%w: %w", ErrNotRecorded, err)
	}
	if stored == nil {
		stored = &rec
	}

	b.mu.Lock()
	v := b.versions[cell.ID]
	var apply bool
	if v.gen == gen {
		apply = !stale(v, *stored)
	} else {
		// The feed applied something meanwhile; only a strictly newer
		// stored record may replace it.
		apply = stored.CreatedAt.After(v.at)
	}
	if !apply {
		c, _ := b.grid.Lookup(cell.ID)
		current := *c
		b.mu.Unlock()
		b.cfg.Logger.Debug("newer pledge already applied", "cell", cell.ID)
		return current, nil
	}
	updated, _, notify := b.applyLocked(cell.ID, *stored)
	b.mu.Unlock()
	notify()
	return updated, nil
}

// Apply forces the cell for id to the status implied by rec, unless rec is
// older than the last record applied for id. Unknown ids are ignored. It
// reports whether the cell changed.
func (b *Board) Apply(id string, rec model.PledgeRecord) bool {
	b.mu.Lock()
	if stale(b.versions[id], rec) {
		b.mu.Unlock()
		return false
	}
	_, changed, notify := b.applyLocked(id, rec)
	b.mu.Unlock()
	notify()
	return changed
}

// Stale reports whether Apply would drop rec because a newer record for id
// has already been applied.
func (b *Board) Stale(id string, rec model.PledgeRecord) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stale(b.versions[id], rec)
}

// Run feeds store updates into Apply until ctx is done. It returns
// immediately in local-only mode.
func (b *Board) Run(ctx context.Context) error {
	if !b.mode.IsSynced() {
		return nil
	}
	err := b.mode.store.Subscribe(ctx, func(id string, rec model.PledgeRecord) {
		b.Apply(id, rec)
	})
	if err != nil && ctx.Err() == nil {
		b.cfg.Logger.Warn("pledge feed ended", "error", err)
		return fmt.Errorf("subscribing to pledges: %w", err)
	}
	return nil
}

// stale reports whether rec is older than the newest record applied under v.
// Records without a CreatedAt carry no ordering and are never stale.
func stale(v version, rec model.PledgeRecord) bool {
	return !rec.CreatedAt.IsZero() && rec.CreatedAt.Before(v.at)
}

// applyLocked records rec as the newest version for id and updates the cell.
// The caller holds b.mu and must call the returned func after unlocking.
func (b *Board) applyLocked(id string, rec model.PledgeRecord) (model.Cell, bool, func()) {
	if _, ok := b.grid.Lookup(id); !ok {
		return model.Cell{}, false, func() {}
	}
	v := b.versions[id]
	v.gen++
	if rec.CreatedAt.After(v.at) {
		v.at = rec.CreatedAt
	}
	b.versions[id] = v
	return b.setLocked(id, rec.Status())
}

func (b *Board) set(id string, status model.Status) (model.Cell, bool) {
	b.mu.Lock()
	cell, changed, notify := b.setLocked(id, status)
	b.mu.Unlock()
	notify()
	return cell, changed
}

// setLocked updates the cell for id. The caller holds b.mu and must call the
// returned func, which runs the observers, after unlocking.
func (b *Board) setLocked(id string, status model.Status) (model.Cell, bool, func()) {
	c, ok := b.grid.Lookup(id)
	if !ok {
		return model.Cell{}, false, func() {}
	}
	if c.Status.Equal(status) {
		return *c, false, func() {}
	}
	c.Status = status
	cell := *c
	observers := append([]func(model.Cell){}, b.observers...)
	return cell, true, func() {
		for _, fn := range observers {
			fn(cell)
		}
	}
}

// Cell returns a copy of the cell with the given id.
func (b *Board) Cell(id string) (model.Cell, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.grid.Lookup(id)
	if !ok {
		return model.Cell{}, false
	}
	return *c, true
}

// Snapshot returns copies of all cells in row-major order.
func (b *Board) Snapshot() []model.Cell {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.grid.Snapshot()
}

// Rows returns copies of all cells grouped by layout row.
func (b *Board) Rows() [][]model.Cell {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := make([][]model.Cell, len(b.grid.Rows()))
	for i, row := range b.grid.Rows() {
		rows[i] = make([]model.Cell, len(row))
		for j, c := range row {
			rows[i][j] = *c
		}
	}
	return rows
}

// Totals returns the number of pledged cells and the sum of their amounts.
func (b *Board) Totals() (int, decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, sum := 0, decimal.Zero
	for _, c := range b.grid.Cells() {
		if c.Status.IsPledged() {
			n++
			sum = sum.Add(c.Status.Amount)
		}
	}
	return n, sum
}
