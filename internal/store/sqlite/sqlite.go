// Package sqlite implements store.Store on a single SQLite file, for
// deployments that run one server without a database service.
//
// Amounts and timestamps are stored as text so they round-trip exactly.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	store.Register("sqlite", func(path string) (store.Store, error) { return New(path) })
}

// Store implements store.Store using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New opens (creating if needed) the SQLite database at path and migrates it.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	drv, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutPledge(ctx context.Context, rec *model.PledgeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.CreatedAt = s.now().UTC()
	var day, name, clientID any
	if rec.Day != nil {
		day = *rec.Day
	}
	if rec.Name != nil {
		name = *rec.Name
	}
	if rec.ClientID != "" {
		clientID = rec.ClientID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pledges (id, amount, day, is_any, name, owner_handle, client_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			amount = excluded.amount,
			day = excluded.day,
			is_any = excluded.is_any,
			name = excluded.name,
			owner_handle = excluded.owner_handle,
			client_id = excluded.client_id,
			created_at = excluded.created_at`,
		rec.ID, rec.Amount.String(), day, rec.IsAny, name, rec.OwnerHandle, clientID,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert pledge %s: %w", rec.ID, err)
	}
	return nil
}

const selectPledges = `SELECT id, amount, day, is_any, name, owner_handle, client_id, created_at FROM pledges`

func (s *Store) GetPledge(ctx context.Context, id string) (*model.PledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scan(s.db.QueryRowContext(ctx, selectPledges+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

func (s *Store) ListPledges(ctx context.Context) ([]*model.PledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectPledges+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list pledges: %w", err)
	}
	defer rows.Close()

	var out []*model.PledgeRecord
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*model.PledgeRecord, error) {
	var (
		p         model.PledgeRecord
		amount    string
		day       sql.NullInt64
		name      sql.NullString
		clientID  sql.NullString
		createdAt string
	)
	if err := row.Scan(&p.ID, &amount, &day, &p.IsAny, &name, &p.OwnerHandle, &clientID, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("pledge %s: amount %q: %w", p.ID, amount, err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("pledge %s: created_at %q: %w", p.ID, createdAt, err)
	}
	if day.Valid {
		d := int(day.Int64)
		p.Day = &d
	}
	if name.Valid {
		n := name.String
		p.Name = &n
	}
	p.ClientID = clientID.String
	return &p, nil
}
