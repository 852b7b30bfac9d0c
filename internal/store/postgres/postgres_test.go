package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// pledgeRowColumns is the column list for scanPledge results.
var pledgeRowColumns = []string{
	"id", "amount", "day", "is_any", "name", "owner_handle", "client_id", "created_at",
}

func TestScanHelpers(t *testing.T) {
	if nullIntPtr(nil).Valid {
		t.Error("nullIntPtr(nil) should be invalid")
	}
	d := 3
	if n := nullIntPtr(&d); !n.Valid || n.Int64 != 3 {
		t.Errorf("nullIntPtr(3) = %v", n)
	}

	if nullStringPtr(nil).Valid {
		t.Error("nullStringPtr(nil) should be invalid")
	}
	empty := ""
	if ns := nullStringPtr(&empty); !ns.Valid {
		t.Error("nullStringPtr(&\"\") should be valid")
	}

	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %v", ns)
	}
}

func TestPutPledge_Day(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := newWithDB(db)
	s.now = func() time.Time { return now }

	day := 2
	name := "Sam"
	rec := &model.PledgeRecord{
		ID:          "day-2",
		Amount:      decimal.NewFromInt(2),
		Day:         &day,
		Name:        &name,
		OwnerHandle: "alice",
	}

	mock.ExpectExec("INSERT INTO pledges .+ ON CONFLICT \\(id\\) DO UPDATE SET").
		WithArgs("day-2", "2", int64(2), false, "Sam", "alice", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.PutPledge(context.Background(), rec); err != nil {
		t.Fatalf("PutPledge: %v", err)
	}
	if !rec.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, now)
	}
}

func TestPutPledge_AnyAmount(t *testing.T) {
	db, mock := newMockDB(t)
	s := newWithDB(db)

	rec := &model.PledgeRecord{
		ID:       "any-1",
		Amount:   decimal.RequireFromString("37.5"),
		IsAny:    true,
		ClientID: "anon-abc",
	}

	mock.ExpectExec("INSERT INTO pledges").
		WithArgs("any-1", "37.5", nil, true, nil, "", "anon-abc", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.PutPledge(context.Background(), rec); err != nil {
		t.Fatalf("PutPledge: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
}

func TestPutPledge_Error(t *testing.T) {
	db, mock := newMockDB(t)
	s := newWithDB(db)

	mock.ExpectExec("INSERT INTO pledges").WillReturnError(errors.New("connection refused"))

	rec := &model.PledgeRecord{ID: "day-1", Amount: decimal.NewFromInt(1)}
	if err := s.PutPledge(context.Background(), rec); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetPledge(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM pledges WHERE id = \\$1").WithArgs("day-5").
		WillReturnRows(sqlmock.NewRows(pledgeRowColumns).
			AddRow("day-5", "5", int64(5), false, "Ann", "alice", "anon-1", now))

	p, err := queryGetPledge(context.Background(), db, "day-5")
	if err != nil {
		t.Fatalf("queryGetPledge: %v", err)
	}
	if p.ID != "day-5" || !p.Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("got %+v", p)
	}
	if p.Day == nil || *p.Day != 5 {
		t.Errorf("Day = %v, want 5", p.Day)
	}
	if p.PledgerName() != "Ann" {
		t.Errorf("Name = %q, want Ann", p.PledgerName())
	}
	if p.ClientID != "anon-1" {
		t.Errorf("ClientID = %q", p.ClientID)
	}
}

func TestGetPledge_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT .+ FROM pledges WHERE id = \\$1").WithArgs("day-9").
		WillReturnError(sql.ErrNoRows)

	if _, err := queryGetPledge(context.Background(), db, "day-9"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestListPledges(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM pledges ORDER BY id").
		WillReturnRows(sqlmock.NewRows(pledgeRowColumns).
			AddRow("any-1", "12.25", nil, true, nil, "alice", nil, now).
			AddRow("day-1", "1", int64(1), false, nil, "alice", nil, now))

	pledges, err := queryListPledges(context.Background(), db)
	if err != nil {
		t.Fatalf("queryListPledges: %v", err)
	}
	if len(pledges) != 2 {
		t.Fatalf("expected 2 pledges, got %d", len(pledges))
	}
	if !pledges[0].IsAny || pledges[0].Day != nil || pledges[0].Name != nil {
		t.Errorf("any pledge = %+v", pledges[0])
	}
	if pledges[0].Amount.String() != "12.25" {
		t.Errorf("amount = %s, want 12.25", pledges[0].Amount)
	}
	if pledges[1].Day == nil || *pledges[1].Day != 1 {
		t.Errorf("day pledge = %+v", pledges[1])
	}
}

func TestListPledges_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM pledges").WillReturnError(errors.New("boom"))

	if _, err := queryListPledges(context.Background(), db); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenRegistersScheme(t *testing.T) {
	if _, err := store.Open("nosuch://x"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
}
