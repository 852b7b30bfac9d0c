package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/store"
)

// pledgeColumns is the column list used for SELECT statements on the pledges table.
const pledgeColumns = `id, amount, day, is_any, name, owner_handle, client_id, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryPutPledge(ctx context.Context, db executor, p *model.PledgeRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pledges (
			id, amount, day, is_any, name, owner_handle, client_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			day = EXCLUDED.day,
			is_any = EXCLUDED.is_any,
			name = EXCLUDED.name,
			owner_handle = EXCLUDED.owner_handle,
			client_id = EXCLUDED.client_id,
			created_at = EXCLUDED.created_at`,
		p.ID,
		p.Amount.String(),
		nullIntPtr(p.Day),
		p.IsAny,
		nullStringPtr(p.Name),
		p.OwnerHandle,
		nullString(p.ClientID),
		p.CreatedAt,
	)
	return err
}

func queryGetPledge(ctx context.Context, db executor, id string) (*model.PledgeRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+pledgeColumns+` FROM pledges WHERE id = $1`, id)
	p, err := scanPledge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func queryListPledges(ctx context.Context, db executor) ([]*model.PledgeRecord, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+pledgeColumns+` FROM pledges ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPledges(rows)
}
