package postgres

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/alfredjeanlab/givecal/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanPledge scans a single row into a model.PledgeRecord.
// The row must contain columns in the order defined by pledgeColumns.
func scanPledge(row scannable) (*model.PledgeRecord, error) {
	var p model.PledgeRecord
	var (
		amount   decimal.Decimal
		day      sql.NullInt64
		name     sql.NullString
		clientID sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&amount,
		&day,
		&p.IsAny,
		&name,
		&p.OwnerHandle,
		&clientID,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Amount = amount
	p.ClientID = clientID.String
	if day.Valid {
		d := int(day.Int64)
		p.Day = &d
	}
	if name.Valid {
		n := name.String
		p.Name = &n
	}
	return &p, nil
}

// scanPledges scans multiple rows into a slice of model.PledgeRecord pointers.
func scanPledges(rows *sql.Rows) ([]*model.PledgeRecord, error) {
	var pledges []*model.PledgeRecord
	for rows.Next() {
		p, err := scanPledge(rows)
		if err != nil {
			return nil, err
		}
		pledges = append(pledges, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pledges, nil
}

// nullIntPtr converts a *int to a sql.NullInt64.
func nullIntPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// nullStringPtr converts a *string to a sql.NullString.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
