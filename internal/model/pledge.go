package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PledgeRecord is the persisted record for one cell id. The datastore is
// keyed by ID; a second write to the same ID replaces the first.
type PledgeRecord struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Day         *int            `json:"day"`
	IsAny       bool            `json:"isAny"`
	Name        *string         `json:"name"`
	OwnerHandle string          `json:"venmo"`
	ClientID    string          `json:"client_id,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// MarshalJSON writes Amount as a JSON number.
func (r PledgeRecord) MarshalJSON() ([]byte, error) {
	type plain PledgeRecord
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain(r), JSONAmount(r.Amount)})
}

// NewPledgeRecord builds the record persisted when a pledge on cell is
// confirmed. CreatedAt is left zero; the store assigns it.
func NewPledgeRecord(cell *Cell, amount decimal.Decimal, name, ownerHandle, clientID string) PledgeRecord {
	rec := PledgeRecord{
		ID:          cell.ID,
		Amount:      amount,
		Day:         cell.DayPtr(),
		IsAny:       cell.IsAny(),
		OwnerHandle: ownerHandle,
		ClientID:    clientID,
	}
	if name != "" {
		rec.Name = &name
	}
	return rec
}

// PledgerName returns the pledger name or "" when none was given.
func (r PledgeRecord) PledgerName() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

// Status returns the cell status this record implies.
func (r PledgeRecord) Status() Status {
	return Pledged(r.Amount, r.PledgerName())
}
