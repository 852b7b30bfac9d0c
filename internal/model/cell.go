package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// JSONAmount renders d as a JSON number. decimal.Decimal marshals as a quoted
// string by default; records and statuses carry amounts as numbers. Decoding
// accepts either form.
func JSONAmount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// CellKind distinguishes numbered day cells from "any amount" boxes.
type CellKind string

const (
	KindNumbered CellKind = "numbered"
	KindAny      CellKind = "any"
)

// String returns the string representation of the kind.
func (k CellKind) String() string {
	return string(k)
}

// IsValid checks whether the kind is a known value.
func (k CellKind) IsValid() bool {
	switch k {
	case KindNumbered, KindAny:
		return true
	}
	return false
}

// PledgeState is the coarse pledge status of a cell.
type PledgeState string

const (
	StateOpen    PledgeState = "open"
	StatePledged PledgeState = "pledged"
)

// String returns the string representation of the state.
func (s PledgeState) String() string {
	return string(s)
}

// Status is a cell's pledge status: Open, or Pledged with an amount and an
// optional pledger name.
type Status struct {
	State  PledgeState     `json:"state"`
	Amount decimal.Decimal `json:"amount,omitempty"`
	Name   string          `json:"name,omitempty"`
}

// MarshalJSON writes Amount as a JSON number.
func (s Status) MarshalJSON() ([]byte, error) {
	type plain Status
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount,omitempty"`
	}{plain(s), JSONAmount(s.Amount)})
}

// Open returns the open status.
func Open() Status {
	return Status{State: StateOpen}
}

// Pledged returns a pledged status carrying amount and name.
func Pledged(amount decimal.Decimal, name string) Status {
	return Status{State: StatePledged, Amount: amount, Name: name}
}

// IsPledged reports whether the status is Pledged.
func (s Status) IsPledged() bool {
	return s.State == StatePledged
}

// Equal reports whether two statuses describe the same pledge state.
// Amounts compare numerically, so 2 and 2.00 are equal.
func (s Status) Equal(o Status) bool {
	if s.State != o.State {
		return false
	}
	if s.State == StateOpen {
		return true
	}
	return s.Amount.Equal(o.Amount) && s.Name == o.Name
}

// Cell is one selectable unit of the giving calendar.
type Cell struct {
	ID     string   `json:"id"`
	Kind   CellKind `json:"kind"`
	Day    int      `json:"day,omitempty"`
	Status Status   `json:"status"`
}

// DayID returns the id of the numbered cell for day n.
func DayID(n int) string {
	return fmt.Sprintf("day-%d", n)
}

// AnyID returns the id of an any-amount cell for the given key. Keys are
// either a 1-based traversal counter or an explicit key from the layout.
func AnyID(key string) string {
	return "any-" + key
}

// IsAny reports whether the cell is an any-amount box.
func (c *Cell) IsAny() bool {
	return c.Kind == KindAny
}

// Nominal returns the cell's nominal amount. Numbered cells are worth their
// day number in dollars; any-amount cells have no nominal amount.
func (c *Cell) Nominal() (decimal.Decimal, bool) {
	if c.Kind != KindNumbered {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromInt(int64(c.Day)), true
}

// DayPtr returns a pointer to the day number, or nil for any-amount cells.
func (c *Cell) DayPtr() *int {
	if c.Kind != KindNumbered {
		return nil
	}
	d := c.Day
	return &d
}

// Label is the text shown in the cell's label slot ("" for any cells).
func (c *Cell) Label() string {
	if c.Kind == KindAny {
		return ""
	}
	return fmt.Sprintf("%d", c.Day)
}

// AmountText is the text shown in the cell's amount slot.
func (c *Cell) AmountText() string {
	if c.Status.IsPledged() {
		return "$" + c.Status.Amount.String()
	}
	if c.Kind == KindAny {
		return "$ — any amount"
	}
	return fmt.Sprintf("$%d", c.Day)
}

// AriaLabel is the accessible description of the cell.
func (c *Cell) AriaLabel() string {
	if c.Kind == KindAny {
		return "Select an any-amount box"
	}
	return fmt.Sprintf("Select day %d to donate $%d", c.Day, c.Day)
}
