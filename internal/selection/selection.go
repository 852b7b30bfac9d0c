// Package selection implements the cell dialog: which cell is active and the
// amount and name being composed for it.
//
// A Controller is not safe for concurrent use; each UI session owns one.
package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
)

var (
	// ErrInvalidAmount is returned by Confirm when the amount is not a
	// positive number.
	ErrInvalidAmount = errors.New("please enter a valid amount first")

	// ErrCellTaken is returned by Open for a pledged cell while a shared
	// store is protecting pledges.
	ErrCellTaken = errors.New("this cell has already been pledged")

	// ErrNotSelecting is returned by Confirm when no cell is active.
	ErrNotSelecting = errors.New("no cell selected")
)

// State is the dialog state.
type State int

const (
	Idle State = iota
	Selecting
)

// String returns "idle" or "selecting".
func (s State) String() string {
	if s == Selecting {
		return "selecting"
	}
	return "idle"
}

// Intent is a confirmed pledge ready for the board and the payment redirect.
type Intent struct {
	Cell   model.Cell
	Amount decimal.Decimal
	Name   string
	Links  paylink.Links
}

// Controller tracks the single active selection.
type Controller struct {
	composer      *paylink.Composer
	allowRepledge bool

	state  State
	cell   model.Cell
	amount string
	name   string
}

// New returns an idle controller. allowRepledge permits reopening pledged
// cells; it is set in local-only mode where there is no shared state to
// protect.
func New(composer *paylink.Composer, allowRepledge bool) *Controller {
	return &Controller{composer: composer, allowRepledge: allowRepledge}
}

// State returns the current dialog state.
func (c *Controller) State() State {
	return c.state
}

// Active returns the selected cell.
func (c *Controller) Active() (model.Cell, bool) {
	return c.cell, c.state == Selecting
}

// Open selects cell, replacing any previous selection. The amount is seeded
// from the cell's nominal amount (blank for any-amount cells) and the name is
// cleared.
func (c *Controller) Open(cell model.Cell) error {
	if cell.Status.IsPledged() && !c.allowRepledge {
		return ErrCellTaken
	}
	c.state = Selecting
	c.cell = cell
	c.amount = ""
	if nominal, ok := cell.Nominal(); ok {
		c.amount = nominal.String()
	}
	c.name = ""
	return nil
}

// Amount returns the raw amount buffer.
func (c *Controller) Amount() string {
	return c.amount
}

// Name returns the raw name buffer.
func (c *Controller) Name() string {
	return c.name
}

// SetAmount replaces the amount buffer.
func (c *Controller) SetAmount(s string) {
	c.amount = s
}

// SetName replaces the name buffer.
func (c *Controller) SetName(s string) {
	c.name = s
}

// Draft returns the selection as currently typed. An unparseable amount
// drafts as zero so link previews keep updating while the visitor types.
func (c *Controller) Draft() paylink.Draft {
	amt, err := ParseAmount(c.amount)
	if err != nil {
		amt = decimal.Zero
	}
	return paylink.Draft{
		Amount: amt,
		Day:    c.cell.DayPtr(),
		Name:   strings.TrimSpace(c.name),
	}
}

// Links returns the payment links for the current draft.
func (c *Controller) Links() paylink.Links {
	return c.composer.Compose(c.Draft())
}

// Subtitle is the dialog prompt for the active cell.
func (c *Controller) Subtitle() string {
	if c.state != Selecting {
		return ""
	}
	if c.cell.IsAny() {
		return "You picked an “Any amount” box. Enter whatever you’d like to give 👇"
	}
	nominal, _ := c.cell.Nominal()
	return fmt.Sprintf("You picked day %d. That’s %s.", c.cell.Day, paylink.FormatUSD(nominal))
}

// Confirm accepts the selection when the amount is a positive number and
// returns to Idle. On an invalid amount nothing changes.
func (c *Controller) Confirm() (Intent, error) {
	if c.state != Selecting {
		return Intent{}, ErrNotSelecting
	}
	amt, err := ParseAmount(c.amount)
	if err != nil {
		return Intent{}, err
	}
	in := Intent{
		Cell:   c.cell,
		Amount: amt,
		Name:   strings.TrimSpace(c.name),
		Links:  c.Links(),
	}
	c.reset()
	return in, nil
}

// Cancel dismisses the dialog.
func (c *Controller) Cancel() {
	c.reset()
}

func (c *Controller) reset() {
	c.state = Idle
	c.cell = model.Cell{}
	c.amount = ""
	c.name = ""
}

// ParseAmount parses a user-entered amount. Only finite positive decimals
// are accepted; a leading "$" is tolerated.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	amt, err := decimal.NewFromString(s)
	if err != nil || !amt.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return amt, nil
}
