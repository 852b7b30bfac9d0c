// Package tui is the terminal rendition of the giving calendar.
//
// The model browses the board's cells, runs the pledge dialog through a
// selection.Controller and hands confirmed pledges to the board. Payment
// links are opened through an injected opener so the terminal never needs
// to know how a browser or payment app is launched.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alfredjeanlab/givecal/internal/board"
	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/selection"
	"github.com/alfredjeanlab/givecal/internal/share"
)

// Options configures a Model.
type Options struct {
	Fundraiser *config.Fundraiser
	Board      *board.Board

	// ShareURL is the public calendar link used by share and copy-link.
	ShareURL string

	// Client picks which payment link is opened first. Mobile opens the
	// payment app and falls back to the profile page after FallbackDelay.
	Client        paylink.Client
	FallbackDelay time.Duration

	// Open launches a link. Nil leaves links on screen only.
	Open      func(url string) error
	Clipboard share.Clipboard
}

type focusField int

const (
	focusAmount focusField = iota
	focusName
)

// Messages produced by commands and background callbacks.
type (
	cellChangedMsg struct{ cell model.Cell }
	confirmedMsg   struct {
		intent selection.Intent
		err    error
	}
	openedMsg struct {
		url string
		err error
	}
	fallbackMsg struct{ url string }
)

// Model is the bubbletea model for the calendar.
type Model struct {
	ctx      context.Context
	opts     Options
	board    *board.Board
	composer *paylink.Composer
	ctrl     *selection.Controller

	row, col int

	inputs [2]textinput.Model
	focus  focusField

	status   string
	errMsg   string
	lastNote string
	lastLink string
	fallback *paylink.Task
	send     func(tea.Msg)

	width int
}

// New returns a model over opts.Board. Pledged cells can only be reopened
// when the board is local-only.
func New(ctx context.Context, opts Options) *Model {
	if opts.Fundraiser == nil {
		opts.Fundraiser = config.DefaultFundraiser()
	}
	if opts.FallbackDelay <= 0 {
		opts.FallbackDelay = paylink.DefaultFallbackDelay
	}
	composer := paylink.New(opts.Fundraiser.VenmoUsername, opts.Fundraiser.NotePrefix)

	amount := textinput.New()
	amount.Prompt = "Amount $ "
	amount.Placeholder = "e.g. 10"
	amount.CharLimit = 12

	name := textinput.New()
	name.Prompt = "Name     "
	name.Placeholder = "optional"
	name.CharLimit = 60

	return &Model{
		ctx:      ctx,
		opts:     opts,
		board:    opts.Board,
		composer: composer,
		ctrl:     selection.New(composer, !opts.Board.Mode().IsSynced()),
		inputs:   [2]textinput.Model{amount, name},
		send:     func(tea.Msg) {},
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case cellChangedMsg:
		// Rows are read from the board on every render.
		if cell, ok := m.ctrl.Active(); ok && cell.ID == msg.cell.ID && msg.cell.Status.IsPledged() && m.board.Mode().IsSynced() {
			m.ctrl.Cancel()
			m.blurInputs()
			m.errMsg = "Someone just pledged that cell."
		}
		return m, nil

	case confirmedMsg:
		return m, m.handleConfirmed(msg)

	case openedMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Could not open %s: %v", msg.url, msg.err)
		}
		return m, nil

	case fallbackMsg:
		m.fallback = nil
		m.status = "Payment app did not open, showing the profile page."
		return m, m.openCmd(msg.url)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.fallback != nil && m.fallback.Cancel() {
			m.fallback = nil
			m.status = "Payment app opened."
		}
		if m.ctrl.State() == selection.Selecting {
			return m, m.updateDialog(msg)
		}
		return m, m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	rows := m.board.Rows()
	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(rows)-1 {
			m.row++
		}
	case "left", "h":
		if m.col > 0 {
			m.col--
		}
	case "right", "l":
		m.col++
	case "enter", " ":
		cell, ok := m.current(rows)
		if !ok {
			return nil
		}
		return m.openDialog(cell)
	case "s":
		m.shareCalendar()
	case "c":
		m.copyLink()
	}
	m.clampCursor(rows)
	return nil
}

func (m *Model) updateDialog(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.ctrl.Cancel()
		m.blurInputs()
		m.errMsg = ""
		return nil
	case "tab", "shift+tab", "up", "down":
		m.focus = 1 - m.focus
		return m.focusInput()
	case "enter":
		in, err := m.ctrl.Confirm()
		if err != nil {
			m.errMsg = capitalize(err.Error())
			return nil
		}
		m.blurInputs()
		m.errMsg = ""
		m.status = "Recording pledge…"
		return m.confirmCmd(in)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.ctrl.SetAmount(m.inputs[focusAmount].Value())
	m.ctrl.SetName(m.inputs[focusName].Value())
	if m.focus == focusAmount {
		m.errMsg = ""
	}
	return cmd
}

func (m *Model) openDialog(cell model.Cell) tea.Cmd {
	if err := m.ctrl.Open(cell); err != nil {
		if errors.Is(err, selection.ErrCellTaken) {
			m.errMsg = "That cell is already taken. Pick another one."
		} else {
			m.errMsg = capitalize(err.Error())
		}
		return nil
	}
	m.errMsg = ""
	m.status = ""
	m.inputs[focusAmount].SetValue(m.ctrl.Amount())
	m.inputs[focusName].SetValue("")
	m.focus = focusAmount
	return m.focusInput()
}

func (m *Model) focusInput() tea.Cmd {
	m.inputs[1-m.focus].Blur()
	return m.inputs[m.focus].Focus()
}

func (m *Model) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *Model) confirmCmd(in selection.Intent) tea.Cmd {
	return func() tea.Msg {
		_, err := m.board.Confirm(m.ctx, in)
		return confirmedMsg{intent: in, err: err}
	}
}

// handleConfirmed continues to payment. A pledge the store rejected is
// reported but does not stop the payment.
func (m *Model) handleConfirmed(msg confirmedMsg) tea.Cmd {
	switch {
	case errors.Is(msg.err, board.ErrNotRecorded):
		m.errMsg = "Your pledge could not be saved, but you can still give."
	case msg.err != nil:
		m.errMsg = capitalize(msg.err.Error())
		m.status = ""
		return nil
	}

	links := msg.intent.Links
	m.lastNote = links.Note
	m.lastLink = links.Primary(m.opts.Client)
	m.status = fmt.Sprintf("Thank you! Pledged %s for %s.", paylink.FormatUSD(msg.intent.Amount), cellName(msg.intent.Cell))

	if m.opts.Client == paylink.Mobile {
		profile := links.Profile
		m.fallback = paylink.ScheduleFallback(m.ctx, m.opts.FallbackDelay, func() {
			m.send(fallbackMsg{url: profile})
		})
	}
	return m.openCmd(m.lastLink)
}

func (m *Model) openCmd(url string) tea.Cmd {
	if m.opts.Open == nil {
		return nil
	}
	open := m.opts.Open
	return func() tea.Msg {
		return openedMsg{url: url, err: open(url)}
	}
}

func (m *Model) shareCalendar() {
	if m.opts.ShareURL == "" {
		m.errMsg = "No share link configured."
		return
	}
	f := m.opts.Fundraiser
	msg, err := share.Share(m.ctx, share.Payload{Title: f.Title, Text: f.ShareText, URL: m.opts.ShareURL}, nil, m.opts.Clipboard)
	if err != nil {
		m.errMsg = "Copy this link: " + m.opts.ShareURL
		return
	}
	m.errMsg = ""
	m.status = msg
}

func (m *Model) copyLink() {
	if m.opts.ShareURL == "" {
		m.errMsg = "No share link configured."
		return
	}
	msg, err := share.CopyLink(m.opts.ShareURL, m.opts.Clipboard)
	if err != nil {
		m.errMsg = "Copy this link: " + m.opts.ShareURL
		return
	}
	m.errMsg = ""
	m.status = msg
}

func (m *Model) current(rows [][]model.Cell) (model.Cell, bool) {
	if m.row >= len(rows) || m.col >= len(rows[m.row]) {
		return model.Cell{}, false
	}
	return rows[m.row][m.col], true
}

func (m *Model) clampCursor(rows [][]model.Cell) {
	if len(rows) == 0 {
		m.row, m.col = 0, 0
		return
	}
	m.row = min(m.row, len(rows)-1)
	if n := len(rows[m.row]); m.col >= n {
		m.col = max(n-1, 0)
	}
}

func cellName(c model.Cell) string {
	if c.IsAny() {
		return "an any-amount box"
	}
	return fmt.Sprintf("day %d", c.Day)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
