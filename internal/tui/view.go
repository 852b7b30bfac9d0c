package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/selection"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("74"))
	cellStyle    = lipgloss.NewStyle().Width(10).Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	cursorStyle  = cellStyle.BorderForeground(lipgloss.Color("212")).Bold(true)
	pledgedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	anyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dialogStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("212")).Padding(0, 1)
)

const (
	browseHelp = "←↑↓→ move · enter pick · s share · c copy link · q quit"
	dialogHelp = "tab switch field · enter confirm · esc cancel"
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	f := m.opts.Fundraiser
	b.WriteString(titleStyle.Render(f.Title))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  (%s)", m.board.Mode())))
	b.WriteString("\n")

	rows := m.board.Rows()
	for i, row := range rows {
		cells := make([]string, len(row))
		for j := range row {
			cells[j] = m.renderCell(&row[j], i == m.row && j == m.col)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	n, total := m.board.Totals()
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d pledged · %s", n, paylink.FormatUSD(total))))
	b.WriteString("\n\n")

	if m.ctrl.State() == selection.Selecting {
		b.WriteString(m.renderDialog())
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	if m.lastLink != "" {
		b.WriteString(mutedStyle.Render("Note: " + m.lastNote))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Pay:  " + m.lastLink))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	help := browseHelp
	if m.ctrl.State() == selection.Selecting {
		help = dialogHelp
	}
	b.WriteString(mutedStyle.Render(help))
	return b.String()
}

func (m *Model) renderCell(c *model.Cell, selected bool) string {
	var label, amount string
	switch {
	case c.IsAny():
		label = anyStyle.Render("any")
	default:
		label = c.Label()
	}
	if c.Status.IsPledged() {
		amount = pledgedStyle.Render("✓ " + paylink.FormatUSD(c.Status.Amount))
	} else if c.IsAny() {
		amount = anyStyle.Render("$ ?")
	} else {
		amount = fmt.Sprintf("$%d", c.Day)
	}

	style := cellStyle
	if selected {
		style = cursorStyle
	}
	return style.Render(label + "\n" + amount)
}

func (m *Model) renderDialog() string {
	links := m.ctrl.Links()

	var b strings.Builder
	b.WriteString(m.ctrl.Subtitle())
	b.WriteString("\n\n")
	b.WriteString(m.inputs[focusAmount].View())
	b.WriteString("\n")
	b.WriteString(m.inputs[focusName].View())
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("Note: " + links.Note))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Link: " + links.Primary(m.opts.Client)))
	return dialogStyle.Render(b.String())
}
