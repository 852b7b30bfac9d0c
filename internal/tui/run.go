package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alfredjeanlab/givecal/internal/model"
)

// Run shows the calendar until the user quits or ctx is done. In synced
// mode the board follows its store for as long as the program runs.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.send = p.Send

	opts.Board.OnChange(func(c model.Cell) {
		p.Send(cellChangedMsg{cell: c})
	})

	go func() {
		if err := opts.Board.Run(ctx); err != nil {
			slog.Warn("pledge feed stopped", "error", err)
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running calendar: %w", err)
	}
	return nil
}
