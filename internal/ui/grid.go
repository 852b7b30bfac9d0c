package ui

import (
	"fmt"
	"strings"

	"github.com/alfredjeanlab/givecal/internal/model"
)

// cellWidth fits "31 $31" and "$ any" with room for a pledge marker.
const cellWidth = 9

// RenderGrid draws the calendar rows as a text grid. Open numbered cells
// show their day and amount, any-amount cells show "$ any", pledged cells
// show the pledged amount with a check mark.
func RenderGrid(rows [][]model.Cell) string {
	var b strings.Builder
	for _, row := range rows {
		parts := make([]string, len(row))
		for i := range row {
			parts[i] = renderCell(&row[i])
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderCell(c *model.Cell) string {
	var text string
	switch {
	case c.Status.IsPledged():
		text = "✓ $" + c.Status.Amount.String()
	case c.IsAny():
		text = "$ any"
	default:
		text = fmt.Sprintf("%d $%d", c.Day, c.Day)
	}
	text = pad(text, cellWidth)

	switch {
	case c.Status.IsPledged():
		return RenderPledged(text)
	case c.IsAny():
		return RenderAny(text)
	default:
		return text
	}
}

// pad right-pads s to width runes. Padding happens before coloring so
// escape codes do not skew the columns.
func pad(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
