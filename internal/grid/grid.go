// Package grid builds the giving calendar's cell set from a layout.
//
// Cell ids are the synchronization key between viewers: numbered cells use
// "day-<n>", any-amount cells use "any-<k>" where k counts counter-assigned
// any cells in row-major order. Reordering counter-assigned any cells between
// deployments therefore re-targets previously pledged records; layouts that
// need stable identity should use explicit keys ("any:<key>").
package grid

import (
	"strconv"

	"github.com/alfredjeanlab/givecal/internal/model"
)

// Grid owns the cells of one calendar instance for its whole lifetime.
type Grid struct {
	rows  [][]*model.Cell
	cells []*model.Cell
	index map[string]*model.Cell
}

// Build constructs the cells for layout in row-major order. Malformed layouts
// are a configuration precondition and are not validated. A repeated id keeps
// the first cell in the index; the later duplicate is still rendered but
// Lookup never returns it, so it stays open and never receives updates.
func Build(layout model.Layout) *Grid {
	g := &Grid{
		rows:  make([][]*model.Cell, 0, len(layout)),
		cells: make([]*model.Cell, 0, layout.Count()),
		index: make(map[string]*model.Cell, layout.Count()),
	}

	anyCounter := 0
	for _, row := range layout {
		cells := make([]*model.Cell, 0, len(row))
		for _, spec := range row {
			c := &model.Cell{Status: model.Open()}
			switch {
			case !spec.Any:
				c.Kind = model.KindNumbered
				c.Day = spec.Day
				c.ID = model.DayID(spec.Day)
			case spec.Key != "":
				c.Kind = model.KindAny
				c.ID = model.AnyID(spec.Key)
			default:
				anyCounter++
				c.Kind = model.KindAny
				c.ID = model.AnyID(strconv.Itoa(anyCounter))
			}
			cells = append(cells, c)
			g.cells = append(g.cells, c)
			if _, dup := g.index[c.ID]; !dup {
				g.index[c.ID] = c
			}
		}
		g.rows = append(g.rows, cells)
	}
	return g
}

// Rows returns the cells grouped by layout row.
func (g *Grid) Rows() [][]*model.Cell {
	return g.rows
}

// Cells returns all cells in row-major order.
func (g *Grid) Cells() []*model.Cell {
	return g.cells
}

// Lookup returns the cell with the given id.
func (g *Grid) Lookup(id string) (*model.Cell, bool) {
	c, ok := g.index[id]
	return c, ok
}

// Index returns the id to cell index. Callers may mutate cell status through
// it but must not add or remove entries.
func (g *Grid) Index() map[string]*model.Cell {
	return g.index
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// Snapshot returns copies of all cells, safe to hand to renderers.
func (g *Grid) Snapshot() []model.Cell {
	out := make([]model.Cell, len(g.cells))
	for i, c := range g.cells {
		out[i] = *c
	}
	return out
}
