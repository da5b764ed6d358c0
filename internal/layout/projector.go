// Package layout derives read-only grid views of a collection from its items.
// Nothing here is stored; callers project again after every change.
package layout

import (
	"github.com/lehigh-university-libraries/shelver/internal/models"
)

// Grid is the dense row/column view of one section.
// Cells[r][c] holds the item placed at row r+1, column c+1, or nil.
type Grid struct {
	Section string           `json:"section" yaml:"section"`
	Rows    int              `json:"rows" yaml:"rows"`
	Columns int              `json:"columns" yaml:"columns"`
	Cells   [][]*models.Item `json:"cells" yaml:"-"`
	// RowOnly lists items placed in this section without a column
	RowOnly []*models.Item `json:"row_only,omitempty" yaml:"-"`
	Placed  int            `json:"placed" yaml:"placed"`
	Total   int            `json:"total" yaml:"total"`
}

// At returns the item at the 1-based row and column, or nil
func (g *Grid) At(row, column int) *models.Item {
	if row < 1 || column < 1 || row > g.Rows || column > g.Columns {
		return nil
	}
	return g.Cells[row-1][column-1]
}

// Layout is the per-section projection of a collection, sections in natural order
type Layout struct {
	Sections []*Grid `json:"sections"`
}

// Section returns the grid for a section label, or nil
func (l *Layout) Section(name string) *Grid {
	for _, g := range l.Sections {
		if g.Section == name {
			return g
		}
	}
	return nil
}

// Labels returns the section labels in display order
func (l *Layout) Labels() []string {
	out := make([]string, len(l.Sections))
	for i, g := range l.Sections {
		out[i] = g.Section
	}
	return out
}

// Project groups items by section and lays each section out on a grid sized to
// the largest row and column seen in it. Items without a section are skipped.
func Project(items []models.Item) *Layout {
	bySection := make(map[string][]*models.Item)
	var labels []string
	for i := range items {
		item := &items[i]
		if item.Placement == nil || item.Placement.Section == "" {
			continue
		}
		s := item.Placement.Section
		if _, ok := bySection[s]; !ok {
			labels = append(labels, s)
		}
		bySection[s] = append(bySection[s], item)
	}
	SortNatural(labels)

	out := &Layout{Sections: make([]*Grid, 0, len(labels))}
	for _, label := range labels {
		out.Sections = append(out.Sections, buildGrid(label, bySection[label]))
	}
	return out
}

func buildGrid(section string, items []*models.Item) *Grid {
	g := &Grid{Section: section, Total: len(items)}
	for _, it := range items {
		if !inBounds(it.Placement) {
			if it.Placed() {
				g.Placed++
			}
			continue
		}
		if it.Placement.Row > g.Rows {
			g.Rows = it.Placement.Row
		}
		if c := it.Placement.Column; c != nil && *c > g.Columns {
			g.Columns = *c
		}
		if it.Placed() {
			g.Placed++
		}
	}

	g.Cells = make([][]*models.Item, g.Rows)
	for r := range g.Cells {
		g.Cells[r] = make([]*models.Item, g.Columns)
	}
	for _, it := range items {
		p := it.Placement
		if !inBounds(p) || p.Column == nil || *p.Column < 1 {
			g.RowOnly = append(g.RowOnly, it)
			continue
		}
		cell := &g.Cells[p.Row-1][*p.Column-1]
		// first placed item keeps the cell; the store never lets two in
		if *cell == nil || (!(*cell).Placed() && it.Placed()) {
			*cell = it
		}
	}
	return g
}

// inBounds reports whether p fits on a grid. Rows written before the bounds
// existed are listed with the row-only items instead of sizing the grid.
func inBounds(p *models.Placement) bool {
	if p.Row < 1 || p.Row > models.MaxRow {
		return false
	}
	return p.Column == nil || *p.Column <= models.MaxColumn
}
