package layout

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// emptyCell marks an unoccupied location in reports
const emptyCell = "."

// Report is the serializable form of a layout, one serial per cell
type Report struct {
	Collection string          `yaml:"collection" json:"collection"`
	Stats      ReportStats     `yaml:"stats" json:"stats"`
	Sections   []SectionReport `yaml:"sections" json:"sections"`
}

// ReportStats mirrors Stats without the per-section breakdown
type ReportStats struct {
	Total      int     `yaml:"total" json:"total"`
	Placed     int     `yaml:"placed" json:"placed"`
	Remaining  int     `yaml:"remaining" json:"remaining"`
	Completion float64 `yaml:"completion" json:"completion"`
}

// SectionReport is one section's grid, rows top to bottom
type SectionReport struct {
	Section string     `yaml:"section" json:"section"`
	Rows    int        `yaml:"rows" json:"rows"`
	Columns int        `yaml:"columns" json:"columns"`
	Grid    [][]string `yaml:"grid,flow" json:"grid"`
	RowOnly []string   `yaml:"row_only,omitempty" json:"row_only,omitempty"`
}

// NewReport flattens a layout and its stats
func NewReport(collection string, l *Layout, st *Stats) *Report {
	r := &Report{
		Collection: collection,
		Stats: ReportStats{
			Total:      st.Total,
			Placed:     st.Placed,
			Remaining:  st.Remaining,
			Completion: st.Completion,
		},
		Sections: make([]SectionReport, 0, len(l.Sections)),
	}

	for _, g := range l.Sections {
		sr := SectionReport{Section: g.Section, Rows: g.Rows, Columns: g.Columns}
		sr.Grid = make([][]string, g.Rows)
		for i, row := range g.Cells {
			cells := make([]string, len(row))
			for j, item := range row {
				cells[j] = emptyCell
				if item != nil {
					cells[j] = item.Serial
				}
			}
			sr.Grid[i] = cells
		}
		for _, item := range g.RowOnly {
			sr.RowOnly = append(sr.RowOnly, fmt.Sprintf("%s@%d", item.Serial, item.Placement.Row))
		}
		r.Sections = append(r.Sections, sr)
	}
	return r
}

// YAML renders the report as a YAML document
func (r *Report) YAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return data, nil
}

// WriteText prints the report as aligned text grids
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d/%d placed (%.1f%%)\n", r.Collection, r.Stats.Placed, r.Stats.Total, r.Stats.Completion)

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "\nSection %s (%dx%d)\n", s.Section, s.Rows, s.Columns)
		width := len(emptyCell)
		for _, row := range s.Grid {
			for _, cell := range row {
				width = max(width, len(cell))
			}
		}
		for i, row := range s.Grid {
			fmt.Fprintf(&b, "  %3d ", i+1)
			for _, cell := range row {
				fmt.Fprintf(&b, " %-*s", width, cell)
			}
			b.WriteString("\n")
		}
		if len(s.RowOnly) > 0 {
			fmt.Fprintf(&b, "  no column: %s\n", strings.Join(s.RowOnly, ", "))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
