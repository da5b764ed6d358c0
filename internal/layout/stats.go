package layout

import (
	"github.com/lehigh-university-libraries/shelver/internal/models"
)

// Stats summarizes placement progress for a collection
type Stats struct {
	Total     int `json:"total" yaml:"total"`
	Placed    int `json:"placed" yaml:"placed"`
	Remaining int `json:"remaining" yaml:"remaining"`
	// Completion is the placed share in percent, 0 for an empty collection
	Completion float64        `json:"completion" yaml:"completion"`
	Sections   []SectionStats `json:"sections" yaml:"sections"`
}

// SectionStats holds the counts for one section
type SectionStats struct {
	Section string `json:"section" yaml:"section"`
	Placed  int    `json:"placed" yaml:"placed"`
	Rows    int    `json:"rows" yaml:"rows"`
	Columns int    `json:"columns" yaml:"columns"`
}

// Summarize aggregates placement counts over all items of a collection
func Summarize(items []models.Item) *Stats {
	st := &Stats{Total: len(items), Sections: []SectionStats{}}
	for i := range items {
		if items[i].Placed() {
			st.Placed++
		}
	}
	st.Remaining = st.Total - st.Placed
	if st.Total > 0 {
		st.Completion = float64(st.Placed) / float64(st.Total) * 100
	}

	for _, g := range Project(items).Sections {
		st.Sections = append(st.Sections, SectionStats{
			Section: g.Section,
			Placed:  g.Placed,
			Rows:    g.Rows,
			Columns: g.Columns,
		})
	}
	return st
}
