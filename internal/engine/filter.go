package engine

import (
	"math"
	"sort"
	"time"

	"co2dash/internal/models"
)

// Subset is a FilteredSubset: an index list into its parent Table.
// Rows keep the table order, which is chronological for one country.
type Subset struct {
	table *Table
	rows  []int
	Spec  models.FilterSpec
}

// Filter returns the rows of country whose year lies in
// [spec.YearStart, spec.YearEnd]. An unknown country or an inverted range
// yields an empty subset. The table is not modified.
func Filter(t *Table, spec models.FilterSpec) Subset {
	sub := Subset{table: t, Spec: spec}
	if t == nil || spec.YearStart > spec.YearEnd {
		return sub
	}
	id, ok := t.byName[spec.Country]
	if !ok {
		return sub
	}

	// Years are sorted within a country span, so bound the range by search.
	sp := t.spans[id]
	years := t.Years[sp.start:sp.end]
	lo := sort.Search(len(years), func(i int) bool { return int(years[i]) >= spec.YearStart })
	hi := sort.Search(len(years), func(i int) bool { return int(years[i]) > spec.YearEnd })
	if lo >= hi {
		return sub
	}
	sub.rows = make([]int, 0, hi-lo)
	for i := sp.start + lo; i < sp.start+hi; i++ {
		sub.rows = append(sub.rows, i)
	}
	return sub
}

// Len returns the number of rows in the subset.
func (s Subset) Len() int { return len(s.rows) }

// Record materializes the i-th row of the subset.
func (s Subset) Record(i int) models.Record { return s.table.Row(s.rows[i]) }

// Records materializes every row of the subset.
func (s Subset) Records() []models.Record {
	out := make([]models.Record, len(s.rows))
	for i, r := range s.rows {
		out[i] = s.table.Row(r)
	}
	return out
}

// Page materializes rows [offset, offset+limit), clamped to the subset.
func (s Subset) Page(offset, limit int) []models.Record {
	if offset >= len(s.rows) || limit <= 0 {
		return []models.Record{}
	}
	end := offset + limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	out := make([]models.Record, 0, end-offset)
	for _, r := range s.rows[offset:end] {
		out = append(out, s.table.Row(r))
	}
	return out
}

// Series returns the (date, co2) pairs with a non-missing co2 value.
func (s Subset) Series() ([]time.Time, []float64) {
	ds := make([]time.Time, 0, len(s.rows))
	ys := make([]float64, 0, len(s.rows))
	for _, r := range s.rows {
		v := s.table.CO2[r]
		if math.IsNaN(v) {
			continue
		}
		ds = append(ds, s.table.Date(r))
		ys = append(ys, v)
	}
	return ds, ys
}
