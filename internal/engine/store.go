package engine

import (
	"math"
	"sort"
	"time"

	"co2dash/internal/models"
)

// Table holds the dataset in Struct-of-Arrays format.
// Missing measures are stored as NaN. Rows are grouped per country
// (first-appearance order) and sorted by year within each group.
// A Table is never mutated after the loader returns it.
type Table struct {
	// Data Columns (Flat Arrays)
	Years      []int32
	CO2        []float64
	Cement     []float64
	Coal       []float64
	Oil        []float64
	Gas        []float64
	GDP        []float64
	Population []float64

	// Dictionary Encoded IDs (0..N)
	CountryIDs []int32

	// Dictionary (ID -> String)
	CountryDict []string

	// Row range [start, end) of each country, indexed by ID
	spans   []span
	byName  map[string]int32
	minYear int
	maxYear int

	Stats models.LoadStats
}

type span struct{ start, end int }

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Years) }

// Countries returns the distinct country names, sorted.
func (t *Table) Countries() []string {
	out := make([]string, len(t.CountryDict))
	copy(out, t.CountryDict)
	sort.Strings(out)
	return out
}

// HasCountry reports whether the country exists in the table (exact match).
func (t *Table) HasCountry(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// YearBounds returns the smallest and largest year in the table.
func (t *Table) YearBounds() (int, int) { return t.minYear, t.maxYear }

// Row materializes row i as a Record.
func (t *Table) Row(i int) models.Record {
	return models.Record{
		Country:    t.CountryDict[t.CountryIDs[i]],
		Year:       int(t.Years[i]),
		CO2:        nullable(t.CO2[i]),
		CementCO2:  nullable(t.Cement[i]),
		CoalCO2:    nullable(t.Coal[i]),
		OilCO2:     nullable(t.Oil[i]),
		GasCO2:     nullable(t.Gas[i]),
		GDP:        nullable(t.GDP[i]),
		Population: nullable(t.Population[i]),
	}
}

// Date returns the canonical calendar date of row i (Jan 1, UTC).
func (t *Table) Date(i int) time.Time {
	return YearDate(int(t.Years[i]))
}

// YearDate normalizes a calendar year to year precision.
func YearDate(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func missing() float64 { return math.NaN() }

// row is the loader's intermediate form before columns are built.
type row struct {
	country string
	year    int32
	vals    [7]float64 // co2, cement, coal, oil, gas, gdp, population
}

// buildTable groups rows per country in first-appearance order, sorts each
// group by year and drops repeated (country, year) pairs, keeping the first.
func buildTable(rows []row) (*Table, int) {
	order := make([]string, 0, 256)
	groups := make(map[string][]row)
	for _, r := range rows {
		if _, ok := groups[r.country]; !ok {
			order = append(order, r.country)
		}
		groups[r.country] = append(groups[r.country], r)
	}

	t := &Table{
		byName:  make(map[string]int32, len(order)),
		spans:   make([]span, 0, len(order)),
		minYear: math.MaxInt32,
		maxYear: math.MinInt32,
	}
	dups := 0
	for _, name := range order {
		g := groups[name]
		sort.SliceStable(g, func(i, j int) bool { return g[i].year < g[j].year })

		id := int32(len(t.CountryDict))
		t.CountryDict = append(t.CountryDict, name)
		t.byName[name] = id
		start := len(t.Years)
		for k, r := range g {
			if k > 0 && g[k-1].year == r.year {
				dups++
				continue
			}
			t.appendRow(id, r)
		}
		t.spans = append(t.spans, span{start: start, end: len(t.Years)})
	}
	if t.Len() == 0 {
		t.minYear, t.maxYear = 0, 0
	}
	return t, dups
}

func (t *Table) appendRow(id int32, r row) {
	t.CountryIDs = append(t.CountryIDs, id)
	t.Years = append(t.Years, r.year)
	t.CO2 = append(t.CO2, r.vals[0])
	t.Cement = append(t.Cement, r.vals[1])
	t.Coal = append(t.Coal, r.vals[2])
	t.Oil = append(t.Oil, r.vals[3])
	t.Gas = append(t.Gas, r.vals[4])
	t.GDP = append(t.GDP, r.vals[5])
	t.Population = append(t.Population, r.vals[6])

	y := int(r.year)
	if y < t.minYear {
		t.minYear = y
	}
	if y > t.maxYear {
		t.maxYear = y
	}
}

// NewTable builds a Table from records, applying the same grouping,
// ordering and de-duplication as the loader.
func NewTable(records []models.Record) *Table {
	rows := make([]row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, row{
			country: rec.Country,
			year:    int32(rec.Year),
			vals: [7]float64{
				deref(rec.CO2), deref(rec.CementCO2), deref(rec.CoalCO2),
				deref(rec.OilCO2), deref(rec.GasCO2), deref(rec.GDP), deref(rec.Population),
			},
		})
	}
	t, dups := buildTable(rows)
	t.Stats = models.LoadStats{Source: "memory", RowsRead: len(records), RowsKept: t.Len(), Duplicates: dups}
	return t
}

func deref(p *float64) float64 {
	if p == nil {
		return missing()
	}
	return *p
}
