package engine

import (
	"errors"

	"co2dash/internal/forecast"
	"co2dash/internal/models"
)

// Aggregate runs one full pipeline pass for spec: filter, the three views
// and the forecast. A forecast failure is reported inside the result so
// the other views still render.
func (t *Table) Aggregate(spec models.FilterSpec, horizon int, opts forecast.Options) models.DashboardData {
	sub := Filter(t, spec)
	data := models.DashboardData{
		Filter:      spec,
		Rows:        sub.Len(),
		Trend:       Trend(sub),
		Sectors:     Sector(sub),
		Correlation: Correlation(sub),
	}

	fc, err := Forecast(sub, horizon, opts)
	var fe *ForecastError
	if errors.As(err, &fe) {
		fc.Status = models.ForecastFailed
		fc.Message = fe.Error()
	}
	data.Forecast = fc
	return data
}

// Meta describes the table for selectors: sorted countries, year bounds
// and the default year range clamped to those bounds.
func (t *Table) Meta(defaultStart, defaultEnd int) models.Meta {
	lo, hi := t.YearBounds()
	return models.Meta{
		Countries:        t.Countries(),
		MinYear:          lo,
		MaxYear:          hi,
		DefaultYearStart: clamp(defaultStart, lo, hi),
		DefaultYearEnd:   clamp(defaultEnd, lo, hi),
		Records:          t.Len(),
		Load:             t.Stats,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
