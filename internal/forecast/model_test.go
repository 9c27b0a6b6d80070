package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func years(start, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(start+i, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func TestFitLinear(t *testing.T) {
	ds := years(1980, 40)
	y := make([]float64, len(ds))
	for i := range y {
		y[i] = 500 + 25*float64(i)
	}

	m, err := Fit(ds, y, Options{})
	require.NoError(t, err)
	assert.Equal(t, y[len(y)-1], m.Scale)
	assert.Len(t, m.Changepoints, 25)
	assert.Empty(t, m.Yearly, "annual data carries no yearly terms")

	pts := m.Predict(ds)
	for i, p := range pts {
		assert.InDelta(t, y[i], p.Yhat, 0.02*(y[len(y)-1]-y[0]), "year %d", ds[i].Year())
		assert.InDelta(t, p.Yhat, p.Trend+p.Yearly, 1e-6)
		assert.Zero(t, p.Yearly)
		assert.True(t, p.Historical)
	}
}

func TestYearlySeasonality(t *testing.T) {
	start := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	ds := make([]time.Time, 48)
	y := make([]float64, len(ds))
	for i := range ds {
		ds[i] = start.AddDate(0, i, 0)
		y[i] = 100 + float64(i) + 10*math.Sin(2*math.Pi*float64(i)/12)
	}

	m, err := Fit(ds, y, Options{})
	require.NoError(t, err)
	assert.Len(t, m.Yearly, 20)

	var maxYearly float64
	for _, p := range m.Predict(ds) {
		maxYearly = math.Max(maxYearly, math.Abs(p.Yearly))
		// the cycle amplitude is 10 against a range near 67
		assert.Less(t, math.Abs(p.Yearly), 20.0)
	}
	assert.Greater(t, maxYearly, 5.0)
}

func TestForecastExtendsHorizon(t *testing.T) {
	ds := years(2000, 12)
	y := []float64{10, 12, 13, 15, 18, 19, 21, 24, 25, 27, 30, 31}

	pts, err := Forecast(ds, y, 5, Options{})
	require.NoError(t, err)
	require.Len(t, pts, 17)

	for i := 12; i < 17; i++ {
		assert.False(t, pts[i].Historical)
		assert.Equal(t, 2000+i, pts[i].Date.Year())
		assert.Equal(t, time.January, pts[i].Date.Month())
	}

	// future intervals widen with distance
	w1 := pts[12].Upper - pts[12].Lower
	w5 := pts[16].Upper - pts[16].Lower
	assert.GreaterOrEqual(t, w5, w1)
	assert.Greater(t, pts[16].Yhat, pts[11].Yhat)
}

func TestFitSortsInput(t *testing.T) {
	ds := years(2000, 6)
	y := []float64{1, 3, 2, 5, 4, 6}
	rev := make([]time.Time, len(ds))
	ry := make([]float64, len(y))
	for i := range ds {
		rev[len(ds)-1-i] = ds[i]
		ry[len(y)-1-i] = y[i]
	}

	a, err := Forecast(ds, y, 2, Options{})
	require.NoError(t, err)
	b, err := Forecast(rev, ry, 2, Options{})
	require.NoError(t, err)
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Date, b[i].Date)
		assert.InDelta(t, a[i].Yhat, b[i].Yhat, 1e-9)
	}
}

func TestFitErrors(t *testing.T) {
	t.Run("identical values", func(t *testing.T) {
		_, err := Fit(years(2000, 5), []float64{3, 3, 3, 3, 3}, Options{})
		assert.ErrorIs(t, err, ErrDegenerateSeries)
	})

	t.Run("identical dates", func(t *testing.T) {
		d := years(2000, 1)[0]
		_, err := Fit([]time.Time{d, d, d}, []float64{1, 2, 3}, Options{})
		assert.ErrorIs(t, err, ErrDegenerateSeries)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Fit(years(2000, 3), []float64{1, 2}, Options{})
		assert.ErrorIs(t, err, ErrInput)
	})
}

func TestIntervalWidth(t *testing.T) {
	ds := years(1990, 20)
	y := make([]float64, len(ds))
	for i := range y {
		y[i] = 50 + 2*float64(i) + 4*math.Cos(float64(i)*1.7)
	}

	narrow, err := Forecast(ds, y, 3, Options{IntervalWidth: 0.5})
	require.NoError(t, err)
	wide, err := Forecast(ds, y, 3, Options{IntervalWidth: 0.95})
	require.NoError(t, err)

	last := len(narrow) - 1
	assert.Less(t, narrow[last].Upper-narrow[last].Lower, wide[last].Upper-wide[last].Lower)
}

func TestPlaceChangepoints(t *testing.T) {
	tt := []float64{0, 0.25, 0.5, 0.75, 1}
	// hist = 4, so at most 3 changepoints at indexes 1, 2, 3
	cps := placeChangepoints(tt, DefaultOptions())
	assert.Equal(t, []float64{0.25, 0.5, 0.75}, cps)

	assert.Empty(t, placeChangepoints([]float64{0, 1}, DefaultOptions()))
}
