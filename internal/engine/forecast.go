package engine

import (
	"fmt"

	"co2dash/internal/forecast"
	"co2dash/internal/models"
)

// DefaultHorizon is the number of future years forecast when none is given.
const DefaultHorizon = 10

// MinForecastPoints is the smallest number of co2 values a forecast needs.
const MinForecastPoints = 3

// Forecast fits the additive model to the subset's (date, co2) pairs and
// extends it horizon years past the last observation. Too little data is
// not an error: the result has status "unavailable" and a message for the
// user. A failed fit is returned as *ForecastError.
func Forecast(s Subset, horizon int, opts forecast.Options) (models.Forecast, error) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	ds, ys := s.Series()
	out := models.Forecast{
		Title:         fmt.Sprintf("%s - CO₂ Forecast", s.Spec.Country),
		Horizon:       horizon,
		IntervalWidth: intervalWidth(opts),
		Observations:  len(ys),
	}
	if len(ys) < MinForecastPoints {
		out.Status = models.ForecastUnavailable
		out.Message = "Not enough data to forecast CO₂ emissions for this country."
		return out, nil
	}

	pts, err := forecast.Forecast(ds, ys, horizon, opts)
	if err != nil {
		return out, &ForecastError{Country: s.Spec.Country, Err: err}
	}
	out.Status = models.ForecastOK
	out.Points = make([]models.ForecastPoint, len(pts))
	for i, p := range pts {
		out.Points[i] = models.ForecastPoint{
			Date:       p.Date,
			Predicted:  p.Yhat,
			Lower:      p.Lower,
			Upper:      p.Upper,
			Trend:      p.Trend,
			Yearly:     p.Yearly,
			Historical: p.Historical,
		}
	}
	return out, nil
}

func intervalWidth(opts forecast.Options) float64 {
	if opts.IntervalWidth > 0 && opts.IntervalWidth < 1 {
		return opts.IntervalWidth
	}
	return forecast.DefaultOptions().IntervalWidth
}
