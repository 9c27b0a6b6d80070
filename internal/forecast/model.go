// Package forecast fits an additive time-series model (piecewise linear
// trend plus yearly Fourier seasonality) and extrapolates it with an
// uncertainty interval.
package forecast

import (
	"errors"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrDegenerateSeries is returned when the input has no variation in
	// either dates or values.
	ErrDegenerateSeries = errors.New("degenerate series")

	// ErrFitFailed is returned when the normal equations cannot be solved.
	ErrFitFailed = errors.New("model fit failed")

	// ErrInput is returned for mismatched or empty inputs.
	ErrInput = errors.New("invalid input")
)

const (
	dayDuration  = 24 * time.Hour
	yearPeriod   = 365.25
	noiseFloor   = 1e-4
	deltaEpsilon = 1e-8
)

// Options controls the model. Zero values are replaced by DefaultOptions;
// a negative MaxChangepoints fits a single straight trend.
type Options struct {
	IntervalWidth         float64
	ChangepointRange      float64
	MaxChangepoints       int
	YearlyOrder           int
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	TrendPriorScale       float64
}

func DefaultOptions() Options {
	return Options{
		IntervalWidth:         0.80,
		ChangepointRange:      0.8,
		MaxChangepoints:       25,
		YearlyOrder:           10,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		TrendPriorScale:       5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		o.IntervalWidth = d.IntervalWidth
	}
	if o.ChangepointRange <= 0 || o.ChangepointRange > 1 {
		o.ChangepointRange = d.ChangepointRange
	}
	if o.MaxChangepoints == 0 {
		o.MaxChangepoints = d.MaxChangepoints
	}
	if o.YearlyOrder <= 0 {
		o.YearlyOrder = d.YearlyOrder
	}
	if o.ChangepointPriorScale <= 0 {
		o.ChangepointPriorScale = d.ChangepointPriorScale
	}
	if o.SeasonalityPriorScale <= 0 {
		o.SeasonalityPriorScale = d.SeasonalityPriorScale
	}
	if o.TrendPriorScale <= 0 {
		o.TrendPriorScale = d.TrendPriorScale
	}
	return o
}

// Model is a fitted additive model. All coefficients live in scaled units:
// time in [0,1] over the history, values divided by Scale.
type Model struct {
	opts Options

	start    time.Time
	spanDays float64
	Scale    float64

	// Changepoint locations in scaled time
	Changepoints []float64

	// Trend: offset, base rate and per-changepoint rate adjustments
	Offset float64
	Rate   float64
	Deltas []float64

	// Fourier coefficients, sin/cos interleaved per order
	Yearly []float64

	// Residual standard deviation in scaled units
	Sigma float64

	last time.Time
}

// Fit estimates the model from (ds, y). Input order does not matter.
func Fit(ds []time.Time, y []float64, opts Options) (*Model, error) {
	if len(ds) != len(y) || len(ds) == 0 {
		return nil, ErrInput
	}
	opts = opts.withDefaults()

	ds, y = sortSeries(ds, y)
	n := len(ds)

	if ds[0].Equal(ds[n-1]) {
		return nil, ErrDegenerateSeries
	}
	if floats.Max(y) == floats.Min(y) {
		return nil, ErrDegenerateSeries
	}
	// at most one observation per year cannot separate a yearly cycle from
	// the trend
	if minSpacingDays(ds) >= 365 {
		opts.YearlyOrder = 0
	}

	m := &Model{
		opts:     opts,
		start:    ds[0],
		spanDays: ds[n-1].Sub(ds[0]).Hours() / 24,
		Scale:    floats.Norm(y, math.Inf(1)),
		last:     ds[n-1],
	}

	t := make([]float64, n)
	ys := make([]float64, n)
	for i := range ds {
		t[i] = m.scaledTime(ds[i])
		ys[i] = y[i] / m.Scale
	}
	m.Changepoints = placeChangepoints(t, opts)

	// Gaussian priors become ridge penalties relative to a noise estimate
	// taken from a straight-line fit.
	alpha, beta := stat.LinearRegression(t, ys, nil, false)
	var ss float64
	for i := range t {
		r := ys[i] - (alpha + beta*t[i])
		ss += r * r
	}
	noise := math.Max(ss/float64(n), noiseFloor)

	X := m.design(ds, t)
	_, p := X.Dims()
	penalty := make([]float64, p)
	nc := len(m.Changepoints)
	for j := range penalty {
		switch {
		case j < 2:
			penalty[j] = noise / (opts.TrendPriorScale * opts.TrendPriorScale)
		case j < 2+nc:
			penalty[j] = noise / (opts.ChangepointPriorScale * opts.ChangepointPriorScale)
		default:
			penalty[j] = noise / (opts.SeasonalityPriorScale * opts.SeasonalityPriorScale)
		}
	}

	coef, err := ridge(X, ys, penalty)
	if err != nil {
		return nil, err
	}
	m.Offset, m.Rate = coef[0], coef[1]
	m.Deltas = coef[2 : 2+nc]
	m.Yearly = coef[2+nc:]

	var rss float64
	for i := range ds {
		tr, yr := m.components(ds[i], t[i])
		r := ys[i] - tr - yr
		rss += r * r
	}
	dof := n - 1
	if dof < 1 {
		dof = 1
	}
	m.Sigma = math.Sqrt(rss / float64(dof))
	return m, nil
}

// ridge solves (XᵀX + diag(penalty)) b = Xᵀy by Cholesky.
func ridge(X *mat.Dense, y []float64, penalty []float64) ([]float64, error) {
	_, p := X.Dims()
	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())
	for j := 0; j < p; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+penalty[j])
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), mat.NewVecDense(len(y), y))

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, ErrFitFailed
	}
	var b mat.VecDense
	if err := chol.SolveVecTo(&b, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, errors.Join(ErrFitFailed, err)
		}
	}
	coef := make([]float64, p)
	for j := range coef {
		coef[j] = b.AtVec(j)
		if math.IsNaN(coef[j]) || math.IsInf(coef[j], 0) {
			return nil, ErrFitFailed
		}
	}
	return coef, nil
}

// design builds [1, t, (t-s_j)+..., sin/cos yearly terms...].
func (m *Model) design(ds []time.Time, t []float64) *mat.Dense {
	nc := len(m.Changepoints)
	p := 2 + nc + 2*m.opts.YearlyOrder
	X := mat.NewDense(len(ds), p, nil)
	for i := range ds {
		X.Set(i, 0, 1)
		X.Set(i, 1, t[i])
		for j, s := range m.Changepoints {
			if t[i] > s {
				X.Set(i, 2+j, t[i]-s)
			}
		}
		for k, f := range fourier(ds[i], m.opts.YearlyOrder) {
			X.Set(i, 2+nc+k, f)
		}
	}
	return X
}

// components returns the scaled trend and yearly terms at d.
func (m *Model) components(d time.Time, t float64) (float64, float64) {
	trend := m.Offset + m.Rate*t
	for j, s := range m.Changepoints {
		if t > s {
			trend += m.Deltas[j] * (t - s)
		}
	}
	yearly := floats.Dot(fourier(d, m.opts.YearlyOrder), m.Yearly)
	return trend, yearly
}

func (m *Model) scaledTime(d time.Time) float64 {
	return d.Sub(m.start).Hours() / 24 / m.spanDays
}

// trendVariance is the variance added by future rate changes at scaled time
// t > 1. Changes arrive as a Poisson process with the historical changepoint
// density and Laplace magnitudes with the mean fitted |delta| as scale.
func (m *Model) trendVariance(t float64) float64 {
	if t <= 1 || len(m.Deltas) == 0 {
		return 0
	}
	var sum float64
	for _, d := range m.Deltas {
		sum += math.Abs(d)
	}
	lambda := sum/float64(len(m.Deltas)) + deltaEpsilon
	density := float64(len(m.Changepoints))
	h := t - 1
	return density * 2 * lambda * lambda * h * h * h / 3
}

// Point is one predicted value with its interval and components.
type Point struct {
	Date       time.Time
	Yhat       float64
	Lower      float64
	Upper      float64
	Trend      float64
	Yearly     float64
	Historical bool
}

// Predict evaluates the model at each date.
func (m *Model) Predict(ds []time.Time) []Point {
	z := distuv.UnitNormal.Quantile(0.5 + m.opts.IntervalWidth/2)
	out := make([]Point, len(ds))
	for i, d := range ds {
		t := m.scaledTime(d)
		tr, yr := m.components(d, t)
		sd := math.Sqrt(m.Sigma*m.Sigma + m.trendVariance(t))
		yhat := (tr + yr) * m.Scale
		half := z * sd * m.Scale
		out[i] = Point{
			Date:       d,
			Yhat:       yhat,
			Lower:      yhat - half,
			Upper:      yhat + half,
			Trend:      tr * m.Scale,
			Yearly:     yr * m.Scale,
			Historical: !d.After(m.last),
		}
	}
	return out
}

// FutureDates returns horizon yearly dates after the last observation.
func (m *Model) FutureDates(horizon int) []time.Time {
	out := make([]time.Time, 0, horizon)
	for h := 1; h <= horizon; h++ {
		out = append(out, m.last.AddDate(h, 0, 0))
	}
	return out
}

// Forecast fits (ds, y) and predicts the history plus horizon future years.
func Forecast(ds []time.Time, y []float64, horizon int, opts Options) ([]Point, error) {
	m, err := Fit(ds, y, opts)
	if err != nil {
		return nil, err
	}
	sorted, _ := sortSeries(ds, y)
	return m.Predict(append(sorted, m.FutureDates(horizon)...)), nil
}

// placeChangepoints spreads up to MaxChangepoints over the first
// ChangepointRange of the history, by index.
func placeChangepoints(t []float64, opts Options) []float64 {
	hist := int(math.Floor(float64(len(t)) * opts.ChangepointRange))
	nc := opts.MaxChangepoints
	if nc+1 > hist {
		nc = hist - 1
	}
	if nc <= 0 {
		return nil
	}
	cps := make([]float64, 0, nc)
	step := float64(hist-1) / float64(nc)
	for j := 1; j <= nc; j++ {
		idx := int(math.Round(step * float64(j)))
		cps = append(cps, t[idx])
	}
	return cps
}

func fourier(d time.Time, order int) []float64 {
	days := float64(d.Unix()) / dayDuration.Seconds()
	out := make([]float64, 2*order)
	for k := 1; k <= order; k++ {
		x := 2 * math.Pi * float64(k) * days / yearPeriod
		out[2*(k-1)] = math.Sin(x)
		out[2*(k-1)+1] = math.Cos(x)
	}
	return out
}

// minSpacingDays is the smallest positive gap between consecutive sorted
// dates.
func minSpacingDays(ds []time.Time) float64 {
	best := math.Inf(1)
	for i := 1; i < len(ds); i++ {
		if gap := ds[i].Sub(ds[i-1]).Hours() / 24; gap > 0 && gap < best {
			best = gap
		}
	}
	return best
}

func sortSeries(ds []time.Time, y []float64) ([]time.Time, []float64) {
	idx := make([]int, len(ds))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ds[idx[a]].Before(ds[idx[b]]) })
	sd := make([]time.Time, len(ds))
	sy := make([]float64, len(y))
	for i, j := range idx {
		sd[i] = ds[j]
		sy[i] = y[j]
	}
	return sd, sy
}
