package models

import "time"

// Record is one country-year observation. Nil pointers are missing values.
type Record struct {
	Country    string   `json:"country"`
	Year       int      `json:"year"`
	CO2        *float64 `json:"co2"`
	CementCO2  *float64 `json:"cement_co2"`
	CoalCO2    *float64 `json:"coal_co2"`
	OilCO2     *float64 `json:"oil_co2"`
	GasCO2     *float64 `json:"gas_co2"`
	GDP        *float64 `json:"gdp"`
	Population *float64 `json:"population"`
}

type FilterSpec struct {
	Country   string `json:"country"`
	YearStart int    `json:"year_start"`
	YearEnd   int    `json:"year_end"`
}

// TrendPoint carries a nil CO2 for a year with no value, which a line
// chart draws as a gap.
type TrendPoint struct {
	Year int      `json:"year"`
	CO2  *float64 `json:"co2"`
}

// SectorPoint is zero-filled so stacked areas never have holes.
type SectorPoint struct {
	Year   int     `json:"year"`
	Cement float64 `json:"cement_co2"`
	Coal   float64 `json:"coal_co2"`
	Oil    float64 `json:"oil_co2"`
	Gas    float64 `json:"gas_co2"`
}

type CorrelationPoint struct {
	GDP        float64  `json:"gdp"`
	CO2        float64  `json:"co2"`
	Population *float64 `json:"population,omitempty"`
	Year       int      `json:"year"`
}

type TrendView struct {
	Title  string       `json:"title"`
	Points []TrendPoint `json:"points"`
}

type SectorView struct {
	Title   string        `json:"title"`
	Sectors []string      `json:"sectors"`
	Points  []SectorPoint `json:"points"`
}

type CorrelationView struct {
	Title  string             `json:"title"`
	Points []CorrelationPoint `json:"points"`
}

type ForecastPoint struct {
	Date       time.Time `json:"date"`
	Predicted  float64   `json:"predicted"`
	Lower      float64   `json:"lower"`
	Upper      float64   `json:"upper"`
	Trend      float64   `json:"trend"`
	Yearly     float64   `json:"yearly"`
	Historical bool      `json:"historical"`
}

// Forecast statuses.
const (
	ForecastOK          = "ok"
	ForecastUnavailable = "unavailable"
	ForecastFailed      = "error"
)

type Forecast struct {
	Title         string          `json:"title"`
	Status        string          `json:"status"`
	Message       string          `json:"message,omitempty"`
	Horizon       int             `json:"horizon"`
	IntervalWidth float64         `json:"interval_width"`
	Observations  int             `json:"observations"`
	Points        []ForecastPoint `json:"points,omitempty"`
}

// LoadStats describes what the loader did with the source.
type LoadStats struct {
	Source     string        `json:"source"`
	RowsRead   int           `json:"rows_read"`
	RowsKept   int           `json:"rows_kept"`
	Dropped    int           `json:"rows_dropped"`
	Duplicates int           `json:"duplicates_removed"`
	BytesRead  int64         `json:"bytes_read"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

type Meta struct {
	Countries        []string  `json:"countries"`
	MinYear          int       `json:"min_year"`
	MaxYear          int       `json:"max_year"`
	DefaultYearStart int       `json:"default_year_start"`
	DefaultYearEnd   int       `json:"default_year_end"`
	Records          int       `json:"records"`
	Load             LoadStats `json:"load"`
}

type DashboardData struct {
	Filter      FilterSpec      `json:"filter"`
	Rows        int             `json:"rows"`
	Trend       TrendView       `json:"trend"`
	Sectors     SectorView      `json:"sectors"`
	Correlation CorrelationView `json:"correlation"`
	Forecast    Forecast        `json:"forecast"`
}
