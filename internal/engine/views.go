package engine

import (
	"fmt"
	"math"

	"co2dash/internal/models"
)

// Sector column names, in stacking order.
var Sectors = []string{"cement_co2", "coal_co2", "oil_co2", "gas_co2"}

// Trend returns one (year, co2) pair per subset row in chronological order.
// A missing co2 stays nil.
func Trend(s Subset) models.TrendView {
	v := models.TrendView{
		Title:  fmt.Sprintf("Total CO₂ Emissions for %s", s.Spec.Country),
		Points: make([]models.TrendPoint, 0, s.Len()),
	}
	t := s.table
	for _, r := range s.rows {
		v.Points = append(v.Points, models.TrendPoint{Year: int(t.Years[r]), CO2: nullable(t.CO2[r])})
	}
	return v
}

// Sector returns one zero-filled tuple per subset row.
func Sector(s Subset) models.SectorView {
	v := models.SectorView{
		Title:   fmt.Sprintf("%s - Sectoral CO₂ Emissions", s.Spec.Country),
		Sectors: Sectors,
		Points:  make([]models.SectorPoint, 0, s.Len()),
	}
	t := s.table
	for _, r := range s.rows {
		v.Points = append(v.Points, models.SectorPoint{
			Year:   int(t.Years[r]),
			Cement: zeroIfMissing(t.Cement[r]),
			Coal:   zeroIfMissing(t.Coal[r]),
			Oil:    zeroIfMissing(t.Oil[r]),
			Gas:    zeroIfMissing(t.Gas[r]),
		})
	}
	return v
}

// Correlation returns (gdp, co2, population) for rows where both gdp and
// co2 are present. A missing population stays nil.
func Correlation(s Subset) models.CorrelationView {
	v := models.CorrelationView{
		Title:  fmt.Sprintf("%s - CO₂ Emissions vs GDP", s.Spec.Country),
		Points: make([]models.CorrelationPoint, 0, s.Len()),
	}
	t := s.table
	for _, r := range s.rows {
		if math.IsNaN(t.GDP[r]) || math.IsNaN(t.CO2[r]) {
			continue
		}
		v.Points = append(v.Points, models.CorrelationPoint{
			GDP:        t.GDP[r],
			CO2:        t.CO2[r],
			Population: nullable(t.Population[r]),
			Year:       int(t.Years[r]),
		})
	}
	return v
}

func zeroIfMissing(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
