package engine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"co2dash/internal/models"
)

// ParquetRecord matches the Parquet schema used for import and export.
type ParquetRecord struct {
	Country    string   `parquet:"country"`
	Year       int32    `parquet:"year"`
	CO2        *float64 `parquet:"co2,optional"`
	CementCO2  *float64 `parquet:"cement_co2,optional"`
	CoalCO2    *float64 `parquet:"coal_co2,optional"`
	OilCO2     *float64 `parquet:"oil_co2,optional"`
	GasCO2     *float64 `parquet:"gas_co2,optional"`
	GDP        *float64 `parquet:"gdp,optional"`
	Population *float64 `parquet:"population,optional"`
}

// NewParquetRecord converts a Record to its Parquet row form.
func NewParquetRecord(r models.Record) ParquetRecord {
	return ParquetRecord{
		Country:    r.Country,
		Year:       int32(r.Year),
		CO2:        r.CO2,
		CementCO2:  r.CementCO2,
		CoalCO2:    r.CoalCO2,
		OilCO2:     r.OilCO2,
		GasCO2:     r.GasCO2,
		GDP:        r.GDP,
		Population: r.Population,
	}
}

func loadParquet(path string) ([]row, models.LoadStats, error) {
	var stats models.LoadStats
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, stats, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, stats, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, stats, err
	}
	stats.BytesRead = info.Size()

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, stats, fmt.Errorf("parquet open: %w", err)
	}

	reader := parquet.NewGenericReader[ParquetRecord](pf)
	defer reader.Close()

	rows := make([]row, 0, pf.NumRows())
	buf := make([]ParquetRecord, 1000)
	for {
		n, err := reader.Read(buf)
		for i := 0; i < n; i++ {
			stats.RowsRead++
			rw, perr := parquetRow(buf[i])
			if perr != nil {
				stats.Dropped++
				log.Printf("skipping parquet row %d: %v", stats.RowsRead, perr)
				continue
			}
			rows = append(rows, rw)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("parquet read: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return rows, stats, nil
}

func parquetRow(p ParquetRecord) (row, error) {
	rw := row{country: strings.TrimSpace(p.Country), year: p.Year}
	if rw.country == "" {
		return rw, errors.New("empty country")
	}
	if p.Year < 1 || p.Year > 9999 {
		return rw, fmt.Errorf("year out of range %d", p.Year)
	}
	rw.vals = [7]float64{
		deref(p.CO2), deref(p.CementCO2), deref(p.CoalCO2), deref(p.OilCO2),
		deref(p.GasCO2), deref(p.GDP), deref(p.Population),
	}
	return rw, nil
}
