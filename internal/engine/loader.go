package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"co2dash/internal/models"
)

// Columns the source must provide, in Record order after country and year.
var requiredColumns = []string{
	"country", "year", "co2", "cement_co2", "coal_co2", "oil_co2", "gas_co2", "gdp", "population",
}

// Load reads the dataset at src into a Table. src is a CSV path (optionally
// .gz or .zst compressed), a .parquet path, or a clickhouse:// URL.
// Malformed rows are dropped and logged; anything that prevents reading the
// source as a whole is returned as *LoadError.
func Load(ctx context.Context, src string) (*Table, error) {
	start := time.Now()
	log.Printf("Loading dataset from %s...", redact(src))

	var (
		rows  []row
		stats models.LoadStats
		err   error
	)
	switch {
	case strings.HasPrefix(src, "clickhouse://"):
		rows, stats, err = loadClickHouse(ctx, src)
	case strings.HasSuffix(src, ".parquet"):
		rows, stats, err = loadParquet(src)
	default:
		rows, stats, err = loadCSVFile(src)
	}
	if err != nil {
		return nil, &LoadError{Source: redact(src), Err: err}
	}
	if len(rows) == 0 {
		return nil, &LoadError{Source: redact(src), Err: ErrNoRecords}
	}

	t, dups := buildTable(rows)
	stats.Source = redact(src)
	stats.RowsKept = t.Len()
	stats.Duplicates = dups
	stats.Elapsed = time.Since(start)
	t.Stats = stats

	log.Printf("Load Complete. Rows: %d (dropped %d, duplicates %d). Countries: %d. Time: %v",
		stats.RowsKept, stats.Dropped, dups, len(t.CountryDict), stats.Elapsed)
	return t, nil
}

func loadCSVFile(path string) ([]row, models.LoadStats, error) {
	var stats models.LoadStats
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, stats, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, stats, err
	}
	defer f.Close()

	counter := &countingReader{r: f}
	var r io.Reader = counter
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := pgzip.NewReader(counter)
		if err != nil {
			return nil, stats, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(counter)
		if err != nil {
			return nil, stats, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	rows, stats, err := parseCSV(r)
	stats.BytesRead = counter.n
	return rows, stats, err
}

// parseCSV reads a header line and then one record per line. Lines the
// csv reader rejects are dropped; read errors from the stream are returned.
func parseCSV(r io.Reader) ([]row, models.LoadStats, error) {
	var stats models.LoadStats
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, stats, err
	}

	rows := make([]row, 0, 1024)
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			// stream errors repeat on every Read, so they end the load
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, stats, fmt.Errorf("read line %d: %w", line, err)
			}
			stats.RowsRead++
			stats.Dropped++
			log.Printf("skipping line %d: %v", line, err)
			continue
		}
		stats.RowsRead++
		rw, err := parseRow(rec, idx)
		if err != nil {
			stats.Dropped++
			log.Printf("skipping line %d: %v", line, err)
			continue
		}
		rows = append(rows, rw)
	}
	return rows, stats, nil
}

// columnIndex maps each required column to its position in header.
func columnIndex(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}
	idx := make([]int, len(requiredColumns))
	for i, name := range requiredColumns {
		p, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[i] = p
	}
	return idx, nil
}

func parseRow(rec []string, idx []int) (row, error) {
	var rw row
	field := func(i int) string {
		if idx[i] >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx[i]])
	}

	rw.country = field(0)
	if rw.country == "" {
		return rw, errors.New("empty country")
	}
	year, err := parseYear(field(1))
	if err != nil {
		return rw, err
	}
	rw.year = year
	for i := range rw.vals {
		v, err := parseMeasure(field(i + 2))
		if err != nil {
			return rw, fmt.Errorf("%s: %w", requiredColumns[i+2], err)
		}
		rw.vals[i] = v
	}
	return rw, nil
}

// parseYear accepts "1990" and date-like "1990-01-01" forms.
func parseYear(s string) (int32, error) {
	if s == "" {
		return 0, errors.New("empty year")
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		d, derr := time.Parse("2006-01-02", s)
		if derr != nil {
			return 0, fmt.Errorf("bad year %q", s)
		}
		y = d.Year()
	}
	if y < 1 || y > 9999 {
		return 0, fmt.Errorf("year out of range %d", y)
	}
	return int32(y), nil
}

// parseMeasure returns NaN for blank or NaN cells.
func parseMeasure(s string) (float64, error) {
	if s == "" {
		return missing(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("infinite value %q", s)
	}
	return v, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
