// Package export writes the raw rows of a filtered subset in downloadable
// formats.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"co2dash/internal/engine"
	"co2dash/internal/models"
)

// Supported formats.
const (
	CSV     = "csv"
	XLSX    = "xlsx"
	Arrow   = "arrow"
	Parquet = "parquet"
)

// ErrUnknownFormat is returned for a format not listed above.
var ErrUnknownFormat = errors.New("unknown export format")

var header = []string{
	"country", "year", "co2", "cement_co2", "coal_co2", "oil_co2", "gas_co2", "gdp", "population",
}

// ContentType returns the MIME type and file extension for format.
func ContentType(format string) (string, string, error) {
	switch format {
	case CSV:
		return "text/csv", "csv", nil
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", nil
	case Arrow:
		return "application/vnd.apache.arrow.stream", "arrows", nil
	case Parquet:
		return "application/vnd.apache.parquet", "parquet", nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Write encodes recs to w in format.
func Write(w io.Writer, format string, recs []models.Record) error {
	switch format {
	case CSV:
		return writeCSV(w, recs)
	case XLSX:
		return writeXLSX(w, recs)
	case Arrow:
		return writeArrow(w, recs)
	case Parquet:
		return writeParquet(w, recs)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func measures(r models.Record) []*float64 {
	return []*float64{r.CO2, r.CementCO2, r.CoalCO2, r.OilCO2, r.GasCO2, r.GDP, r.Population}
}

func writeCSV(w io.Writer, recs []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	line := make([]string, len(header))
	for _, r := range recs {
		line[0] = r.Country
		line[1] = strconv.Itoa(r.Year)
		for i, m := range measures(r) {
			line[2+i] = ""
			if m != nil {
				line[2+i] = strconv.FormatFloat(*m, 'f', -1, 64)
			}
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, recs []models.Record) error {
	const sheet = "Raw Data"
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	for i, r := range recs {
		cells := []interface{}{r.Country, r.Year}
		for _, m := range measures(r) {
			if m == nil {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, *m)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// ArrowSchema is the schema of the Arrow IPC stream.
var ArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "country", Type: arrow.BinaryTypes.String},
	{Name: "year", Type: arrow.PrimitiveTypes.Int32},
	{Name: "co2", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "cement_co2", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "coal_co2", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "oil_co2", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "gas_co2", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "gdp", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "population", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

func writeArrow(w io.Writer, recs []models.Record) error {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, ArrowSchema)
	defer b.Release()

	countries := b.Field(0).(*array.StringBuilder)
	years := b.Field(1).(*array.Int32Builder)
	for _, r := range recs {
		countries.Append(r.Country)
		years.Append(int32(r.Year))
		for i, m := range measures(r) {
			fb := b.Field(2 + i).(*array.Float64Builder)
			if m == nil {
				fb.AppendNull()
				continue
			}
			fb.Append(*m)
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(ArrowSchema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return err
	}
	return iw.Close()
}

func writeParquet(w io.Writer, recs []models.Record) error {
	rows := make([]engine.ParquetRecord, len(recs))
	for i, r := range recs {
		rows[i] = engine.NewParquetRecord(r)
	}
	pw := parquet.NewGenericWriter[engine.ParquetRecord](w)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}
