package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"co2dash/internal/engine"
	"co2dash/internal/models"
)

func f64(v float64) *float64 { return &v }

var testRecords = []models.Record{
	{Country: "Chile", Year: 2000, CO2: f64(52.5), CoalCO2: f64(10), GDP: f64(2.5e11), Population: f64(15e6)},
	{Country: "Chile", Year: 2001, CO2: f64(53)},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, CSV, testRecords))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"Chile", "2000", "52.5", "", "10", "", "", "250000000000", "15000000"}, rows[1])
	assert.Equal(t, "", rows[2][8])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XLSX, testRecords))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Raw Data")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "country", rows[0][0])
	assert.Equal(t, "Chile", rows[1][0])
	assert.Equal(t, "2001", rows[2][1])
}

func TestWriteArrow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Arrow, testRecords))

	r, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer r.Release()

	require.True(t, r.Next())
	rec := r.Record()
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, "Chile", rec.Column(0).(*array.String).Value(0))
	assert.Equal(t, int32(2001), rec.Column(1).(*array.Int32).Value(1))
	gdp := rec.Column(7).(*array.Float64)
	assert.False(t, gdp.IsNull(0))
	assert.True(t, gdp.IsNull(1))
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Parquet, testRecords))

	rows, err := parquet.Read[engine.ParquetRecord](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Chile", rows[0].Country)
	assert.Equal(t, int32(2001), rows[1].Year)
	assert.Nil(t, rows[1].GDP)
	require.NotNil(t, rows[0].CoalCO2)
	assert.Equal(t, 10.0, *rows[0].CoalCO2)
}

func TestUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Write(&buf, "pdf", testRecords), ErrUnknownFormat)
	_, _, err := ContentType("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	ct, ext, err := ContentType(CSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", ct)
	assert.Equal(t, "csv", ext)
}
