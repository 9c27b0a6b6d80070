package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("CO2_DATA_PATH", "/data/owid.csv.gz")
	t.Setenv("CO2_FORECAST_HORIZON", "15")
	t.Setenv("CO2_INTERVAL_WIDTH", "not-a-number")

	cfg := DefaultConfig()
	assert.Equal(t, "/data/owid.csv.gz", cfg.DataPath)
	assert.Equal(t, 15, cfg.ForecastHorizon)
	assert.Equal(t, 0.80, cfg.IntervalWidth)
	assert.Equal(t, 1990, cfg.DefaultYearStart)
	assert.Equal(t, 2021, cfg.DefaultYearEnd)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/data/owid.csv.gz", cfg.Source())
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("CO2_LISTEN_ADDR", ":9000")
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-horizon", "3", "-start-year", "2000"}))

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.ForecastHorizon)
	assert.Equal(t, 2000, cfg.DefaultYearStart)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForecastHorizon = 0
	cfg.IntervalWidth = 1.5
	cfg.DefaultYearStart = 2030

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "horizon")
	assert.Contains(t, err.Error(), "interval width")
	assert.Contains(t, err.Error(), "start year")
}

func TestClickHouseSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClickHouseAddr = "ch:9000"
	cfg.ClickHouseDatabase = "owid"
	cfg.ClickHouseTable = "emissions"
	cfg.ClickHouseUser = "reader"
	cfg.ClickHousePassword = "pw"

	assert.Equal(t, "clickhouse://reader:pw@ch:9000/owid?table=emissions", cfg.Source())
}
