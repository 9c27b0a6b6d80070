// Package config holds the dashboard server configuration.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds the server and pipeline settings.
type Config struct {
	DataPath         string
	ListenAddr       string
	ForecastHorizon  int
	IntervalWidth    float64
	DefaultYearStart int
	DefaultYearEnd   int
	RateLimit        float64
	LogLevel         string

	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseTable    string
	ClickHouseUser     string
	ClickHousePassword string
}

// DefaultConfig returns configuration with defaults taken from the environment.
func DefaultConfig() *Config {
	return &Config{
		DataPath:           getEnv("CO2_DATA_PATH", "owid-co2-data.csv"),
		ListenAddr:         getEnv("CO2_LISTEN_ADDR", ":8080"),
		ForecastHorizon:    getEnvInt("CO2_FORECAST_HORIZON", 10),
		IntervalWidth:      getEnvFloat("CO2_INTERVAL_WIDTH", 0.80),
		DefaultYearStart:   getEnvInt("CO2_DEFAULT_START_YEAR", 1990),
		DefaultYearEnd:     getEnvInt("CO2_DEFAULT_END_YEAR", 2021),
		RateLimit:          getEnvFloat("CO2_RATE_LIMIT", 20),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseTable:    getEnv("CLICKHOUSE_TABLE", "co2"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
	}
}

// RegisterFlags binds command-line flags to c, using current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DataPath, "data", c.DataPath, "Dataset path (.csv, .csv.gz, .csv.zst, .parquet)")
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "HTTP listen address")
	fs.IntVar(&c.ForecastHorizon, "horizon", c.ForecastHorizon, "Default forecast horizon in years")
	fs.Float64Var(&c.IntervalWidth, "interval-width", c.IntervalWidth, "Forecast uncertainty interval width")
	fs.IntVar(&c.DefaultYearStart, "start-year", c.DefaultYearStart, "Default start of the year range")
	fs.IntVar(&c.DefaultYearEnd, "end-year", c.DefaultYearEnd, "Default end of the year range")
	fs.Float64Var(&c.RateLimit, "rate-limit", c.RateLimit, "Requests per second per client (0 disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error, off")
	fs.StringVar(&c.ClickHouseAddr, "ch-addr", c.ClickHouseAddr, "ClickHouse address; when set the dataset is read from ClickHouse")
	fs.StringVar(&c.ClickHouseDatabase, "ch-db", c.ClickHouseDatabase, "ClickHouse database")
	fs.StringVar(&c.ClickHouseTable, "ch-table", c.ClickHouseTable, "ClickHouse table")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.ForecastHorizon < 1 {
		errs = append(errs, fmt.Errorf("forecast horizon must be >= 1, got %d", c.ForecastHorizon))
	}
	if c.IntervalWidth <= 0 || c.IntervalWidth >= 1 {
		errs = append(errs, fmt.Errorf("interval width must be in (0,1), got %g", c.IntervalWidth))
	}
	if c.DefaultYearStart > c.DefaultYearEnd {
		errs = append(errs, fmt.Errorf("default start year %d after end year %d", c.DefaultYearStart, c.DefaultYearEnd))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must be >= 0, got %g", c.RateLimit))
	}
	if c.DataPath == "" && c.ClickHouseAddr == "" {
		errs = append(errs, errors.New("no dataset source configured"))
	}
	return errors.Join(errs...)
}

// Source returns the dataset source the loader should read.
func (c *Config) Source() string {
	if c.ClickHouseAddr == "" {
		return c.DataPath
	}
	u := url.URL{
		Scheme:   "clickhouse",
		Host:     c.ClickHouseAddr,
		Path:     "/" + c.ClickHouseDatabase,
		RawQuery: url.Values{"table": {c.ClickHouseTable}}.Encode(),
	}
	if c.ClickHousePassword != "" {
		u.User = url.UserPassword(c.ClickHouseUser, c.ClickHousePassword)
	} else {
		u.User = url.User(c.ClickHouseUser)
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}
