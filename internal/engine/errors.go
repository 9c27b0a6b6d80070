package engine

import (
	"errors"
	"fmt"
)

// Errors returned by the engine package.
var (
	// ErrSourceNotFound is returned when the dataset file does not exist.
	ErrSourceNotFound = errors.New("dataset source not found")

	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("required column missing")

	// ErrNoRecords is returned when no row of the source could be parsed.
	ErrNoRecords = errors.New("no valid records")

	// ErrUnsupportedSource is returned for source kinds the loader cannot read.
	ErrUnsupportedSource = errors.New("unsupported dataset source")

	// ErrNotReady is returned while the dataset has not been loaded.
	ErrNotReady = errors.New("dataset not loaded yet")
)

// LoadError is fatal: the dataset could not be read at all.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ForecastError is a per-request failure of the forecast fit.
type ForecastError struct {
	Country string
	Err     error
}

func (e *ForecastError) Error() string {
	return fmt.Sprintf("forecast %s: %v", e.Country, e.Err)
}

func (e *ForecastError) Unwrap() error { return e.Err }
