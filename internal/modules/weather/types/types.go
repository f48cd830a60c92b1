package types

import "fmt"

// UnknownStationID is stored when a message carries no usable stationId.
const UnknownStationID = "WS-UNK"

// Plausibility bounds applied by FilterDrop.
const (
	TemperatureMin = -50.0
	TemperatureMax = 60.0
	HumidityMin    = 0.0
	HumidityMax    = 100.0

	// TemperatureMissingCode is the faulty-sensor code that FilterDrop keeps even though it is
	// outside the temperature bounds.
	TemperatureMissingCode = -999.0
)

// History limits.
const (
	DefaultLimit = 1000
	MaxLimit     = 10000
)

// Reading is one persisted station observation. Temperature and Humidity are nil when the
// source message carried no numeric value.
type Reading struct {
	ID          int64    `json:"-"`
	StationID   string   `json:"stationId"`
	TS          int64    `json:"ts"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Raw         string   `json:"-"`
}

// StationSummary aggregates all readings of one station.
type StationSummary struct {
	StationID string `json:"stationId"`
	FirstTS   int64  `json:"firstTs"`
	LastTS    int64  `json:"lastTs"`
	Count     int64  `json:"count"`
}

// FilterMode selects query-time handling of implausible values.
type FilterMode string

const (
	FilterKeep FilterMode = "keep"
	FilterDrop FilterMode = "drop"
)

// ParseFilterMode maps the "bad" query parameter; empty means keep.
func ParseFilterMode(s string) (FilterMode, error) {
	switch s {
	case "", string(FilterKeep):
		return FilterKeep, nil
	case string(FilterDrop):
		return FilterDrop, nil
	default:
		return "", fmt.Errorf("invalid filter mode %q (allowed: keep, drop)", s)
	}
}

// HistoryQuery selects readings of one station with FromTS <= ts <= ToTS.
type HistoryQuery struct {
	StationID string
	FromTS    int64
	ToTS      int64
	Limit     int
	Filter    FilterMode
}

// IngestStats counts ingest outcomes since start and the live buffer fill.
type IngestStats struct {
	Stored         int64 `json:"stored"`
	Discarded      int64 `json:"discarded"`
	Buffered       int   `json:"buffered"`
	BufferCapacity int   `json:"bufferCapacity"`
}
