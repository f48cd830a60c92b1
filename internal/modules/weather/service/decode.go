package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/utils"
)

// ErrNotObject is returned for payloads that are valid JSON but not a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Decode normalizes one telemetry payload into a Reading. now is used when the payload
// carries no usable timestamp. Malformed measurement values become nil, never 0.
func Decode(payload []byte, now time.Time) (types.Reading, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return types.Reading{}, fmt.Errorf("parse payload: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return types.Reading{}, errors.New("parse payload: trailing data after JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return types.Reading{}, ErrNotObject
	}

	// raw keeps the publisher's key order and escaping; only whitespace is removed.
	var raw bytes.Buffer
	if err := json.Compact(&raw, payload); err != nil {
		return types.Reading{}, fmt.Errorf("compact raw payload: %w", err)
	}

	return types.Reading{
		StationID:   stationID(obj["stationId"]),
		TS:          timestamp(obj["timestamp"], now),
		Temperature: number(obj["temperature"]),
		Humidity:    number(obj["humidity"]),
		Raw:         raw.String(),
	}, nil
}

func stationID(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return types.UnknownStationID
}

func timestamp(v any, now time.Time) int64 {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			if ms, ok := utils.MillisFromFloat(f); ok {
				return ms
			}
		}
	case string:
		if ms, ok := utils.ParseEpochMillis(t); ok {
			return ms
		}
	}
	return now.UnixMilli()
}

func number(v any) *float64 {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}
