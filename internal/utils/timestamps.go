package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// maxEpochMillis is the largest magnitude an ECMAScript Date accepts; publishers using
// JavaScript cannot produce anything outside it.
const maxEpochMillis = 8.64e15

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseEpochMillis accepts an integer millisecond value or an ISO-8601 date / date-time.
// Date-times without a zone are read as UTC.
func ParseEpochMillis(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if math.Abs(float64(n)) > maxEpochMillis {
			return 0, false
		}
		return n, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// MillisFromFloat converts a JSON number of milliseconds, truncating toward zero.
func MillisFromFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxEpochMillis {
		return 0, false
	}
	return int64(f), true
}
