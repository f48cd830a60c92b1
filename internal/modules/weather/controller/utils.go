package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/utils"
)

const defaultLiveLimit = 50

// parseHistoryQuery validates /api/history parameters. nowMillis is the default upper bound.
func parseHistoryQuery(r *http.Request, nowMillis int64) (types.HistoryQuery, error) {
	q := r.URL.Query()

	out := types.HistoryQuery{
		StationID: q.Get("stationId"),
		FromTS:    0,
		ToTS:      nowMillis,
		Limit:     types.DefaultLimit,
	}
	if out.StationID == "" {
		return types.HistoryQuery{}, errors.New("missing 'stationId'")
	}

	if s := q.Get("from"); s != "" {
		ts, ok := utils.ParseEpochMillis(s)
		if !ok {
			return types.HistoryQuery{}, errors.New("invalid 'from' (expected ISO-8601 or epoch milliseconds)")
		}
		out.FromTS = ts
	}
	if s := q.Get("to"); s != "" {
		ts, ok := utils.ParseEpochMillis(s)
		if !ok {
			return types.HistoryQuery{}, errors.New("invalid 'to' (expected ISO-8601 or epoch milliseconds)")
		}
		out.ToTS = ts
	}
	if out.FromTS > out.ToTS {
		return types.HistoryQuery{}, errors.New("'from' must be <= 'to'")
	}

	if s := q.Get("limit"); s != "" {
		n, err := parsePositiveInt(s, "limit")
		if err != nil {
			return types.HistoryQuery{}, err
		}
		out.Limit = min(n, types.MaxLimit)
	}

	mode, err := types.ParseFilterMode(q.Get("bad"))
	if err != nil {
		return types.HistoryQuery{}, errors.New("invalid 'bad' (allowed: keep, drop)")
	}
	out.Filter = mode

	return out, nil
}

func parseLiveQuery(r *http.Request) (stationID string, limit int, err error) {
	q := r.URL.Query()
	limit = defaultLiveLimit
	if s := q.Get("limit"); s != "" {
		limit, err = parsePositiveInt(s, "limit")
		if err != nil {
			return "", 0, err
		}
	}
	return q.Get("stationId"), limit, nil
}

func parsePositiveInt(s, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid '%s' (expected integer)", name)
	}
	if n <= 0 {
		return 0, fmt.Errorf("'%s' must be > 0", name)
	}
	return n, nil
}
