package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
)

func Test_parseHistoryQuery(t *testing.T) {
	const now = int64(1_750_000_000_000)

	tests := []struct {
		name    string
		query   string
		want    types.HistoryQuery
		wantErr bool
	}{
		{
			name:  "defaults",
			query: "stationId=WS-01",
			want:  types.HistoryQuery{StationID: "WS-01", ToTS: now, Limit: types.DefaultLimit, Filter: types.FilterKeep},
		},
		{
			name:  "zone-less date-time is utc",
			query: "stationId=WS-01&from=2024-01-01T00:00:00&to=2024-01-02",
			want:  types.HistoryQuery{StationID: "WS-01", FromTS: 1704067200000, ToTS: 1704153600000, Limit: types.DefaultLimit, Filter: types.FilterKeep},
		},
		{
			name:  "equal bounds allowed",
			query: "stationId=WS-01&from=5&to=5&limit=1&bad=keep",
			want:  types.HistoryQuery{StationID: "WS-01", FromTS: 5, ToTS: 5, Limit: 1, Filter: types.FilterKeep},
		},
		{
			name:  "negative epoch",
			query: "stationId=WS-01&from=-100&to=0",
			want:  types.HistoryQuery{StationID: "WS-01", FromTS: -100, ToTS: 0, Limit: types.DefaultLimit, Filter: types.FilterKeep},
		},
		{
			name:  "limit clamped",
			query: "stationId=WS-01&limit=10001",
			want:  types.HistoryQuery{StationID: "WS-01", ToTS: now, Limit: types.MaxLimit, Filter: types.FilterKeep},
		},
		{name: "missing station", query: "from=0", wantErr: true},
		{name: "empty station", query: "stationId=", wantErr: true},
		{name: "from in the future past default to", query: "stationId=WS-01&from=" + "1750000000001", wantErr: true},
		{name: "limit float", query: "stationId=WS-01&limit=1.5", wantErr: true},
		{name: "bad uppercase", query: "stationId=WS-01&bad=DROP", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/history?"+tt.query, nil)
			got, err := parseHistoryQuery(req, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHistoryQuery() err = %v; wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseHistoryQuery() = %+v; want %+v", got, tt.want)
			}
		})
	}
}

func Test_parseLiveQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/live?stationId=WS-03&limit=7", nil)
	station, limit, err := parseLiveQuery(req)
	if err != nil || station != "WS-03" || limit != 7 {
		t.Errorf("parseLiveQuery() = %q, %d, %v; want WS-03, 7, nil", station, limit, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/live", nil)
	station, limit, err = parseLiveQuery(req)
	if err != nil || station != "" || limit != defaultLiveLimit {
		t.Errorf("parseLiveQuery() = %q, %d, %v; want \"\", %d, nil", station, limit, err, defaultLiveLimit)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/live?limit=0", nil)
	if _, _, err := parseLiveQuery(req); err == nil {
		t.Error("parseLiveQuery(limit=0) err = nil; want error")
	}
}
