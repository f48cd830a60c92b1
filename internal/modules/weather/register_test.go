package weather

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/config"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/db"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/migrate"
)

type historyRow struct {
	TS          int64    `json:"ts"`
	StationID   string   `json:"stationId"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

func newFeature(t *testing.T) (*Feature, *httptest.Server) {
	t.Helper()
	cfg := config.Config{
		DBDriver:       "sqlite3",
		SQLitePath:     filepath.Join(t.TempDir(), "weather.db"),
		DBMaxOpenConns: 4,
		DBMaxIdleConns: 4,
		LiveBufferSize: 100,
	}
	conn, err := db.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, migrate.Run(context.Background(), conn, db.DialectSQLite))

	mux := http.NewServeMux()
	f := NewFeature(conn, db.DialectSQLite, cfg, slog.New(slog.DiscardHandler))
	RegisterFeature(mux, f)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return f, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func publish(f *Feature, payload string) {
	f.Consumer.OnMessage(context.Background(), "weather", []byte(payload))
}

func TestFeature_PublishedReadingIsQueryable(t *testing.T) {
	f, ts := newFeature(t)

	publish(f, `{"stationId":"WS-01","timestamp":1704067200000,"temperature":22.5,"humidity":48}`)

	var rows []historyRow
	status := getJSON(t, ts.URL+"/api/history?stationId=WS-01&from=1704067200000&to=1704067200000", &rows)

	require.Equal(t, http.StatusOK, status)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1704067200000), rows[0].TS)
	assert.Equal(t, "WS-01", rows[0].StationID)
	require.NotNil(t, rows[0].Temperature)
	assert.Equal(t, 22.5, *rows[0].Temperature)
	require.NotNil(t, rows[0].Humidity)
	assert.Equal(t, 48.0, *rows[0].Humidity)
}

func TestFeature_MalformedThenValidMessage(t *testing.T) {
	f, ts := newFeature(t)

	publish(f, `{not json`)
	publish(f, `{"stationId":"WS-01","timestamp":1000,"temperature":20}`)

	var rows []historyRow
	getJSON(t, ts.URL+"/api/history?stationId=WS-01&from=0&to=2000", &rows)
	assert.Len(t, rows, 1)

	var stations []map[string]any
	getJSON(t, ts.URL+"/api/stations", &stations)
	require.Len(t, stations, 1)
	assert.Equal(t, "WS-01", stations[0]["stationId"])
	assert.Equal(t, float64(1), stations[0]["count"])
}

func TestFeature_FaultySensorCodeAndDropFilter(t *testing.T) {
	f, ts := newFeature(t)

	publish(f, `{"stationId":"WS-02","timestamp":1000,"temperature":-999,"humidity":40}`)
	publish(f, `{"stationId":"WS-02","timestamp":2000,"temperature":21,"humidity":150}`)
	publish(f, `{"stationId":"WS-02","timestamp":3000,"temperature":"n/a","humidity":50}`)

	var keep []historyRow
	getJSON(t, ts.URL+"/api/history?stationId=WS-02&from=0&to=5000&bad=keep", &keep)
	require.Len(t, keep, 3)
	assert.Equal(t, -999.0, *keep[0].Temperature)
	assert.Nil(t, keep[2].Temperature)

	var drop []historyRow
	getJSON(t, ts.URL+"/api/history?stationId=WS-02&from=0&to=5000&bad=drop", &drop)
	require.Len(t, drop, 2)
	assert.Equal(t, int64(1000), drop[0].TS)
	assert.Equal(t, int64(3000), drop[1].TS)
}

func TestFeature_LiveFeedFollowsIngest(t *testing.T) {
	f, ts := newFeature(t)

	publish(f, `{"stationId":"WS-01","timestamp":1000}`)
	publish(f, `{"stationId":"WS-02","timestamp":2000}`)

	var rows []historyRow
	getJSON(t, ts.URL+"/api/live", &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "WS-02", rows[0].StationID)
	assert.Equal(t, 2, f.Feed.Len())
}
