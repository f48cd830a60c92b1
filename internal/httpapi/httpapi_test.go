package httpapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/config"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
)

type ingestStub struct {
	connected bool
	stats     types.IngestStats
}

func (s ingestStub) IsConnected() bool { return s.connected }

func (s ingestStub) Stats() types.IngestStats { return s.stats }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestServer(t *testing.T, db *sql.DB, ingest IngestStatus) (*httptest.Server, *syncBuffer) {
	t.Helper()

	logs := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	srv := NewServer(config.Config{HTTPAddr: ":0"}, NewMux(db, ingest), logger)
	ts := httptest.NewServer(srv.Handler)

	t.Cleanup(ts.Close)
	return ts, logs
}

func mustGetJSON[T any](t *testing.T, client *http.Client, url string, out *T) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return resp
}

func newPingMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestHealth_NoStoreAccess(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	var body map[string]bool
	resp := mustGetJSON(t, ts.Client(), ts.URL+"/health", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	if !body["ok"] {
		t.Fatalf("body=%v want ok=true", body)
	}
}

func TestReady(t *testing.T) {
	t.Run("store up, broker connected", func(t *testing.T) {
		db, mock := newPingMock(t)
		mock.ExpectPing()
		stats := types.IngestStats{Stored: 7, Discarded: 2, Buffered: 7, BufferCapacity: 100}
		ts, _ := newTestServer(t, db, ingestStub{connected: true, stats: stats})

		var body readiness
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/readyz", &body)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
		}
		if body.Status != "ok" || body.Database != "up" || body.MQTT != "connected" {
			t.Fatalf("body=%+v", body)
		}
		if body.Ingest == nil || *body.Ingest != stats {
			t.Fatalf("ingest=%+v want %+v", body.Ingest, stats)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations: %v", err)
		}
	})

	t.Run("broker down does not fail readiness", func(t *testing.T) {
		db, mock := newPingMock(t)
		mock.ExpectPing()
		ts, _ := newTestServer(t, db, ingestStub{})

		var body readiness
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/readyz", &body)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
		}
		if body.MQTT != "disconnected" {
			t.Fatalf("mqtt=%q want disconnected", body.MQTT)
		}
	})

	t.Run("store down", func(t *testing.T) {
		db, mock := newPingMock(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		ts, _ := newTestServer(t, db, ingestStub{connected: true})

		var body readiness
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/readyz", &body)

		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusServiceUnavailable)
		}
		if body.Status != "unavailable" || body.Database != "down" {
			t.Fatalf("body=%+v", body)
		}
	})

	t.Run("no store configured", func(t *testing.T) {
		ts, _ := newTestServer(t, nil, nil)

		var body readiness
		resp := mustGetJSON(t, ts.Client(), ts.URL+"/readyz", &body)

		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusServiceUnavailable)
		}
		if body.Ingest != nil {
			t.Fatalf("ingest=%+v want omitted", body.Ingest)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	ts, logs := newTestServer(t, nil, nil)

	resp, err := ts.Client().Get(ts.URL + "/health?verbose=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()

	resp, err = ts.Client().Get(ts.URL + "/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines=%d want=2: %s", len(lines), logs.String())
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode log: %v", err)
	}

	if first["msg"] != "http request" || first["method"] != "GET" || first["path"] != "/health" {
		t.Errorf("first log=%v", first)
	}
	if first["query"] != "verbose=1" || first["status"] != float64(http.StatusOK) {
		t.Errorf("first log=%v", first)
	}
	if _, ok := first["duration_ms"]; !ok {
		t.Errorf("first log missing duration_ms: %v", first)
	}
	if second["status"] != float64(http.StatusNotFound) {
		t.Errorf("second status=%v want 404", second["status"])
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(config.Config{HTTPAddr: "127.0.0.1:3000"}, http.NewServeMux(), slog.New(slog.DiscardHandler))
	if srv.Addr != "127.0.0.1:3000" {
		t.Errorf("Addr=%q", srv.Addr)
	}
	if srv.ReadHeaderTimeout <= 0 {
		t.Errorf("ReadHeaderTimeout not set")
	}
}
