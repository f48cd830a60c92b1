package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/utils"
)

const readinessTimeout = 2 * time.Second

// IngestStatus reports broker connectivity and ingest counters for /readyz.
type IngestStatus interface {
	IsConnected() bool
	Stats() types.IngestStats
}

type readiness struct {
	Status   string             `json:"status"`
	Database string             `json:"database"`
	MQTT     string             `json:"mqtt"`
	Ingest   *types.IngestStats `json:"ingest,omitempty"`
}

type healthchecker interface {
	handleHealth(w http.ResponseWriter, r *http.Request)
	handleReady(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db     *sql.DB
	ingest IngestStatus
}

func NewHealthchecker(db *sql.DB, ingest IngestStatus) healthchecker {
	return &healthcheckerImpl{db: db, ingest: ingest}
}

// handleHealth is liveness only; it never touches the store.
func (h *healthcheckerImpl) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *healthcheckerImpl) handleReady(w http.ResponseWriter, r *http.Request) {
	status, database := http.StatusOK, "up"

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if h.db == nil {
		status, database = http.StatusServiceUnavailable, "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		status, database = http.StatusServiceUnavailable, "down"
	}

	body := readiness{Status: "ok", Database: database, MQTT: "disconnected"}
	if status != http.StatusOK {
		body.Status = "unavailable"
	}
	if h.ingest != nil {
		if h.ingest.IsConnected() {
			body.MQTT = "connected"
		}
		stats := h.ingest.Stats()
		body.Ingest = &stats
	}
	utils.WriteJSON(w, status, body)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, ingest IngestStatus) {
	healthchecker := NewHealthchecker(db, ingest)
	mux.HandleFunc("GET /health", healthchecker.handleHealth)
	mux.HandleFunc("GET /readyz", healthchecker.handleReady)
}
