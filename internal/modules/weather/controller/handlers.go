package controller

import (
	"log/slog"
	"net/http"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/utils"
)

func (c *weatherControllerImpl) handleHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r, c.now().UnixMilli())
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.repository.Query(r.Context(), q)
	if err != nil {
		if r.Context().Err() != nil {
			slog.Warn("history: request canceled", "station_id", q.StationID, "error", err)
			return
		}
		slog.Error("history: query failed", "station_id", q.StationID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	if readings == nil {
		readings = []types.Reading{}
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *weatherControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.StationSummary(r.Context())
	if err != nil {
		slog.Error("stations: summary failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	if stations == nil {
		stations = []types.StationSummary{}
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *weatherControllerImpl) handleLive(w http.ResponseWriter, r *http.Request) {
	stationID, limit, err := parseLiveQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings := []types.Reading{}
	if c.feed != nil {
		readings = c.feed.Recent(stationID, limit)
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

// handleLiveStations lists station ids present in the live feed, most recently seen first.
func (c *weatherControllerImpl) handleLiveStations(w http.ResponseWriter, r *http.Request) {
	stations := []string{}
	if c.feed != nil {
		stations = c.feed.Stations()
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}
