package controller

import (
	"net/http"
	"time"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/live"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/repository"
)

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	repository repository.WeatherRepository
	feed       *live.Feed
	now        func() time.Time
}

// NewWeatherController serves history and station summaries from repository and recent
// readings from feed. feed may be nil, in which case /api/live is always empty.
func NewWeatherController(repository repository.WeatherRepository, feed *live.Feed) WeatherController {
	return &weatherControllerImpl{repository: repository, feed: feed, now: time.Now}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/history", c.handleHistory)
	mux.HandleFunc("GET /api/stations", c.handleStations)
	mux.HandleFunc("GET /api/live", c.handleLive)
	mux.HandleFunc("GET /api/live/stations", c.handleLiveStations)
}
