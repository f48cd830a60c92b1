package weather

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/config"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/db"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/controller"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/live"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/repository"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/service"
)

// Feature is the wired weather module. Consumer must be attached to a broker connection by the caller.
type Feature struct {
	Repository repository.WeatherRepository
	Consumer   *service.Consumer
	Feed       *live.Feed

	controller controller.WeatherController
}

func NewFeature(conn *sql.DB, dialect db.Dialect, cfg config.Config, logger *slog.Logger) *Feature {
	weatherRepository := repository.NewRepository(conn, dialect)
	feed := live.NewFeed(cfg.LiveBufferSize)

	return &Feature{
		Repository: weatherRepository,
		Consumer:   service.NewConsumer(weatherRepository, feed, logger.With("component", "ingest")),
		Feed:       feed,
		controller: controller.NewWeatherController(weatherRepository, feed),
	}
}

func RegisterFeature(mux *http.ServeMux, f *Feature) {
	f.controller.RegisterRoutes(mux)
}
