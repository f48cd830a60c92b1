package station

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type publisher interface {
	Publish(Payload) error
}

// Run publishes one reading per interval until ctx is done. Publish failures are logged and
// the loop continues.
func Run(ctx context.Context, gen *Generator, pub publisher, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		payload := gen.Next(time.Now())
		if err := pub.Publish(payload); err != nil {
			if errors.Is(err, ErrNotConnected) {
				logger.Warn("skipping reading while offline", "station_id", payload.StationID)
			} else {
				logger.Error("publish failed", "station_id", payload.StationID, "error", err)
			}
		} else {
			logger.Info("published",
				"station_id", payload.StationID,
				"temperature", payload.Temperature,
				"humidity", payload.Humidity,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
