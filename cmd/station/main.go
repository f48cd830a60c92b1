package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/logging"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/station"
)

const appName = "weather-station"

var version = "dev"

func main() {
	cfg, err := station.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Config, version, appName).With("station_id", cfg.StationID)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := station.NewPublisher(cfg.Config, logger, nil)
	defer pub.Disconnect()

	if err := pub.Connect(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("connect failed", "err", err)
			stop()
			os.Exit(1)
		}
		return
	}

	gen := station.NewGenerator(cfg.StationID, seed(cfg.StationID))
	if err := station.Run(ctx, gen, pub, cfg.PublishInterval, logger); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		stop()
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// seed differs per station and per start.
func seed(stationID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(stationID))
	return h.Sum64() ^ uint64(time.Now().UnixNano())
}
