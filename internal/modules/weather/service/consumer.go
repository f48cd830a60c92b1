package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/live"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/repository"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
)

// Consumer turns broker deliveries into stored readings. It is driven by the connection
// supervisor, which calls OnMessage for one message at a time.
type Consumer struct {
	repo   repository.WeatherRepository
	feed   *live.Feed
	logger *slog.Logger
	now    func() time.Time

	connected atomic.Bool
	stored    atomic.Int64
	discarded atomic.Int64
	failed    atomic.Bool

	errCh chan error
}

type Option func(*Consumer)

// WithClock replaces the arrival-time source used for payloads without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Consumer) { c.now = now }
}

// NewConsumer builds a consumer. feed may be nil.
func NewConsumer(repo repository.WeatherRepository, feed *live.Feed, logger *slog.Logger, opts ...Option) *Consumer {
	c := &Consumer{
		repo:   repo,
		feed:   feed,
		logger: logger,
		now:    time.Now,
		errCh:  make(chan error, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) OnConnected() {
	c.connected.Store(true)
	c.logger.Info("ingest consumer online")
}

func (c *Consumer) OnConnectionLost(err error) {
	c.connected.Store(false)
	c.logger.Warn("ingest consumer offline", "error", err)
}

// OnMessage stores one payload. Unparseable payloads are logged and dropped. A storage failure
// is reported on Err unless ctx was canceled; deliveries after that are ignored.
func (c *Consumer) OnMessage(ctx context.Context, topic string, payload []byte) {
	if c.failed.Load() {
		return
	}

	reading, err := Decode(payload, c.now())
	if err != nil {
		c.discarded.Add(1)
		c.logger.Warn("discarding telemetry message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}

	id, err := c.repo.Append(ctx, reading)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Warn("append interrupted by shutdown", "station_id", reading.StationID, "error", err)
			return
		}
		c.logger.Error("failed to store reading", "station_id", reading.StationID, "error", err)
		c.fail(fmt.Errorf("store reading from %s: %w", reading.StationID, err))
		return
	}
	reading.ID = id
	c.stored.Add(1)

	if c.feed != nil {
		c.feed.Push(reading)
	}

	c.logger.Debug("stored telemetry",
		"id", id,
		"station_id", reading.StationID,
		"ts", reading.TS,
	)
}

// Err delivers the first fatal storage error.
func (c *Consumer) Err() <-chan error {
	return c.errCh
}

// IsConnected reports the last connectivity event seen from the supervisor.
func (c *Consumer) IsConnected() bool {
	return c.connected.Load()
}

// Stats reports stored and discarded message counts and the live buffer fill.
func (c *Consumer) Stats() types.IngestStats {
	stats := types.IngestStats{
		Stored:    c.stored.Load(),
		Discarded: c.discarded.Load(),
	}
	if c.feed != nil {
		stats.Buffered = c.feed.Len()
		stats.BufferCapacity = c.feed.Capacity()
	}
	return stats
}

func (c *Consumer) fail(err error) {
	if !c.failed.CompareAndSwap(false, true) {
		return
	}
	select {
	case c.errCh <- err:
	default:
	}
}
