package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/config"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/db"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/httpapi"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/migrate"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/mqtt"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	mqttOpts []mqtt.Option
	listener net.Listener
}

type Option func(*options)

// WithMQTTOptions forwards options to the connection supervisor.
func WithMQTTOptions(opts ...mqtt.Option) Option {
	return func(o *options) { o.mqttOpts = append(o.mqttOpts, opts...) }
}

// WithListener serves HTTP on l instead of listening on cfg.HTTPAddr.
func WithListener(l net.Listener) Option {
	return func(o *options) { o.listener = l }
}

// Run wires store, ingest and HTTP and blocks until ctx is done or a component fails.
// A storage failure during ingest is returned as an error.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"dbMaxOpenConns", cfg.DBMaxOpenConns,
		"dbMaxIdleConns", cfg.DBMaxIdleConns,
		"dbConnMaxLifetime", cfg.DBConnMaxLifetime,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"mqttClientId", cfg.MQTTClientID,
	)

	dialect, err := db.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}
	dbConn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn, dialect); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready", "driver", cfg.DBDriver)

	feature := weather.NewFeature(dbConn, dialect, cfg, logger)
	mux := httpapi.NewMux(dbConn, feature.Consumer)
	weather.RegisterFeature(mux, feature)

	// The supervisor never fails on an unreachable broker, so HTTP comes up regardless.
	supervisor := mqtt.NewSupervisor(cfg, feature.Consumer, logger.With("component", "mqtt"), o.mqttOpts...)
	if err := supervisor.Start(ctx); err != nil {
		return err
	}
	defer supervisor.Stop()

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		if o.listener != nil {
			logger.Info("http listening", "addr", o.listener.Addr().String())
			errCh <- srv.Serve(o.listener)
			return
		}
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-feature.Consumer.Err():
		logger.Error("ingest failed, shutting down", "error", err)
		runErr = err
	}

	logger.Info("mqtt disconnecting")
	supervisor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if runErr != nil {
		return runErr
	}
	return ctx.Err()
}
