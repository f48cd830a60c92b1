package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/db"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/query-readings.sql
var queryReadingsSQL string

//go:embed sql/query-readings-plausible.sql
var queryPlausibleReadingsSQL string

//go:embed sql/station-summary.sql
var stationSummarySQL string

// WeatherRepository is the durable store of readings. Readings are append-only.
type WeatherRepository interface {
	// Append stores r and returns its id. Ids increase strictly in insertion order.
	Append(ctx context.Context, r types.Reading) (int64, error)
	// Query returns readings of q.StationID with q.FromTS <= ts <= q.ToTS ordered by ts, then id.
	Query(ctx context.Context, q types.HistoryQuery) ([]types.Reading, error)
	StationSummary(ctx context.Context) ([]types.StationSummary, error)
}

type repositoryImpl struct {
	db *sql.DB

	insertSQL    string
	querySQL     string
	plausibleSQL string
	summarySQL   string
}

func NewRepository(conn *sql.DB, dialect db.Dialect) WeatherRepository {
	return &repositoryImpl{
		db:           conn,
		insertSQL:    dialect.Rebind(insertReadingSQL),
		querySQL:     dialect.Rebind(queryReadingsSQL),
		plausibleSQL: dialect.Rebind(queryPlausibleReadingsSQL),
		summarySQL:   dialect.Rebind(stationSummarySQL),
	}
}

func (r *repositoryImpl) Append(ctx context.Context, rd types.Reading) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.insertSQL,
		rd.StationID,
		rd.TS,
		nullFloat(rd.Temperature),
		nullFloat(rd.Humidity),
		rd.Raw,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reading: %w", err)
	}
	return id, nil
}

func (r *repositoryImpl) Query(ctx context.Context, q types.HistoryQuery) ([]types.Reading, error) {
	limit := ClampLimit(q.Limit)

	var (
		rows *sql.Rows
		err  error
	)
	switch q.Filter {
	case types.FilterDrop:
		rows, err = r.db.QueryContext(ctx, r.plausibleSQL,
			q.StationID, q.FromTS, q.ToTS,
			types.TemperatureMin, types.TemperatureMax, types.TemperatureMissingCode,
			types.HumidityMin, types.HumidityMax,
			limit,
		)
	case types.FilterKeep, "":
		rows, err = r.db.QueryContext(ctx, r.querySQL, q.StationID, q.FromTS, q.ToTS, limit)
	default:
		return nil, fmt.Errorf("unknown filter mode %q", q.Filter)
	}
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	out := make([]types.Reading, 0, min(limit, 256))
	for rows.Next() {
		var (
			rec         types.Reading
			temperature sql.NullFloat64
			humidity    sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.StationID, &rec.TS, &temperature, &humidity); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		rec.Temperature = floatPtr(temperature)
		rec.Humidity = floatPtr(humidity)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) StationSummary(ctx context.Context) ([]types.StationSummary, error) {
	rows, err := r.db.QueryContext(ctx, r.summarySQL)
	if err != nil {
		return nil, fmt.Errorf("query station summary: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close station summary rows", "error", err)
		}
	}()

	out := []types.StationSummary{}
	for rows.Next() {
		var s types.StationSummary
		if err := rows.Scan(&s.StationID, &s.FirstTS, &s.LastTS, &s.Count); err != nil {
			return nil, fmt.Errorf("scan station summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate station summary: %w", err)
	}
	return out, nil
}

// ClampLimit bounds a requested row count to [1, MaxLimit]; non-positive means DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return types.DefaultLimit
	case limit > types.MaxLimit:
		return types.MaxLimit
	default:
		return limit
	}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
