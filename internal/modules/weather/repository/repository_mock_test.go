package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/db"
	"github.com/BurgiSimon/m324-github-actions-weather-app/internal/modules/weather/types"
)

func setupMockDB(t *testing.T, dialect db.Dialect) (sqlmock.Sqlmock, WeatherRepository) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return mock, NewRepository(conn, dialect)
}

func TestAppend_StorageFailureSurfaces(t *testing.T) {
	mock, repo := setupMockDB(t, db.DialectSQLite)
	ioErr := errors.New("disk I/O error")

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO readings`)).
		WithArgs("WS-01", int64(42), sql.NullFloat64{Float64: 21.5, Valid: true}, sql.NullFloat64{}, "{}").
		WillReturnError(ioErr)

	_, err := repo.Append(context.Background(), types.Reading{StationID: "WS-01", TS: 42, Temperature: ptr(21.5), Raw: "{}"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ioErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_PostgresPlaceholders(t *testing.T) {
	mock, repo := setupMockDB(t, db.DialectPostgres)

	rows := sqlmock.NewRows([]string{"id", "station_id", "ts", "temperature", "humidity"}).
		AddRow(int64(1), "WS-01", int64(1000), 22.5, nil).
		AddRow(int64(2), "WS-01", int64(2000), nil, 48.0)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE station_id = $1`)+`(?s).*`+regexp.QuoteMeta(`LIMIT $9`)).
		WithArgs("WS-01", int64(0), int64(5000),
			types.TemperatureMin, types.TemperatureMax, types.TemperatureMissingCode,
			types.HumidityMin, types.HumidityMax, 1000).
		WillReturnRows(rows)

	got, err := repo.Query(context.Background(), types.HistoryQuery{
		StationID: "WS-01", FromTS: 0, ToTS: 5000, Filter: types.FilterDrop,
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Temperature)
	assert.Equal(t, 22.5, *got[0].Temperature)
	assert.Nil(t, got[0].Humidity)
	assert.Nil(t, got[1].Temperature)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_ClampsLimitBeforeStore(t *testing.T) {
	mock, repo := setupMockDB(t, db.DialectSQLite)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM readings`)).
		WithArgs("WS-01", int64(0), int64(10), types.MaxLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "station_id", "ts", "temperature", "humidity"}))

	got, err := repo.Query(context.Background(), types.HistoryQuery{StationID: "WS-01", ToTS: 10, Limit: 1_000_000})

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_RowErrorSurfaces(t *testing.T) {
	mock, repo := setupMockDB(t, db.DialectSQLite)
	rowErr := errors.New("read failed")

	rows := sqlmock.NewRows([]string{"id", "station_id", "ts", "temperature", "humidity"}).
		AddRow(int64(1), "WS-01", int64(1), nil, nil).
		RowError(0, rowErr)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM readings`)).WillReturnRows(rows)

	_, err := repo.Query(context.Background(), types.HistoryQuery{StationID: "WS-01", ToTS: 10})

	assert.ErrorIs(t, err, rowErr)
}

func TestStationSummary_QueryFailure(t *testing.T) {
	mock, repo := setupMockDB(t, db.DialectSQLite)
	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY station_id`)).WillReturnError(sql.ErrConnDone)

	_, err := repo.StationSummary(context.Background())

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
