package postgres

import (
	"context"
	"fmt"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS stations (
    short_name TEXT PRIMARY KEY,
    station_id TEXT NOT NULL DEFAULT '',
    name       TEXT NOT NULL,
    capacity   INTEGER NOT NULL DEFAULT 0,
    location   GEOGRAPHY(POINT, 4326) NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
    ride_id          TEXT PRIMARY KEY,
    bike_type        TEXT NOT NULL DEFAULT '',
    start_station_id TEXT NOT NULL,
    end_station_id   TEXT NOT NULL,
    started_at       TIMESTAMPTZ NOT NULL,
    ended_at         TIMESTAMPTZ NOT NULL,
    is_member        BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS station_traffic (
    snapshot_id   TEXT NOT NULL,
    generated_at  TIMESTAMPTZ NOT NULL,
    time_filter   INTEGER NOT NULL,
    short_name    TEXT NOT NULL,
    departures    INTEGER NOT NULL,
    arrivals      INTEGER NOT NULL,
    total_traffic INTEGER NOT NULL,
    PRIMARY KEY (snapshot_id, short_name)
);

CREATE INDEX IF NOT EXISTS station_traffic_filter_idx
    ON station_traffic (time_filter, generated_at DESC);
`

// NewPool connects and pings the configured database.
func NewPool(ctx context.Context, cfg models.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
