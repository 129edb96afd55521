package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TrafficRepository struct {
	pool *pgxpool.Pool
}

func NewTrafficRepository(pool *pgxpool.Pool) *TrafficRepository {
	return &TrafficRepository{pool: pool}
}

func (r *TrafficRepository) SaveSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	batch := &pgx.Batch{}
	for _, st := range snapshot.Stations {
		batch.Queue(`
            INSERT INTO station_traffic (
                snapshot_id, generated_at, time_filter, short_name,
                departures, arrivals, total_traffic
            ) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			snapshot.ID,
			snapshot.GeneratedAt,
			int(snapshot.Filter),
			st.ShortName,
			st.Departures,
			st.Arrivals,
			st.TotalTraffic,
		)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", snapshot.ID, err)
	}
	return tx.Commit(ctx)
}

// Latest returns the most recent snapshot stored for filter, joined with the
// station table. It returns nil when none exists.
func (r *TrafficRepository) Latest(ctx context.Context, filter models.TimeFilter) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := r.pool.QueryRow(ctx, `
        SELECT snapshot_id, generated_at
        FROM station_traffic
        WHERE time_filter = $1
        ORDER BY generated_at DESC
        LIMIT 1`, int(filter)).Scan(&snap.ID, &snap.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Filter = filter

	rows, err := r.pool.Query(ctx, `
        SELECT
            t.short_name, COALESCE(s.station_id, ''), COALESCE(s.name, ''), COALESCE(s.capacity, 0),
            COALESCE(ST_Y(s.location::geometry), 0), COALESCE(ST_X(s.location::geometry), 0),
            t.departures, t.arrivals, t.total_traffic
        FROM station_traffic t
        LEFT JOIN stations s ON s.short_name = t.short_name
        WHERE t.snapshot_id = $1
        ORDER BY t.short_name`, snap.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st models.StationTraffic
		err := rows.Scan(
			&st.ShortName, &st.StationID, &st.Name, &st.Capacity,
			&st.Lat, &st.Lon,
			&st.Departures, &st.Arrivals, &st.TotalTraffic,
		)
		if err != nil {
			return nil, err
		}
		if st.TotalTraffic > snap.MaxTraffic {
			snap.MaxTraffic = st.TotalTraffic
		}
		snap.Stations = append(snap.Stations, st)
	}
	return &snap, rows.Err()
}
