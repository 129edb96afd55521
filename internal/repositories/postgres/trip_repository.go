package postgres

import (
	"context"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TripRepository struct {
	pool *pgxpool.Pool
}

func NewTripRepository(pool *pgxpool.Pool) *TripRepository {
	return &TripRepository{pool: pool}
}

var tripColumns = []string{
	"ride_id", "bike_type", "start_station_id", "end_station_id",
	"started_at", "ended_at", "is_member",
}

// BulkCreate streams trips with COPY; trip files run to hundreds of
// thousands of rows.
func (r *TripRepository) BulkCreate(ctx context.Context, trips []models.Trip) error {
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"trips"},
		tripColumns,
		pgx.CopyFromSlice(len(trips), func(i int) ([]any, error) {
			t := trips[i]
			return []any{t.RideID, t.BikeType, t.StartStationID, t.EndStationID, t.StartedAt, t.EndedAt, t.IsMember}, nil
		}),
	)
	return err
}

func (r *TripRepository) GetAll(ctx context.Context) ([]models.Trip, error) {
	query := `
        SELECT ride_id, bike_type, start_station_id, end_station_id, started_at, ended_at, is_member
        FROM trips
        ORDER BY started_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(&t.RideID, &t.BikeType, &t.StartStationID, &t.EndStationID, &t.StartedAt, &t.EndedAt, &t.IsMember); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (r *TripRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trips").Scan(&count)
	return count, err
}

func (r *TripRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "TRUNCATE TABLE trips")
	return err
}
