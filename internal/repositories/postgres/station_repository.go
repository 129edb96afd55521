package postgres

import (
	"context"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StationRepository struct {
	pool *pgxpool.Pool
}

func NewStationRepository(pool *pgxpool.Pool) *StationRepository {
	return &StationRepository{pool: pool}
}

func (r *StationRepository) BulkCreate(ctx context.Context, stations []models.Station) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmt := `
        INSERT INTO stations (short_name, station_id, name, capacity, location)
        VALUES ($1, $2, $3, $4, ST_GeogFromText($5))
        ON CONFLICT (short_name) DO UPDATE SET
            station_id = EXCLUDED.station_id,
            name       = EXCLUDED.name,
            capacity   = EXCLUDED.capacity,
            location   = EXCLUDED.location`

	for _, station := range stations {
		_, err = tx.Exec(ctx, stmt,
			station.ShortName,
			station.StationID,
			station.Name,
			station.Capacity,
			station.Location().WKT(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *StationRepository) GetAll(ctx context.Context) ([]models.Station, error) {
	query := `
        SELECT
            short_name, station_id, name, capacity,
            ST_AsText(location) AS location
        FROM stations
        ORDER BY short_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var s models.Station
		var loc models.Location
		if err := rows.Scan(&s.ShortName, &s.StationID, &s.Name, &s.Capacity, &loc); err != nil {
			return nil, err
		}
		s.Lat, s.Lon = loc.Lat, loc.Lon
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

func (r *StationRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stations").Scan(&count)
	return count, err
}

func (r *StationRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "TRUNCATE TABLE stations")
	return err
}
