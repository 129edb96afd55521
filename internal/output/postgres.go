package output

import (
	"context"
	"fmt"
	"time"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/chrisdamba/stationflow/internal/repositories"
)

// PostgresOutput stores snapshots in the station_traffic table.
type PostgresOutput struct {
	repo  repositories.TrafficRepository
	close func()
}

func NewPostgresOutput(repo repositories.TrafficRepository, close func()) *PostgresOutput {
	return &PostgresOutput{repo: repo, close: close}
}

func (p *PostgresOutput) WriteSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	if err := p.repo.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// WriteMessage stores a single record as a one-station snapshot.
func (p *PostgresOutput) WriteMessage(topic string, msg []byte) error {
	rec, err := decodeRecord(msg)
	if err != nil {
		return err
	}
	snap := models.Snapshot{
		ID:          rec.SnapshotID,
		GeneratedAt: time.Unix(rec.Timestamp, 0).UTC(),
		Filter:      models.TimeFilter(rec.TimeFilter),
		Stations: []models.StationTraffic{{
			Station:      models.Station{ShortName: rec.ShortName, Name: rec.Name, Lat: rec.Lat, Lon: rec.Lon},
			Departures:   int(rec.Departures),
			Arrivals:     int(rec.Arrivals),
			TotalTraffic: int(rec.TotalTraffic),
		}},
		MaxTraffic: int(rec.TotalTraffic),
	}
	return p.WriteSnapshot(context.Background(), snap)
}

func (p *PostgresOutput) Close() error {
	if p.close != nil {
		p.close()
		p.close = nil
	}
	return nil
}
