package repositories

import (
	"context"

	"github.com/chrisdamba/stationflow/internal/models"
)

type StationRepository interface {
	BulkCreate(ctx context.Context, stations []models.Station) error
	GetAll(ctx context.Context) ([]models.Station, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type TripRepository interface {
	BulkCreate(ctx context.Context, trips []models.Trip) error
	GetAll(ctx context.Context) ([]models.Trip, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type TrafficRepository interface {
	SaveSnapshot(ctx context.Context, snapshot models.Snapshot) error
	Latest(ctx context.Context, filter models.TimeFilter) (*models.Snapshot, error)
}
