package cmd

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chrisdamba/stationflow/internal/loader"
	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/chrisdamba/stationflow/internal/repositories/postgres"
)

func loadConfig() (*models.Config, error) {
	cfg, err := models.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// newLoader wires the S3 client and Postgres repositories only when a source
// needs them. The returned func releases the pool.
func newLoader(ctx context.Context, cfg *models.Config) (*loader.Loader, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	ld := loader.New(cfg.HTTPTimeout, loc)
	closeFn := func() {}

	if loader.UsesS3(cfg.StationsSource, cfg.TripsSource) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.CloudStorage.Region))
		if err != nil {
			return nil, nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
		ld.S3 = s3.NewFromConfig(awsCfg)
	}

	if loader.UsesPostgres(cfg.StationsSource, cfg.TripsSource) {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		ld.Stations = postgres.NewStationRepository(pool)
		ld.Trips = postgres.NewTripRepository(pool)
		closeFn = pool.Close
	}
	return ld, closeFn, nil
}
