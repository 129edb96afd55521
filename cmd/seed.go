package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/chrisdamba/stationflow/internal/loader"
	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/chrisdamba/stationflow/internal/repositories/postgres"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const seedBatchSize = 1000

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the station and trip sources into Postgres",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := seed(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seed(ctx context.Context, cfg *models.Config) error {
	if loader.UsesPostgres(cfg.StationsSource, cfg.TripsSource) {
		return fmt.Errorf("seed needs file, URL or S3 sources, not %q", models.SourcePostgres)
	}

	ld, closeLoader, err := newLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	ds, err := ld.Load(ctx, cfg.StationsSource, cfg.TripsSource)
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	stationRepo := postgres.NewStationRepository(pool)
	tripRepo := postgres.NewTripRepository(pool)

	if err := tripRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := stationRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := stationRepo.BulkCreate(ctx, ds.Stations); err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(ds.Trips)), "seeding trips")
	for start := 0; start < len(ds.Trips); start += seedBatchSize {
		end := start + seedBatchSize
		if end > len(ds.Trips) {
			end = len(ds.Trips)
		}
		if err := tripRepo.BulkCreate(ctx, ds.Trips[start:end]); err != nil {
			return err
		}
		_ = bar.Add(end - start)
	}
	_ = bar.Finish()

	stations, err := stationRepo.Count(ctx)
	if err != nil {
		return err
	}
	trips, err := tripRepo.Count(ctx)
	if err != nil {
		return err
	}
	log.Printf("Seeded %d stations and %d trips into %s", stations, trips, cfg.Database.DBName)
	return nil
}
