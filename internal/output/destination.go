package output

import (
	"context"
	"fmt"
	"log"

	"github.com/chrisdamba/stationflow/internal/cloudwriter"
	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/chrisdamba/stationflow/internal/repositories/postgres"
)

// NewDestination picks the sink from config: Kafka, then Postgres, then files
// under OutputPath (or cloud storage), falling back to the console.
func NewDestination(ctx context.Context, cfg *models.Config) (OutputDestination, error) {
	switch {
	case cfg.KafkaEnabled:
		k, err := NewKafkaOutput(cfg)
		if err != nil {
			return nil, err
		}
		return k, nil

	case cfg.PostgresEnabled:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Printf("Writing snapshots to Postgres database %s", cfg.Database.DBName)
		return NewPostgresOutput(postgres.NewTrafficRepository(pool), pool.Close), nil

	case cfg.OutputDestination == models.OutputDestinationCloud:
		if cfg.OutputFormat != models.OutputFormatParquet {
			return nil, fmt.Errorf("cloud output supports the parquet format only, got %q", cfg.OutputFormat)
		}
		var factory cloudwriter.CloudWriterFactory
		switch cfg.CloudStorage.Provider {
		case "s3", "":
			f, err := cloudwriter.NewS3WriterFactory(ctx, cfg.CloudStorage.Region)
			if err != nil {
				return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
			}
			factory = f
		default:
			return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.CloudStorage.Provider)
		}
		return NewParquetOutput(cfg.OutputPath, cfg.OutputFolder, factory, cfg.CloudStorage.BucketName), nil

	case cfg.OutputPath != "":
		switch cfg.OutputFormat {
		case models.OutputFormatParquet:
			return NewParquetOutput(cfg.OutputPath, cfg.OutputFolder, nil, ""), nil
		case models.OutputFormatJSON, "":
			return NewJSONOutput(cfg.OutputPath, cfg.OutputFolder), nil
		case models.OutputFormatCSV:
			return NewCSVOutput(cfg.OutputPath, cfg.OutputFolder), nil
		default:
			return nil, fmt.Errorf("unsupported output format: %s", cfg.OutputFormat)
		}
	}
	return NewConsoleOutput(nil), nil
}
