package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/chrisdamba/stationflow/internal/factories"
	"github.com/chrisdamba/stationflow/internal/loader"
	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic stations.json and trips.csv",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := generate(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	f := generateCmd.Flags()
	f.Int64("seed", 42, "Random seed")
	f.Int("station-count", 60, "Number of stations")
	f.Int("trip-count", 5000, "Number of trips")
	f.String("stations-file", "stations.json", "Stations output file")
	f.String("trips-file", "trips.csv", "Trips output file")
	bindFlag("generator.seed", f.Lookup("seed"))
	bindFlag("generator.stations", f.Lookup("station-count"))
	bindFlag("generator.trips", f.Lookup("trip-count"))
	bindFlag("generator.stations_file", f.Lookup("stations-file"))
	bindFlag("generator.trips_file", f.Lookup("trips-file"))
	rootCmd.AddCommand(generateCmd)
}

func generate(cfg *models.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	gen := cfg.Generator
	day := gen.Date.In(loc)

	stations := factories.NewStationFactory(gen.Seed).CreateStations(&gen)

	bar := progressbar.Default(int64(gen.Trips), "generating trips")
	trips, err := factories.NewTripFactory(gen.Seed).CreateTrips(stations, day, gen.Trips, func() {
		_ = bar.Add(1)
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()

	if err := writeFile(gen.StationsFile, func(f *os.File) error { return loader.WriteStations(f, stations) }); err != nil {
		return err
	}
	if err := writeFile(gen.TripsFile, func(f *os.File) error { return loader.WriteTrips(f, trips) }); err != nil {
		return err
	}
	log.Printf("Wrote %d stations to %s and %d trips to %s", len(stations), gen.StationsFile, len(trips), gen.TripsFile)
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
