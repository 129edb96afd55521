package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrisdamba/stationflow/internal/output"
	"github.com/chrisdamba/stationflow/internal/traffic"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stationflow",
	Short: "Aggregates bike-share station traffic by time of day",
	Long: `stationflow counts departures and arrivals per bike-share station, optionally
restricted to trips that start or end within an hour of a chosen time of day,
and writes the result to the console, files, Kafka or Postgres.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAggregate(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./stationflow.yaml)")

	pf := rootCmd.PersistentFlags()
	pf.String("stations", "", "Stations JSON source: path, http(s) URL, s3://bucket/key or postgres")
	pf.String("trips", "", "Trips CSV source: path, http(s) URL, s3://bucket/key or postgres")
	pf.String("time-zone", "America/New_York", "Time zone used to read trip timestamps")
	pf.Int("time", -1, "Minute of the day to filter on (0-1439), or -1 for any time")
	pf.Int("window", 60, "Half-width of the time window in minutes")
	pf.Bool("postgres-enabled", false, "Store snapshots in Postgres")
	bindFlag("stations_source", pf.Lookup("stations"))
	bindFlag("trips_source", pf.Lookup("trips"))
	bindFlag("time_zone", pf.Lookup("time-zone"))
	bindFlag("time_filter", pf.Lookup("time"))
	bindFlag("window_minutes", pf.Lookup("window"))
	bindFlag("postgres_enabled", pf.Lookup("postgres-enabled"))

	f := rootCmd.Flags()
	f.String("output-path", "", "Output directory (if not using Kafka or Postgres)")
	f.String("output-format", "json", "Output file format: json, csv or parquet")
	f.Bool("kafka-enabled", false, "Enable Kafka output")
	f.String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	bindFlag("output_path", f.Lookup("output-path"))
	bindFlag("output_format", f.Lookup("output-format"))
	bindFlag("kafka_enabled", f.Lookup("kafka-enabled"))
	bindFlag("kafka_broker_list", f.Lookup("kafka-broker-list"))
}

// bindFlag ties a flag to a config key. Flags only override the key when set.
func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		log.Fatalf("Failed to bind flag %s: %v", flag.Name, err)
	}
}

func initConfig() {
	// a missing .env is fine
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment from .env")
	}
}

func runAggregate(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	session := traffic.NewSession(traffic.NewAggregator(cfg.WindowMinutes))
	session.Replace(ds.Stations, ds.Trips)
	if err := session.SetFilter(cfg.Filter()); err != nil {
		return err
	}
	snapshot := session.Recompute()
	if len(snapshot.Stations) == 0 {
		log.Printf("No stations loaded, nothing to draw")
	}

	dest, err := output.NewDestination(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create output destination: %w", err)
	}
	if err := output.Publish(ctx, dest, cfg.KafkaTopic, snapshot); err != nil {
		dest.Close()
		return err
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("failed to close output destination: %w", err)
	}

	log.Printf("Snapshot %s: %d stations, max traffic %d", snapshot.ID, len(snapshot.Stations), snapshot.MaxTraffic)
	return nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
