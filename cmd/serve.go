package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/chrisdamba/stationflow/internal/repositories/postgres"
	"github.com/chrisdamba/stationflow/internal/server"
	"github.com/chrisdamba/stationflow/internal/traffic"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve aggregated station traffic over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ld, closeLoader, err := newLoader(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeLoader()

		session := traffic.NewSession(traffic.NewAggregator(cfg.WindowMinutes))
		if err := session.SetFilter(cfg.Filter()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		srv := server.New(cfg, session, ld)
		if cfg.PostgresEnabled {
			pool, err := postgres.NewPool(ctx, cfg.Database)
			if err != nil {
				log.Fatalf("Failed to connect to database: %v", err)
			}
			defer pool.Close()
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatalf("Failed to migrate database: %v", err)
			}
			srv.WithHistory(postgres.NewTrafficRepository(pool))
		}
		// the API stays up without data; POST /api/reload retries
		if err := srv.Reload(ctx); err != nil {
			log.Printf("Initial load failed: %v", err)
		}

		if err := srv.Run(ctx); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP port")
	bindFlag("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}
