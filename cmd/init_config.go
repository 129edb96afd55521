package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a config file populated with the defaults",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "stationflow.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := writeDefaultConfig(path, force); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log.Printf("Wrote default config to %s", path)
	},
}

func init() {
	initConfigCmd.Flags().Bool("force", false, "Overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	cfg, err := models.DefaultConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
