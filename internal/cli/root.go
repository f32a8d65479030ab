// Package cli implements the shortcycle command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/veldt-labs/shortcycle/internal/config"
	"github.com/veldt-labs/shortcycle/internal/db"
	"github.com/veldt-labs/shortcycle/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "shortcycle",
	Short: "Multi-agent storyboard pipeline for healing shorts",
	Long: `Shortcycle negotiates video storyboards between a planner and a strict
reviewer in a bounded feedback loop, then renders and publishes the
approved result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional and never overrides real environment variables.
		_ = godotenv.Load()

		loader := config.NewLoader()
		if cfgFile != "" {
			loader.SetConfigFile(cfgFile)
		}

		loaded, err := loader.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logging.Init(logging.Config{
			Level:        cfg.Logging.Level,
			Format:       cfg.Logging.Format,
			File:         cfg.Logging.File,
			EnableCaller: cfg.Logging.EnableCaller,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default searches ~/.config/shortcycle)")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDatabase opens the configured database.
func openDatabase() (*db.DB, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.Database.Path, err)
	}
	return database, nil
}
