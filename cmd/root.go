package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Resurrectum/media-structurer/internal/config"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "media-structurer",
	Short: "Organize a media library and manage duplicates in it",
	Long: `media-structurer sorts photos and videos into a date-structured
library and finds duplicates across it.

Every file is routed by its capture date into <root>/YYYY/YYYY-MM/ under
a canonical name. A file whose exact content already sits at its
destination is skipped; a genuine name collision gets a numeric suffix.
Nothing is ever overwritten. Duplicate detection perceptually hashes the
organized library into a database and reports files with identical
fingerprints.

Example usage:
  media-structurer organize           # Sort source dirs into the library
  media-structurer scan               # Hash the library into the database
  media-structurer report             # Show duplicate groups
  media-structurer clean              # Preview duplicate deletions
  media-structurer clean --execute    # Actually delete duplicates`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "media_hashes.db", "Path to SQLite hash database")
}

// loadConfig reads and validates the configuration every command needs.
func loadConfig() (*config.Config, error) {
	cfg, err := config.ReadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
