package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Resurrectum/media-structurer/internal/dedupe"
	"github.com/Resurrectum/media-structurer/internal/storage"
)

var (
	reportVerbose bool
	reportOutput  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show duplicate groups found by the last scan",
	Long: `Display all duplicate groups in the hash database.

Files are grouped by identical perceptual hash. Groups pairing a RAW
file with a developed image are excluded; those are two renditions of
one shot, not duplicates. Each group lists its members largest first
with the space wasted by the extra copies.

Example:
  media-structurer report               # Compact report, file names only
  media-structurer report -v            # Full paths
  media-structurer report -o dupes.csv  # Tabular export`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVarP(&reportVerbose, "verbose", "v", false, "Print full file paths")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report as CSV to this file")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	sets, err := store.GroupsByHash()
	if err != nil {
		return fmt.Errorf("failed to query duplicates: %w", err)
	}

	groups, filtered := dedupe.NewGrouper(cfg.ExtensionTable()).Groups(sets)

	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", reportOutput, err)
		}
		defer f.Close()
		if err := dedupe.WriteCSV(f, groups); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", reportOutput)
		return nil
	}

	dedupe.WriteText(os.Stdout, groups, filtered, reportVerbose)

	if len(groups) > 0 {
		fmt.Println()
		fmt.Println("Run 'media-structurer clean' to preview deletions")
		fmt.Println("Run 'media-structurer clean --execute' to remove duplicates")
	}

	return nil
}
