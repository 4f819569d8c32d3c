package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Resurrectum/media-structurer/internal/logging"
	"github.com/Resurrectum/media-structurer/internal/metadata"
	"github.com/Resurrectum/media-structurer/internal/organize"
)

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Sort source files into the date-structured library",
	Long: `Walk every configured source directory and place each file into the
library.

For every file, organize will:
1. Classify it as image, RAW, video or non-media by extension
2. Resolve its capture date from metadata, falling back to the file name
3. Route it to <category-root>/YYYY/YYYY-MM/ under a canonical name
4. Skip it if identical content already sits at the destination, or
   suffix the name if different content does

Dates recovered from file names are written back into the file before
placement. Files without any resolvable date keep their original name
under the configured no-date subdirectory. Subtitles travel with their
video. Whether sources are moved or copied is the config's careful flag;
organize itself takes no flags.

Example:
  media-structurer organize
  media-structurer organize --config /etc/media-structurer/config.toml`,
	Args: cobra.NoArgs,
	RunE: runOrganize,
}

func init() {
	rootCmd.AddCommand(organizeCmd)
}

func runOrganize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logs, err := logging.New(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to open logs: %w", err)
	}
	defer logs.Close()

	reader := metadata.NewReader(logs.Log)

	// Without exiftool the run still works; filename-derived dates are
	// then only used for naming, not written into the files.
	var writer organize.MetadataWriter
	if w, err := metadata.NewWriter(); err != nil {
		logs.Log.Warn("exiftool unavailable, filename dates will not be written back", "error", err)
		fmt.Println("Warning: exiftool not available, filename-derived dates will not be written into files.")
	} else {
		writer = w
		defer w.Close()
	}

	mode := "move"
	if cfg.Careful {
		mode = "copy (careful)"
	}
	fmt.Printf("Organizing %d source dir(s), %s mode\n\n", len(cfg.SourceDirs), mode)

	sum := organize.New(cfg, reader, writer, logs.Log, logs.Audit).Run()

	fmt.Println("=== Organize Complete ===")
	fmt.Printf("Placed:    %d\n", sum.Placed)
	fmt.Printf("Renamed:   %d (name collisions)\n", sum.Renamed)
	fmt.Printf("Skipped:   %d (identical content already in library)\n", sum.Skipped)
	fmt.Printf("Sidecars:  %d\n", sum.Sidecars)
	fmt.Printf("No date:   %d\n", sum.NoDate)
	fmt.Printf("Non-media: %d\n", sum.NonMedia)
	if sum.Errors > 0 {
		fmt.Printf("Errors:    %d (see %s)\n", sum.Errors, cfg.LogDir)
	}

	return nil
}
