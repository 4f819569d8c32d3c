package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Resurrectum/media-structurer/internal/logging"
	"github.com/Resurrectum/media-structurer/internal/scan"
	"github.com/Resurrectum/media-structurer/internal/storage"
)

var (
	scanCleanup bool
	scanRebuild bool
	scanWorkers int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Hash the organized library into the duplicate database",
	Long: `Walk the library destination directories and compute a perceptual hash
for every media file.

The scan will:
1. Find all images, RAW files and videos below the configured library roots
2. Skip files whose stored hash is still current (unchanged mtime)
3. Hash the rest on a worker pool (videos via a representative frame)
4. Store the results in the database for the report and clean commands

Stale database entries are never removed implicitly; use --cleanup to
purge entries for vanished files, or --rebuild to start from scratch.

Example:
  media-structurer scan
  media-structurer scan --workers 4
  media-structurer scan --cleanup`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanCleanup, "cleanup", false, "Purge entries for vanished files before scanning")
	scanCmd.Flags().BoolVar(&scanRebuild, "rebuild", false, "Clear the database and rehash everything")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 8, "Number of parallel hashing workers (0 = all CPUs)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logs, err := logging.New(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to open logs: %w", err)
	}
	defer logs.Close()

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if scanRebuild {
		if err := store.Rebuild(); err != nil {
			return fmt.Errorf("failed to rebuild database: %w", err)
		}
		fmt.Println("Database cleared, rehashing everything.")
	} else if scanCleanup {
		removed, err := store.Cleanup()
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Removed %d stale entries.\n", removed)
	}

	workers := scanWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Progress on one rewritten line
	lastLine := ""
	s := scan.New(store, cfg.ExtensionTable(), logs.Log,
		scan.WithWorkers(workers),
		scan.WithProgress(func(scanned, total int, current string) {
			if lastLine != "" {
				fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
			}
			shortPath := current
			if len(shortPath) > 50 {
				shortPath = "..." + shortPath[len(shortPath)-47:]
			}
			lastLine = fmt.Sprintf("Progress: %d/%d  %s", scanned, total, shortPath)
			fmt.Print(lastLine)
		}),
	)

	res, err := s.Run(cfg.MediaDirs())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	// Clear progress line
	if lastLine != "" {
		fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
	}

	fmt.Println("=== Scan Complete ===")
	fmt.Printf("Media files:   %d\n", res.Scanned)
	fmt.Printf("Hashed:        %d\n", res.Hashed)
	fmt.Printf("Fresh skipped: %d\n", res.SkippedFresh)
	if res.Failed > 0 {
		fmt.Printf("Failed:        %d (see %s)\n", res.Failed, cfg.LogDir)
	}

	st, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	fmt.Println()
	fmt.Printf("Database: %d files (%d images, %d videos), %d unique hashes\n",
		st.TotalFiles, st.Images, st.Videos, st.UniqueHashes)

	if st.DuplicateFiles > 0 {
		fmt.Printf("%d files share a hash with another file\n", st.DuplicateFiles)
		fmt.Println()
		fmt.Println("Run 'media-structurer report' to see duplicate groups")
	}

	return nil
}
