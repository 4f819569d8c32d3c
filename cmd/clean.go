package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Resurrectum/media-structurer/internal/dedupe"
	"github.com/Resurrectum/media-structurer/internal/logging"
	"github.com/Resurrectum/media-structurer/internal/storage"
)

var (
	cleanExecute bool
	cleanYes     bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete duplicate files, keeping one per group",
	Long: `Resolve every duplicate group to a single kept file and delete the rest.

The keeper is chosen per group, first applicable rule wins:
1. Sizes differ: keep the largest file
2. Equal sizes, names differ only by a collision suffix (_1, _2, ...):
   keep the un-suffixed original
3. Otherwise: keep the oldest file

Video groups are shown in the report but never deleted from. Without
--execute nothing is touched; the full plan is printed for review.

Example:
  media-structurer clean            # Preview only
  media-structurer clean --execute  # Delete, asking for confirmation
  media-structurer clean --execute -y`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanExecute, "execute", false, "Actually delete files (default is a dry run)")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
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

	sets, err := store.GroupsByHash()
	if err != nil {
		return fmt.Errorf("failed to query duplicates: %w", err)
	}

	groups, _ := dedupe.NewGrouper(cfg.ExtensionTable()).Groups(sets)
	if len(groups) == 0 {
		fmt.Println("No duplicate groups found.")
		fmt.Println("Run 'media-structurer scan' first to populate the database.")
		return nil
	}

	plans := dedupe.ChoosePlans(groups)
	if len(plans) == 0 {
		fmt.Println("Only video groups found; videos are never deleted automatically.")
		fmt.Println("Run 'media-structurer report' to review them.")
		return nil
	}

	// Tally the plan without touching anything.
	tally := dedupe.Apply(plans, store, false, logs.Log, logs.Audit)
	fmt.Printf("%d group(s), %d file(s) to delete, %s reclaimable\n\n",
		tally.Groups, tally.Planned, humanize.IBytes(uint64(tally.Freed)))

	for _, p := range plans {
		fmt.Printf("  ✓ %s  (%s)\n", p.Keep.Path, p.Reason)
		for _, rm := range p.Remove {
			fmt.Printf("  ✗ %s\n", rm.Path)
		}
		fmt.Println()
	}

	if !cleanExecute {
		fmt.Println("(Dry run - no files were deleted)")
		fmt.Println("Run with --execute to delete the files marked ✗.")
		return nil
	}

	// Confirm unless --yes flag is set
	if !cleanYes {
		fmt.Printf("Are you sure you want to delete %d files? [y/N]: ", tally.Planned)
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	st := dedupe.Apply(plans, store, true, logs.Log, logs.Audit)

	fmt.Println()
	fmt.Printf("Deleted %d files, freed %s\n", st.Deleted, humanize.IBytes(uint64(st.Freed)))
	if st.Missing > 0 {
		fmt.Printf("Already gone: %d files\n", st.Missing)
	}
	if st.Failed > 0 {
		fmt.Printf("Failed: %d files (see %s)\n", st.Failed, cfg.LogDir)
	}

	return nil
}
