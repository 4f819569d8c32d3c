package dedupe

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/Resurrectum/media-structurer/internal/models"
)

// WriteText renders the duplicate report for a terminal. Verbose mode
// prints full paths instead of bare file names.
func WriteText(w io.Writer, groups []*models.DuplicateGroup, filtered int, verbose bool) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No duplicates found.")
		if filtered > 0 {
			fmt.Fprintf(w, "%d RAW+JPEG groups excluded.\n", filtered)
		}
		return
	}

	var totalWasted int64
	for _, g := range groups {
		totalWasted += g.Wasted
	}
	fmt.Fprintf(w, "%d duplicate groups, %s wasted\n", len(groups), humanize.IBytes(uint64(totalWasted)))
	if filtered > 0 {
		fmt.Fprintf(w, "%d RAW+JPEG groups excluded.\n", filtered)
	}

	for i, g := range groups {
		fmt.Fprintf(w, "\nGroup %d: %d files, %s wasted\n", i+1, len(g.Records), humanize.IBytes(uint64(g.Wasted)))
		for _, rec := range g.Records {
			name := rec.Path
			if !verbose {
				name = filepath.Base(rec.Path)
			}
			fmt.Fprintf(w, "  %10s  %s\n", humanize.IBytes(uint64(rec.FileSize)), name)
		}
	}
}

var csvHeader = []string{
	"group_id", "file_path", "file_size", "size_formatted",
	"media_type", "resolution", "duration_seconds", "perceptual_hash",
}

// WriteCSV writes the tabular export, one row per group member.
func WriteCSV(w io.Writer, groups []*models.DuplicateGroup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i, g := range groups {
		for _, rec := range g.Records {
			row := []string{
				strconv.Itoa(i + 1),
				rec.Path,
				strconv.FormatInt(rec.FileSize, 10),
				humanize.IBytes(uint64(rec.FileSize)),
				rec.MediaType,
				resolution(rec),
				duration(rec),
				rec.PerceptualHash,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func resolution(rec *models.HashRecord) string {
	if rec.Width == 0 && rec.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", rec.Width, rec.Height)
}

func duration(rec *models.HashRecord) string {
	if rec.MediaType != models.MediaVideo {
		return ""
	}
	return strconv.FormatFloat(rec.Duration, 'f', 1, 64)
}
