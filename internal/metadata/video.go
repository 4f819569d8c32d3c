package metadata

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const probeTimeout = 10 * time.Second

// VideoDateTime returns the container creation timestamp of a video as
// reported by ffprobe, or an empty string when the container carries none
// (or ffprobe is unavailable).
func (r *Reader) VideoDateTime(path string) string {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format_tags=creation_time",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		r.log.Warn("ffprobe failed", "path", path, "error", err)
		return ""
	}
	return strings.TrimSpace(string(out))
}
