// Package metadata reads and writes capture metadata. Reads go through
// goexif in-process; write-back is delegated to the external exiftool
// binary. All readers degrade to "absent" instead of failing: a file
// without usable metadata is routed by fallback rules, not rejected.
package metadata

import (
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/Resurrectum/media-structurer/internal/logging"
)

// Reader extracts raw capture metadata from media files.
type Reader struct {
	log logging.Logger
}

func NewReader(log logging.Logger) *Reader {
	return &Reader{log: log}
}

// ImageMeta returns the raw DateTimeOriginal string and the sanitized
// device label from a file's EXIF block. CR2, NEF and DNG share the TIFF
// structure, so the same reader covers RAW files. Missing or unreadable
// metadata yields empty strings.
func (r *Reader) ImageMeta(path string) (datetime, device string) {
	f, err := os.Open(path)
	if err != nil {
		r.log.Warn("cannot open file for metadata", "path", path, "error", err)
		return "", ""
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return "", ""
	}

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		if s, err := tag.StringVal(); err == nil {
			datetime = trimNulls(s)
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil {
			device = sanitizeDevice(s)
		}
	}
	return datetime, device
}

// trimNulls drops NUL padding some cameras write into EXIF strings.
func trimNulls(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// sanitizeDevice turns a camera model string into a filename-safe label.
func sanitizeDevice(s string) string {
	s = trimNulls(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
