package metadata

import (
	"fmt"
	"time"

	"github.com/barasher/go-exiftool"
)

// exifTimeLayout is the EXIF datetime encoding.
const exifTimeLayout = "2006:01:02 15:04:05"

// Writer persists capture dates into file metadata through a long-running
// exiftool process. Used for dates recovered from file names, so the date
// survives future reorganizations on the metadata path.
type Writer struct {
	et *exiftool.Exiftool
}

// NewWriter starts the exiftool sidecar process. It fails when the
// exiftool binary is not installed; callers may treat that as "write-back
// unavailable" and continue.
func NewWriter() (*Writer, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("starting exiftool: %w", err)
	}
	return &Writer{et: et}, nil
}

// WriteDateTime stamps ts into the three EXIF datetime fields, matching
// what a camera would have written.
func (w *Writer) WriteDateTime(path string, ts time.Time) error {
	stamp := ts.Format(exifTimeLayout)

	fm := exiftool.FileMetadata{File: path, Fields: map[string]interface{}{}}
	fm.SetString("DateTimeOriginal", stamp)
	fm.SetString("CreateDate", stamp)
	fm.SetString("ModifyDate", stamp)

	fms := []exiftool.FileMetadata{fm}
	w.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return fmt.Errorf("writing metadata to %s: %w", path, fms[0].Err)
	}
	return nil
}

// Close stops the exiftool process.
func (w *Writer) Close() error {
	return w.et.Close()
}
