package organize

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Resurrectum/media-structurer/internal/config"
	"github.com/Resurrectum/media-structurer/internal/logging"
	"github.com/Resurrectum/media-structurer/internal/models"
)

const (
	exifTimeLayout = "2006:01:02 15:04:05"
	nameTimeLayout = "2006-01-02T15_04_05"
	// compactTimeLayout validates the six digit groups a filename
	// pattern captures; time.Parse rejects impossible dates for us.
	compactTimeLayout = "20060102150405"

	// deviceFallback appears in canonical names when metadata carries no
	// camera model.
	deviceFallback = "unknown"
)

// datePatterns recover capture dates from file names, tried in order.
// Each pattern captures exactly year, month, day, hour, minute, second.
// The first pattern whose regexp matches wins; if its digits do not form
// a valid timestamp no later pattern is consulted.
var datePatterns = []*regexp.Regexp{
	// Explicit datetime with flexible delimiters, e.g. 2021-06-05 10.30.22
	regexp.MustCompile(`(\d{4})[-:_ .](\d{2})[-:_ .](\d{2})[-T:_ .](\d{2})[-:_ .](\d{2})[-:_ .](\d{2})`),
	// VLC snapshot names, e.g. vlcsnap-2019-08-21-17h40m44s123
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})-(\d{2})h(\d{2})m(\d{2})s`),
	// Camera burst names, e.g. IMG_20190821_174044
	regexp.MustCompile(`(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})`),
}

// DateFromFilename extracts a capture date from a file name. Dates in the
// future are rejected; random digit runs that happen to match a pattern
// rarely form a plausible past timestamp.
func DateFromFilename(name string, now time.Time) (time.Time, bool) {
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		ts, err := time.ParseInLocation(compactTimeLayout, strings.Join(m[1:], ""), time.Local)
		if err != nil || ts.After(now) {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}

// ParseExifDateTime parses the fixed EXIF encoding YYYY:MM:DD HH:MM:SS.
func ParseExifDateTime(raw string) (time.Time, bool) {
	ts, err := time.ParseInLocation(exifTimeLayout, strings.TrimSpace(raw), time.Local)
	return ts, err == nil
}

var videoTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	exifTimeLayout,
}

// ParseVideoDateTime parses container creation timestamps. ffprobe
// usually reports RFC 3339; some containers record "UTC YYYY-MM-DD
// HH:MM:SS" instead.
func ParseVideoDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "UTC "))
	for _, layout := range videoTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// CanonicalName builds the destination file name for a dated file:
// YYYY-MM-DDTHH_MM_SS_<device>.<ext> with the extension lower-cased.
func CanonicalName(ts time.Time, device, srcName string) string {
	if device == "" {
		device = deviceFallback
	}
	ext := strings.ToLower(filepath.Ext(srcName))
	return ts.Format(nameTimeLayout) + "_" + device + ext
}

// datedDir is <root>/YYYY/YYYY-MM.
func datedDir(root string, ts time.Time) string {
	return filepath.Join(root, ts.Format("2006"), ts.Format("2006-01"))
}

// MetadataReader supplies raw capture metadata. Empty strings mean
// absent; the router never fails on metadata problems.
type MetadataReader interface {
	// ImageMeta returns the raw EXIF datetime string and the sanitized
	// device label. Covers both developed images and RAW files.
	ImageMeta(path string) (datetime, device string)
	// VideoDateTime returns the container creation timestamp.
	VideoDateTime(path string) string
}

// Router turns a source file into a MediaRecord plus its proposed
// destination: classification, date resolution, canonical naming.
type Router struct {
	cfg    *config.Config
	table  models.ExtensionTable
	reader MetadataReader
	log    logging.Logger
	now    func() time.Time
}

func NewRouter(cfg *config.Config, table models.ExtensionTable, reader MetadataReader, log logging.Logger) *Router {
	return &Router{cfg: cfg, table: table, reader: reader, log: log, now: time.Now}
}

// Route classifies path, resolves its capture date and returns the
// proposed destination. root is the configured source directory holding
// path; structure below it is preserved on the undated and non-media
// routes, where files keep their original names.
func (rt *Router) Route(root, path string) (*models.MediaRecord, string, error) {
	rec := &models.MediaRecord{
		SourcePath: path,
		Kind:       rt.table.Classify(path),
	}

	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return nil, "", fmt.Errorf("relativizing %s under %s: %w", path, root, err)
	}
	name := filepath.Base(path)

	if rec.Kind == models.KindNonMedia {
		return rec, filepath.Join(rt.cfg.DestNonMedia, rel, name), nil
	}

	switch rec.Kind {
	case models.KindImage, models.KindRaw:
		raw, device := rt.reader.ImageMeta(path)
		rec.Device = device
		if ts, ok := ParseExifDateTime(raw); ok {
			rec.Timestamp = ts
		} else if raw != "" {
			rt.log.Warn("unparseable metadata datetime", "path", path, "value", raw)
		}
	case models.KindVideo:
		if raw := rt.reader.VideoDateTime(path); raw != "" {
			if ts, ok := ParseVideoDateTime(raw); ok {
				rec.Timestamp = ts
			} else {
				rt.log.Warn("unparseable container datetime", "path", path, "value", raw)
			}
		}
	}

	if !rec.HasDate() {
		if ts, ok := DateFromFilename(name, rt.now()); ok {
			rec.Timestamp = ts
			rec.FromFilename = true
		}
	}

	catRoot := rt.categoryRoot(rec.Kind)
	if rec.HasDate() {
		dir := datedDir(catRoot, rec.Timestamp)
		return rec, filepath.Join(dir, CanonicalName(rec.Timestamp, rec.Device, name)), nil
	}
	return rec, filepath.Join(catRoot, rt.cfg.NoExifDirectoriesAll, rel, name), nil
}

func (rt *Router) categoryRoot(k models.Kind) string {
	switch k {
	case models.KindRaw:
		return rt.cfg.DestDirPicturesRaw
	case models.KindVideo:
		return rt.cfg.DestDirVideos
	default:
		return rt.cfg.DestDirPictures
	}
}
