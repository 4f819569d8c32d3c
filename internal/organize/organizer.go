package organize

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resurrectum/media-structurer/internal/config"
	"github.com/Resurrectum/media-structurer/internal/logging"
	"github.com/Resurrectum/media-structurer/internal/models"
)

// subtitleExts are sidecar extensions that travel with their video.
var subtitleExts = []string{".srt", ".sub", ".vtt"}

// MetadataWriter persists recovered capture dates into file metadata.
type MetadataWriter interface {
	WriteDateTime(path string, ts time.Time) error
}

// Summary counts the outcomes of one organize run.
type Summary struct {
	Placed   int // files placed under their proposed name
	Renamed  int // files placed under a collision suffix
	Skipped  int // confirmed duplicates, left alone
	Sidecars int // subtitle files placed next to their video
	NoDate   int // media without a resolvable capture date
	NonMedia int // files routed to the non-media destination
	Errors   int
}

// Organizer walks the configured source trees and drives
// route → write-back → resolve → place for every file.
type Organizer struct {
	cfg      *config.Config
	table    models.ExtensionTable
	router   *Router
	resolver *Resolver
	placer   *Placer
	writer   MetadataWriter
	log      logging.Logger
}

// New wires the pipeline. writer may be nil, which disables metadata
// write-back for filename-recovered dates.
func New(cfg *config.Config, reader MetadataReader, writer MetadataWriter, log, audit logging.Logger) *Organizer {
	table := cfg.ExtensionTable()
	return &Organizer{
		cfg:      cfg,
		table:    table,
		router:   NewRouter(cfg, table, reader, log),
		resolver: NewResolver(audit),
		placer:   NewPlacer(cfg.Careful),
		writer:   writer,
		log:      log,
	}
}

// Run processes all source directories in order. Per-file failures are
// logged and counted; only a completely unwalkable run returns an error.
func (o *Organizer) Run() *Summary {
	sum := &Summary{}
	for _, root := range o.cfg.SourceDirs {
		o.runDir(root, sum)
	}
	return sum
}

func (o *Organizer) runDir(root string, sum *Summary) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			o.log.Error("walk failure", "path", path, "error", err)
			sum.Errors++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			o.log.Warn("skipping irregular file", "path", path)
			return nil
		}
		o.processFile(root, path, sum)
		return nil
	})
	if err != nil {
		o.log.Error("source directory not walkable", "dir", root, "error", err)
		sum.Errors++
	}
}

func (o *Organizer) processFile(root, path string, sum *Summary) {
	// Subtitles ride along with their video; processing them here too
	// would place them twice.
	if isSubtitle(path) && o.hasSiblingVideo(path) {
		return
	}
	// In move mode a sidecar is gone by the time the walk reaches its
	// own directory entry.
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return
	}

	rec, proposed, err := o.router.Route(root, path)
	if err != nil {
		o.log.Error("routing failed", "path", path, "error", err)
		sum.Errors++
		return
	}

	// Dates recovered from the file name are stamped into the source
	// before placement, so the placed copy carries them and a later run
	// resolves the same file over the metadata path.
	if rec.FromFilename && o.writer != nil && (rec.Kind == models.KindImage || rec.Kind == models.KindRaw) {
		if err := o.writer.WriteDateTime(path, rec.Timestamp); err != nil {
			o.log.Error("metadata write-back failed", "path", path, "error", err)
			sum.Errors++
		}
	}

	final, op, err := o.execute(path, proposed, sum)
	if err != nil {
		return
	}
	rec.FinalPath = final

	switch {
	case rec.Kind == models.KindNonMedia:
		sum.NonMedia++
	case !rec.HasDate():
		sum.NoDate++
	}

	if rec.Kind == models.KindVideo && op != OpSkip {
		o.placeSidecars(path, proposed, sum)
	}
}

// execute resolves and places one file, maintaining counters and logs.
func (o *Organizer) execute(source, proposed string, sum *Summary) (string, Op, error) {
	decision, err := o.resolver.Resolve(source, proposed)
	if err != nil {
		o.log.Error("resolution failed", "source", source, "error", err)
		sum.Errors++
		return "", 0, err
	}

	final, err := o.placer.Place(source, decision)
	if err != nil {
		o.log.Error("placement failed", "source", source, "destination", decision.Target, "error", err)
		sum.Errors++
		return "", 0, err
	}

	switch decision.Op {
	case OpSkip:
		sum.Skipped++
		o.log.Info("skipped duplicate", "source", source, "existing", decision.Target)
	case OpRename:
		sum.Renamed++
		o.log.Warn("placed with collision suffix", "source", source, "destination", final)
	default:
		sum.Placed++
		o.log.Info("placed", "source", source, "destination", final)
	}
	return final, decision.Op, nil
}

// placeSidecars dispatches subtitle files next to their video. Each goes
// through its own resolution pass; a sidecar may end up suffixed even
// when its video did not.
func (o *Organizer) placeSidecars(videoSrc, videoProposed string, sum *Summary) {
	srcBase := strings.TrimSuffix(videoSrc, filepath.Ext(videoSrc))
	destBase := strings.TrimSuffix(videoProposed, filepath.Ext(videoProposed))

	for _, ext := range subtitleExts {
		side := srcBase + ext
		if _, err := os.Stat(side); err != nil {
			continue
		}
		if _, op, err := o.execute(side, destBase+ext, sum); err == nil && op != OpSkip {
			sum.Sidecars++
		}
	}
}

func isSubtitle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range subtitleExts {
		if ext == s {
			return true
		}
	}
	return false
}

// hasSiblingVideo reports whether a video sharing the base name sits next
// to path.
func (o *Organizer) hasSiblingVideo(path string) bool {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for ext, kind := range o.table {
		if kind != models.KindVideo {
			continue
		}
		if _, err := os.Stat(base + ext); err == nil {
			return true
		}
	}
	return false
}
