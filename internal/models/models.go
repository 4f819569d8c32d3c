package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind is the media category a file belongs to. Classification is purely
// extension-based; the mapping comes from configuration.
type Kind int

const (
	KindNonMedia Kind = iota
	KindImage
	KindRaw
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindRaw:
		return "raw"
	case KindVideo:
		return "video"
	default:
		return "non-media"
	}
}

// Media types as stored in the hash database. RAW files are hashed as
// images, so only two values exist on that side.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// ExtensionTable maps lower-cased file extensions (with leading dot) to
// their Kind. Extensions not present classify as KindNonMedia.
type ExtensionTable map[string]Kind

// NewExtensionTable builds a table from per-category extension lists.
// Entries are normalized to lower case with a leading dot.
func NewExtensionTable(images, raw, videos []string) ExtensionTable {
	t := make(ExtensionTable)
	add := func(exts []string, k Kind) {
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			t[e] = k
		}
	}
	add(images, KindImage)
	add(raw, KindRaw)
	add(videos, KindVideo)
	return t
}

// Classify returns the Kind for a path based on its extension.
func (t ExtensionTable) Classify(path string) Kind {
	return t[strings.ToLower(filepath.Ext(path))]
}

// MediaRecord is the per-file working state of the organize pipeline.
type MediaRecord struct {
	SourcePath string
	Kind       Kind
	Timestamp  time.Time // zero when no capture date could be resolved
	Device     string    // empty when metadata carries no device label
	// FromFilename marks timestamps recovered from the file name rather
	// than metadata; those get written back into the placed file.
	FromFilename bool
	FinalPath    string // set after placement
}

// HasDate reports whether a capture timestamp was resolved.
func (r *MediaRecord) HasDate() bool {
	return !r.Timestamp.IsZero()
}

// HashRecord is one row of the perceptual hash store.
type HashRecord struct {
	Path           string
	PerceptualHash string
	FileSize       int64
	ModTime        time.Time
	MediaType      string // MediaImage or MediaVideo
	Width          int
	Height         int
	Duration       float64 // seconds, 0 for images
	CreatedAt      time.Time
}

// DuplicateGroup is a set of records sharing one perceptual hash.
type DuplicateGroup struct {
	Hash    string
	Records []*HashRecord // ordered by file size descending
	// Wasted is the total size minus the largest member, the space
	// reclaimable by keeping a single copy.
	Wasted int64
}
