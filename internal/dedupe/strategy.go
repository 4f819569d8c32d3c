package dedupe

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Resurrectum/media-structurer/internal/logging"
	"github.com/Resurrectum/media-structurer/internal/models"
)

// Plan is the proposed resolution of one duplicate group.
type Plan struct {
	Keep   *models.HashRecord
	Remove []*models.HashRecord
	Reason string
}

// ChoosePlans builds a deletion plan for every group eligible for
// automatic cleanup. Groups containing a video are reported only, never
// deleted from.
func ChoosePlans(groups []*models.DuplicateGroup) []Plan {
	var plans []Plan
	for _, g := range groups {
		if containsVideo(g.Records) {
			continue
		}
		plans = append(plans, chooseKeep(g.Records))
	}
	return plans
}

func containsVideo(recs []*models.HashRecord) bool {
	for _, r := range recs {
		if r.MediaType == models.MediaVideo {
			return true
		}
	}
	return false
}

// chooseKeep applies the keep strategy in order: largest file, then the
// un-suffixed original among equal sizes, then the oldest file. The
// first rule that applies decides the whole group.
func chooseKeep(recs []*models.HashRecord) Plan {
	if !sameSize(recs) {
		sorted := sortedBy(recs, func(a, b *models.HashRecord) bool {
			if a.FileSize != b.FileSize {
				return a.FileSize > b.FileSize
			}
			return a.Path < b.Path
		})
		return Plan{Keep: sorted[0], Remove: sorted[1:], Reason: "largest file"}
	}

	if orig := unsuffixedOriginal(recs); orig != nil {
		return Plan{Keep: orig, Remove: allExcept(recs, orig), Reason: "original without collision suffix"}
	}

	sorted := sortedBy(recs, func(a, b *models.HashRecord) bool {
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.Before(b.ModTime)
		}
		return a.Path < b.Path
	})
	return Plan{Keep: sorted[0], Remove: sorted[1:], Reason: "oldest file"}
}

func sameSize(recs []*models.HashRecord) bool {
	for _, r := range recs[1:] {
		if r.FileSize != recs[0].FileSize {
			return false
		}
	}
	return true
}

func sortedBy(recs []*models.HashRecord, less func(a, b *models.HashRecord) bool) []*models.HashRecord {
	sorted := make([]*models.HashRecord, len(recs))
	copy(sorted, recs)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}

func allExcept(recs []*models.HashRecord, keep *models.HashRecord) []*models.HashRecord {
	out := make([]*models.HashRecord, 0, len(recs)-1)
	for _, r := range recs {
		if r != keep {
			out = append(out, r)
		}
	}
	return out
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isSuffixVariant reports whether s is base plus a collision suffix
// (base_1, base_2, ...).
func isSuffixVariant(s, base string) bool {
	rest, ok := strings.CutPrefix(s, base+"_")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// unsuffixedOriginal returns the single member whose file name all
// others are suffixed variants of, or nil when the group has no such
// shape. Names that merely end in digits (burst counters, timestamps)
// do not make a member a variant of a shorter sibling.
func unsuffixedOriginal(recs []*models.HashRecord) *models.HashRecord {
	var found *models.HashRecord
	for _, cand := range recs {
		base := stem(cand.Path)
		ok := true
		for _, other := range recs {
			if other == cand {
				continue
			}
			if !isSuffixVariant(stem(other.Path), base) {
				ok = false
				break
			}
		}
		if ok {
			if found != nil {
				return nil
			}
			found = cand
		}
	}
	return found
}

// StoreDeleter removes rows for deleted files.
type StoreDeleter interface {
	Delete(path string) error
}

// ApplyStats counts the outcomes of executing deletion plans.
type ApplyStats struct {
	Groups  int
	Planned int
	Deleted int
	Missing int
	Failed  int
	Freed   int64
}

// Apply executes the given plans, or only tallies them when execute is
// false. A delete target that is already gone counts as satisfied, not
// as an error. Store rows follow the files they describe.
func Apply(plans []Plan, store StoreDeleter, execute bool, log, audit logging.Logger) *ApplyStats {
	st := &ApplyStats{Groups: len(plans)}
	for _, plan := range plans {
		for _, rm := range plan.Remove {
			st.Planned++
			if !execute {
				st.Freed += rm.FileSize
				continue
			}

			err := os.Remove(rm.Path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				st.Missing++
			case err != nil:
				log.Error("failed to delete duplicate", "path", rm.Path, "error", err)
				st.Failed++
				continue
			default:
				st.Deleted++
				st.Freed += rm.FileSize
				audit.Info("duplicate removed",
					"source", rm.Path,
					"destination", plan.Keep.Path,
					"decision", "delete",
					"reason", plan.Reason)
			}

			if err := store.Delete(rm.Path); err != nil {
				log.Error("failed to remove store row", "path", rm.Path, "error", err)
			}
		}
	}
	return st
}
