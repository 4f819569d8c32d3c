// Package dedupe turns stored hash records into duplicate groups, picks
// which member of each group to keep and applies or reports the
// resulting deletions.
package dedupe

import (
	"github.com/Resurrectum/media-structurer/internal/models"
)

// Grouper assembles duplicate groups from hash-equal record sets.
type Grouper struct {
	table models.ExtensionTable
}

// NewGrouper creates a Grouper classifying members with table.
func NewGrouper(table models.ExtensionTable) *Grouper {
	return &Grouper{table: table}
}

// Groups converts the store's hash-equal sets into duplicate groups.
// Sets mixing RAW files with developed images are dropped whole; those
// are two renditions of one shot, not duplicates. The second return
// value is the number of sets dropped this way.
func (g *Grouper) Groups(sets [][]*models.HashRecord) ([]*models.DuplicateGroup, int) {
	var groups []*models.DuplicateGroup
	filtered := 0
	for _, set := range sets {
		if len(set) < 2 {
			continue
		}
		if g.mixesRawAndImage(set) {
			filtered++
			continue
		}
		groups = append(groups, &models.DuplicateGroup{
			Hash:    set[0].PerceptualHash,
			Records: set,
			Wasted:  wasted(set),
		})
	}
	return groups, filtered
}

func (g *Grouper) mixesRawAndImage(set []*models.HashRecord) bool {
	hasRaw, hasImage := false, false
	for _, rec := range set {
		switch g.table.Classify(rec.Path) {
		case models.KindRaw:
			hasRaw = true
		case models.KindImage:
			hasImage = true
		}
	}
	return hasRaw && hasImage
}

// wasted is the space freed by keeping only the largest member.
func wasted(set []*models.HashRecord) int64 {
	var sum, largest int64
	for _, rec := range set {
		sum += rec.FileSize
		if rec.FileSize > largest {
			largest = rec.FileSize
		}
	}
	return sum - largest
}
