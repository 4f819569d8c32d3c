// Package organize implements the placement pipeline: classify a source
// file, resolve its capture date, decide a collision-safe destination and
// execute the copy or move. Nothing in this package ever overwrites or
// deletes existing content.
package organize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resurrectum/media-structurer/internal/hash"
	"github.com/Resurrectum/media-structurer/internal/logging"
)

// Op is the action the resolver decided for one file.
type Op int

const (
	// OpPlace puts the file at the proposed destination.
	OpPlace Op = iota
	// OpSkip leaves everything untouched; the destination already holds
	// identical content.
	OpSkip
	// OpRename places the file under a collision suffix.
	OpRename
)

// Decision is the outcome of destination resolution. Target is the path
// to place at; for OpSkip it is the existing file that matched.
type Decision struct {
	Op     Op
	Target string
}

// maxSuffix bounds the collision-suffix search. Thousands of same-named,
// different-content files point at a broken input, not a naming problem.
const maxSuffix = 10000

// Resolver decides where an incoming file may land. Exact content hashes
// distinguish true duplicates from name collisions; every decision that
// is not a plain placement goes to the audit stream.
type Resolver struct {
	audit logging.Logger
}

func NewResolver(audit logging.Logger) *Resolver {
	return &Resolver{audit: audit}
}

// Resolve compares source against the proposed destination. An identical
// existing file means Skip; a different one starts the suffix search for
// the smallest free name_n.ext.
func (r *Resolver) Resolve(source, dest string) (Decision, error) {
	if _, err := os.Stat(dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Decision{Op: OpPlace, Target: dest}, nil
		}
		return Decision{}, fmt.Errorf("stat %s: %w", dest, err)
	}

	identical, err := hash.AreIdentical(source, dest)
	if err != nil {
		return Decision{}, err
	}
	if identical {
		r.audit.Info("duplicate",
			"source", source,
			"destination", dest,
			"decision", "skip",
			"reason", "identical content")
		return Decision{Op: OpSkip, Target: dest}, nil
	}

	ext := filepath.Ext(dest)
	base := strings.TrimSuffix(dest, ext)
	for n := 1; n <= maxSuffix; n++ {
		candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			r.audit.Warn("collision",
				"source", source,
				"destination", candidate,
				"decision", "rename",
				"reason", "content differs from "+dest)
			return Decision{Op: OpRename, Target: candidate}, nil
		}
		if err != nil {
			return Decision{}, fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return Decision{}, fmt.Errorf("no free name near %s after %d suffixes", dest, maxSuffix)
}
