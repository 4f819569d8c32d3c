// Package scan walks the organized library, computes perceptual hashes
// for media files and persists them. Hashing runs on a worker pool; all
// database writes go through a single writer goroutine.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resurrectum/media-structurer/internal/hash"
	"github.com/Resurrectum/media-structurer/internal/logging"
	"github.com/Resurrectum/media-structurer/internal/models"
)

// Hasher computes hash records for media files.
type Hasher interface {
	Image(path string) (*models.HashRecord, error)
	Video(path string) (*models.HashRecord, error)
}

// Store is the slice of the hash store the scanner needs.
type Store interface {
	IsFresh(path string, modTime time.Time) (bool, error)
	Upsert(rec *models.HashRecord) error
}

// fileHasher is the production Hasher backed by the hash package.
type fileHasher struct{}

func (fileHasher) Image(path string) (*models.HashRecord, error) { return hash.Image(path) }
func (fileHasher) Video(path string) (*models.HashRecord, error) { return hash.Video(path) }

// Result summarizes one scan run.
type Result struct {
	Scanned      int // media files seen in the walked directories
	Hashed       int // files hashed and stored in this run
	SkippedFresh int // files whose stored hash was still current
	Failed       int // files that could not be hashed or stored
}

// Scanner hashes media files below the library roots.
type Scanner struct {
	store      Store
	table      models.ExtensionTable
	hasher     Hasher
	log        logging.Logger
	workers    int
	timeout    time.Duration
	progressFn func(scanned, total int, current string)
}

// Option configures a Scanner
type Option func(*Scanner)

// WithWorkers sets the number of parallel workers
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout sets the timeout for hashing each file
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithProgress sets a progress callback
func WithProgress(fn func(scanned, total int, current string)) Option {
	return func(s *Scanner) {
		s.progressFn = fn
	}
}

// New creates a Scanner writing to store.
func New(store Store, table models.ExtensionTable, log logging.Logger, opts ...Option) *Scanner {
	if log == nil {
		log = logging.Nop{}
	}
	s := &Scanner{
		store:   store,
		table:   table,
		hasher:  fileHasher{},
		log:     log,
		workers: 8,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type job struct {
	path string
	kind models.Kind
}

// Run scans the given directories and stores a hash record for every
// media file that is new or changed since the last run.
func (s *Scanner) Run(dirs []string) (*Result, error) {
	res := &Result{}

	// Collect work first; the store is not written to during the walk.
	var jobs []job
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.log.Error("scan walk error", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			kind := s.table.Classify(path)
			if kind == models.KindNonMedia {
				return nil
			}
			res.Scanned++

			info, err := d.Info()
			if err != nil {
				s.log.Error("stat failed", "path", path, "error", err)
				res.Failed++
				return nil
			}
			fresh, err := s.store.IsFresh(path, info.ModTime())
			if err != nil {
				s.log.Error("freshness check failed", "path", path, "error", err)
			}
			if fresh {
				res.SkippedFresh++
				return nil
			}
			jobs = append(jobs, job{path: path, kind: kind})
			return nil
		})
		if err != nil {
			s.log.Error("scan walk error", "dir", dir, "error", err)
		}
	}

	if len(jobs) == 0 {
		return res, nil
	}

	var (
		wg       sync.WaitGroup
		progress int64
		failed   int64
		total    = len(jobs)
	)

	work := make(chan job, len(jobs))
	for _, j := range jobs {
		work <- j
	}
	close(work)

	results := make(chan *models.HashRecord, s.workers)

	// Single writer: workers never touch the store.
	writerDone := make(chan struct{})
	hashed := 0
	go func() {
		defer close(writerDone)
		for rec := range results {
			if err := s.store.Upsert(rec); err != nil {
				s.log.Error("store write failed", "path", rec.Path, "error", err)
				atomic.AddInt64(&failed, 1)
				continue
			}
			hashed++
		}
	}()

	// Start workers
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range work {
				rec, err := s.hashWithTimeout(j)
				if err != nil {
					s.log.Error("hashing failed", "path", j.path, "error", err)
					atomic.AddInt64(&failed, 1)
					atomic.AddInt64(&progress, 1)
					continue
				}
				results <- rec

				n := atomic.AddInt64(&progress, 1)
				if s.progressFn != nil {
					s.progressFn(int(n), total, j.path)
				}
			}
		}()
	}

	wg.Wait()
	close(results)
	<-writerDone

	res.Hashed = hashed
	res.Failed += int(failed)
	return res, nil
}

// hashWithTimeout hashes one file, giving up after the configured timeout.
func (s *Scanner) hashWithTimeout(j job) (*models.HashRecord, error) {
	done := make(chan struct{})
	var rec *models.HashRecord
	var err error

	go func() {
		rec, err = s.hashOne(j)
		close(done)
	}()

	select {
	case <-done:
		return rec, err
	case <-time.After(s.timeout):
		return nil, fmt.Errorf("timeout hashing %s", j.path)
	}
}

// hashOne dispatches on media kind. RAW files go through the image
// hasher; formats its decoders reject fail here and are counted.
func (s *Scanner) hashOne(j job) (*models.HashRecord, error) {
	if j.kind == models.KindVideo {
		return s.hasher.Video(j.path)
	}
	return s.hasher.Image(j.path)
}
