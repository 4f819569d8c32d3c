package scan

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Resurrectum/media-structurer/internal/models"
)

func testTable() models.ExtensionTable {
	return models.NewExtensionTable(
		[]string{"jpg", "png"},
		[]string{"nef"},
		[]string{"mp4"},
	)
}

// fakeHasher records which paths were hashed and fabricates records from
// file metadata, so tests need no decodable media.
type fakeHasher struct {
	mu         sync.Mutex
	imageCalls []string
	videoCalls []string
	failFor    map[string]bool
	delay      time.Duration
}

func (f *fakeHasher) Image(path string) (*models.HashRecord, error) {
	return f.hash(path, models.MediaImage)
}

func (f *fakeHasher) Video(path string) (*models.HashRecord, error) {
	return f.hash(path, models.MediaVideo)
}

func (f *fakeHasher) hash(path, mediaType string) (*models.HashRecord, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	if mediaType == models.MediaVideo {
		f.videoCalls = append(f.videoCalls, path)
	} else {
		f.imageCalls = append(f.imageCalls, path)
	}
	f.mu.Unlock()

	if f.failFor[path] {
		return nil, errors.New("decode failed")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &models.HashRecord{
		Path:           path,
		PerceptualHash: "p:" + filepath.Base(path),
		FileSize:       info.Size(),
		ModTime:        info.ModTime(),
		MediaType:      mediaType,
	}, nil
}

func (f *fakeHasher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.imageCalls) + len(f.videoCalls)
}

type fakeStore struct {
	mu   sync.Mutex
	recs map[string]*models.HashRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]*models.HashRecord{}}
}

func (f *fakeStore) IsFresh(path string, modTime time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[path]
	return ok && rec.ModTime.Equal(modTime), nil
}

func (f *fakeStore) Upsert(rec *models.HashRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.Path] = rec
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func newTestScanner(store Store, hasher Hasher, opts ...Option) *Scanner {
	s := New(store, testTable(), nil, opts...)
	s.hasher = hasher
	return s
}

func TestNew_Defaults(t *testing.T) {
	s := New(newFakeStore(), testTable(), nil)

	if s.workers != 8 {
		t.Errorf("default workers = %d, want 8", s.workers)
	}
	if s.timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", s.timeout)
	}
	if s.progressFn != nil {
		t.Error("default progressFn should be nil")
	}
}

func TestNew_WithWorkers(t *testing.T) {
	s := New(newFakeStore(), testTable(), nil, WithWorkers(4))
	if s.workers != 4 {
		t.Errorf("workers = %d, want 4", s.workers)
	}

	// Zero workers should not change default
	s = New(newFakeStore(), testTable(), nil, WithWorkers(0))
	if s.workers != 8 {
		t.Errorf("workers with 0 = %d, want 8", s.workers)
	}

	// Negative workers should not change default
	s = New(newFakeStore(), testTable(), nil, WithWorkers(-1))
	if s.workers != 8 {
		t.Errorf("workers with -1 = %d, want 8", s.workers)
	}
}

func TestNew_WithTimeout(t *testing.T) {
	s := New(newFakeStore(), testTable(), nil, WithTimeout(5*time.Second))
	if s.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", s.timeout)
	}
}

func TestRun_EmptyDirectory(t *testing.T) {
	store := newFakeStore()
	s := newTestScanner(store, &fakeHasher{})

	res, err := s.Run([]string{t.TempDir()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Scanned != 0 || res.Hashed != 0 {
		t.Errorf("result = %+v, want all zero", res)
	}
}

func TestRun_NonMediaIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	for _, f := range []string{"test.txt", "doc.pdf", "script.sh"} {
		writeFile(t, filepath.Join(tmpDir, f))
	}

	store := newFakeStore()
	hasher := &fakeHasher{}
	s := newTestScanner(store, hasher)

	res, err := s.Run([]string{tmpDir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Scanned != 0 {
		t.Errorf("Scanned = %d, want 0", res.Scanned)
	}
	if hasher.calls() != 0 {
		t.Errorf("hasher called %d times for non-media, want 0", hasher.calls())
	}
}

func TestRun_HashesAndStores(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "2020", "2020-01", "a.jpg"))
	writeFile(t, filepath.Join(tmpDir, "2020", "2020-01", "b.nef"))
	writeFile(t, filepath.Join(tmpDir, "clip.mp4"))

	store := newFakeStore()
	hasher := &fakeHasher{}
	s := newTestScanner(store, hasher, WithWorkers(2))

	res, err := s.Run([]string{tmpDir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Scanned != 3 {
		t.Errorf("Scanned = %d, want 3", res.Scanned)
	}
	if res.Hashed != 3 {
		t.Errorf("Hashed = %d, want 3", res.Hashed)
	}
	if store.count() != 3 {
		t.Errorf("store has %d records, want 3", store.count())
	}

	// RAW goes through the image hasher, videos through the video hasher.
	if len(hasher.imageCalls) != 2 {
		t.Errorf("image hasher called %d times, want 2", len(hasher.imageCalls))
	}
	if len(hasher.videoCalls) != 1 {
		t.Errorf("video hasher called %d times, want 1", len(hasher.videoCalls))
	}
}

func TestRun_SkipsFreshFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.jpg"))
	writeFile(t, filepath.Join(tmpDir, "b.jpg"))

	store := newFakeStore()
	hasher := &fakeHasher{}
	s := newTestScanner(store, hasher)

	if _, err := s.Run([]string{tmpDir}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if hasher.calls() != 2 {
		t.Fatalf("first run hashed %d files, want 2", hasher.calls())
	}

	res, err := s.Run([]string{tmpDir})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if res.SkippedFresh != 2 {
		t.Errorf("SkippedFresh = %d, want 2", res.SkippedFresh)
	}
	if res.Hashed != 0 {
		t.Errorf("Hashed = %d, want 0", res.Hashed)
	}
	if hasher.calls() != 2 {
		t.Errorf("unchanged files were rehashed: %d calls, want 2", hasher.calls())
	}
}

func TestRun_RehashesChangedFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.jpg")
	writeFile(t, path)

	store := newFakeStore()
	hasher := &fakeHasher{}
	s := newTestScanner(store, hasher)

	if _, err := s.Run([]string{tmpDir}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Bump the modification time; the stored hash is now stale.
	newTime := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, newTime, newTime); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	res, err := s.Run([]string{tmpDir})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if res.Hashed != 1 {
		t.Errorf("Hashed = %d, want 1", res.Hashed)
	}
	if res.SkippedFresh != 0 {
		t.Errorf("SkippedFresh = %d, want 0", res.SkippedFresh)
	}
}

func TestRun_FailedHashCounted(t *testing.T) {
	tmpDir := t.TempDir()
	good := filepath.Join(tmpDir, "good.jpg")
	bad := filepath.Join(tmpDir, "bad.jpg")
	writeFile(t, good)
	writeFile(t, bad)

	store := newFakeStore()
	hasher := &fakeHasher{failFor: map[string]bool{bad: true}}
	s := newTestScanner(store, hasher)

	res, err := s.Run([]string{tmpDir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if res.Hashed != 1 {
		t.Errorf("Hashed = %d, want 1", res.Hashed)
	}
	if store.count() != 1 {
		t.Errorf("store has %d records, want 1", store.count())
	}
}

func TestRun_Timeout(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "slow.jpg"))

	store := newFakeStore()
	hasher := &fakeHasher{delay: 200 * time.Millisecond}
	s := newTestScanner(store, hasher, WithTimeout(10*time.Millisecond))

	res, err := s.Run([]string{tmpDir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1", res.Failed)
	}
	if store.count() != 0 {
		t.Errorf("store has %d records, want 0", store.count())
	}
}

func TestRun_Recursive(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "root.jpg"))
	writeFile(t, filepath.Join(tmpDir, "2021", "2021-05", "nested.jpg"))

	store := newFakeStore()
	s := newTestScanner(store, &fakeHasher{})

	res, err := s.Run([]string{tmpDir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Hashed != 2 {
		t.Errorf("Hashed = %d, want 2 (recursive)", res.Hashed)
	}
}

func TestRun_MultipleDirs(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	writeFile(t, filepath.Join(dir1, "a.jpg"))
	writeFile(t, filepath.Join(dir2, "b.mp4"))

	store := newFakeStore()
	s := newTestScanner(store, &fakeHasher{})

	res, err := s.Run([]string{dir1, dir2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Hashed != 2 {
		t.Errorf("Hashed = %d, want 2 from 2 dirs", res.Hashed)
	}
}

func TestRun_MissingDirLogsAndContinues(t *testing.T) {
	okDir := t.TempDir()
	writeFile(t, filepath.Join(okDir, "a.jpg"))

	store := newFakeStore()
	s := newTestScanner(store, &fakeHasher{})

	res, err := s.Run([]string{filepath.Join(okDir, "does-not-exist"), okDir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Hashed != 1 {
		t.Errorf("Hashed = %d, want 1", res.Hashed)
	}
}

func TestRun_ProgressCallback(t *testing.T) {
	tmpDir := t.TempDir()
	for _, f := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		writeFile(t, filepath.Join(tmpDir, f))
	}

	var callCount int64
	store := newFakeStore()
	s := newTestScanner(store, &fakeHasher{},
		WithWorkers(1),
		WithProgress(func(scanned, total int, current string) {
			atomic.AddInt64(&callCount, 1)
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
		}),
	)

	if _, err := s.Run([]string{tmpDir}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if callCount != 3 {
		t.Errorf("progress called %d times, want 3", callCount)
	}
}
