// Package storage persists perceptual hash records in SQLite. Rows are
// keyed by absolute file path; a stored modification time gates
// recomputation. Rows for vanished files are removed only by an explicit
// Cleanup call, never as a side effect of reads.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Resurrectum/media-structurer/internal/models"
)

// Store handles persistence of media hash records.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if necessary) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Current schema version
const schemaVersion = 2

// migrations defines all schema migrations.
// Each migration must be idempotent (safe to run multiple times).
var migrations = []struct {
	version     int
	description string
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // Handled by base schema creation
	},
	{
		version:     2,
		description: "Add media_type index for stats queries",
		up: `
			CREATE INDEX IF NOT EXISTS idx_media_hashes_media_type ON media_hashes(media_type);
		`,
	},
}

// init creates the database schema
func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS media_hashes (
		file_path TEXT PRIMARY KEY,
		perceptual_hash TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		modification_time INTEGER NOT NULL,
		media_type TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		duration REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_media_hashes_hash ON media_hashes(perceptual_hash);
	`

	if _, err = s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migrate runs pending schema migrations
func (s *Store) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion || m.up == "" {
			continue
		}
		if _, err := s.db.Exec(m.up); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}
		s.setSchemaVersion(m.version)
	}

	return nil
}

func (s *Store) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

func (s *Store) setSchemaVersion(version int) {
	s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces the record for rec.Path. Each call is its
// own transaction, so an interrupted scan leaves only complete rows.
func (s *Store) Upsert(rec *models.HashRecord) error {
	duration := sql.NullFloat64{}
	if rec.MediaType == models.MediaVideo {
		duration = sql.NullFloat64{Float64: rec.Duration, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO media_hashes
			(file_path, perceptual_hash, file_size, modification_time, media_type, width, height, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Path,
		rec.PerceptualHash,
		rec.FileSize,
		rec.ModTime.UnixNano(),
		rec.MediaType,
		rec.Width,
		rec.Height,
		duration,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", rec.Path, err)
	}
	return nil
}

// IsFresh reports whether a stored row exists for path with exactly the
// given modification time. Anything else (no row, different time) means
// the file must be rehashed.
func (s *Store) IsFresh(path string, modTime time.Time) (bool, error) {
	var stored int64
	err := s.db.QueryRow(`SELECT modification_time FROM media_hashes WHERE file_path = ?`, path).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", path, err)
	}
	return stored == modTime.UnixNano(), nil
}

// Get returns the record for path, or nil when none is stored.
func (s *Store) Get(path string) (*models.HashRecord, error) {
	row := s.db.QueryRow(`
		SELECT file_path, perceptual_hash, file_size, modification_time, media_type, width, height, duration, created_at
		FROM media_hashes
		WHERE file_path = ?
	`, path)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// AllRecords returns every stored record ordered by path.
func (s *Store) AllRecords() ([]*models.HashRecord, error) {
	rows, err := s.db.Query(`
		SELECT file_path, perceptual_hash, file_size, modification_time, media_type, width, height, duration, created_at
		FROM media_hashes
		ORDER BY file_path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var recs []*models.HashRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Delete removes the record for path.
func (s *Store) Delete(path string) error {
	_, err := s.db.Exec(`DELETE FROM media_hashes WHERE file_path = ?`, path)
	return err
}

// Cleanup removes rows whose file no longer exists and returns how many
// were removed. Only a definite not-exist counts; stat failures keep the
// row.
func (s *Store) Cleanup() (int, error) {
	rows, err := s.db.Query(`SELECT file_path FROM media_hashes`)
	if err != nil {
		return 0, fmt.Errorf("failed to query paths: %w", err)
	}

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, err
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM media_hashes WHERE file_path = ?`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, path := range stale {
		if _, err := stmt.Exec(path); err != nil {
			return 0, fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Rebuild drops all hash records; the next scan starts from scratch.
func (s *Store) Rebuild() error {
	_, err := s.db.Exec(`DELETE FROM media_hashes`)
	return err
}

// Stats summarizes the store contents.
type Stats struct {
	TotalFiles     int
	Images         int
	Videos         int
	UniqueHashes   int
	DuplicateFiles int
}

// Stats returns store-wide counts.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}
	queries := []struct {
		dst   *int
		query string
	}{
		{&st.TotalFiles, `SELECT COUNT(*) FROM media_hashes`},
		{&st.Images, `SELECT COUNT(*) FROM media_hashes WHERE media_type = 'image'`},
		{&st.Videos, `SELECT COUNT(*) FROM media_hashes WHERE media_type = 'video'`},
		{&st.UniqueHashes, `SELECT COUNT(DISTINCT perceptual_hash) FROM media_hashes`},
		{&st.DuplicateFiles, `
			SELECT COALESCE(SUM(c), 0) FROM (
				SELECT COUNT(*) AS c FROM media_hashes GROUP BY perceptual_hash HAVING c > 1
			)`},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(q.query).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("failed to query stats: %w", err)
		}
	}
	return st, nil
}

// GroupsByHash returns the members of every hash shared by two or more
// files. Groups come largest-first; members are ordered by file size
// descending, then path.
func (s *Store) GroupsByHash() ([][]*models.HashRecord, error) {
	rows, err := s.db.Query(`
		SELECT perceptual_hash
		FROM media_hashes
		GROUP BY perceptual_hash
		HAVING COUNT(*) > 1
		ORDER BY COUNT(*) DESC, perceptual_hash
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var groups [][]*models.HashRecord
	for _, h := range hashes {
		members, err := s.membersByHash(h)
		if err != nil {
			return nil, err
		}
		if len(members) < 2 {
			continue
		}
		groups = append(groups, members)
	}
	return groups, nil
}

func (s *Store) membersByHash(hash string) ([]*models.HashRecord, error) {
	rows, err := s.db.Query(`
		SELECT file_path, perceptual_hash, file_size, modification_time, media_type, width, height, duration, created_at
		FROM media_hashes
		WHERE perceptual_hash = ?
		ORDER BY file_size DESC, file_path
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to query hash members: %w", err)
	}
	defer rows.Close()

	var recs []*models.HashRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.HashRecord, error) {
	rec := &models.HashRecord{}
	var modTime int64
	var duration sql.NullFloat64
	var createdAt string
	err := row.Scan(
		&rec.Path,
		&rec.PerceptualHash,
		&rec.FileSize,
		&modTime,
		&rec.MediaType,
		&rec.Width,
		&rec.Height,
		&duration,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ModTime = time.Unix(0, modTime)
	rec.Duration = duration.Float64
	rec.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return rec, nil
}
