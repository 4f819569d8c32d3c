package organize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Placer executes placement decisions. In careful mode every placement
// is a copy and sources stay untouched; otherwise files are moved.
type Placer struct {
	careful bool
}

func NewPlacer(careful bool) *Placer {
	return &Placer{careful: careful}
}

// Place executes a decision and returns the final path, or "" when the
// decision was a skip. Destination directories are created as needed.
func (p *Placer) Place(source string, d Decision) (string, error) {
	if d.Op == OpSkip {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(d.Target), 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(d.Target), err)
	}

	if p.careful {
		if err := copyFile(source, d.Target); err != nil {
			return "", err
		}
		return d.Target, nil
	}
	if err := moveFile(source, d.Target); err != nil {
		return "", err
	}
	return d.Target, nil
}

// moveFile moves a file, falling back to copy+delete for cross-filesystem
// moves.
func moveFile(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := copyFile(src, dest); err != nil {
			return err
		}
		return os.Remove(src)
	}
	return err
}

// copyFile copies src to dest, preserving file mode and modification time.
func copyFile(src, dest string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, srcFile); err != nil {
		destFile.Close()
		os.Remove(dest) // Clean up on failure
		return err
	}
	if err := destFile.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	return os.Chtimes(dest, time.Now(), srcInfo.ModTime())
}
