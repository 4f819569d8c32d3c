package hash

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Resurrectum/media-structurer/internal/models"
)

const (
	probeTimeout   = 10 * time.Second
	extractTimeout = 30 * time.Second
)

// videoInfo is the subset of stream properties the store keeps.
type videoInfo struct {
	width    int
	height   int
	duration float64
}

// Video computes the perceptual hash record for a video file. A single
// representative frame is extracted with ffmpeg and hashed like an image,
// so identical videos land on identical fingerprints.
func Video(path string) (*models.HashRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	vi, err := probeVideo(path)
	if err != nil {
		return nil, err
	}

	frame, err := extractFrame(path, vi.duration)
	if err != nil {
		return nil, err
	}
	defer os.Remove(frame)

	phash, _, _, err := perceptualHash(frame)
	if err != nil {
		return nil, fmt.Errorf("hashing frame of %s: %w", path, err)
	}

	return &models.HashRecord{
		Path:           path,
		PerceptualHash: phash,
		FileSize:       info.Size(),
		ModTime:        info.ModTime(),
		MediaType:      models.MediaVideo,
		Width:          vi.width,
		Height:         vi.height,
		Duration:       vi.duration,
	}, nil
}

// probeVideo reads width, height and duration from the first video stream.
func probeVideo(path string) (*videoInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	fields := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(fields) < 3 {
		return nil, fmt.Errorf("ffprobe %s: unexpected output %q", path, strings.TrimSpace(string(out)))
	}

	vi := &videoInfo{}
	if vi.width, err = strconv.Atoi(fields[0]); err != nil {
		return nil, fmt.Errorf("ffprobe %s: bad width %q", path, fields[0])
	}
	if vi.height, err = strconv.Atoi(fields[1]); err != nil {
		return nil, fmt.Errorf("ffprobe %s: bad height %q", path, fields[1])
	}
	// Some containers report duration as N/A on the stream; treat it as 0
	// and fall back to an early frame.
	if d, err := strconv.ParseFloat(fields[2], 64); err == nil {
		vi.duration = d
	}
	return vi, nil
}

// extractFrame writes one frame, taken at 10% of the duration but at
// least one second in, to a temporary JPEG and returns its path.
func extractFrame(path string, duration float64) (string, error) {
	offset := duration * 0.1
	if offset < 1 {
		offset = 1
	}

	frame := filepath.Join(os.TempDir(), "media-structurer-frame-"+uuid.New().String()+".jpg")

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", strconv.FormatFloat(offset, 'f', 2, 64),
		"-i", path,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		frame,
	)
	if err := cmd.Run(); err != nil {
		os.Remove(frame)
		return "", fmt.Errorf("ffmpeg frame extraction from %s: %w", path, err)
	}
	return frame, nil
}
