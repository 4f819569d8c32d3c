package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Resurrectum/media-structurer/internal/models"
)

const sampleConfig = `
careful = true
source_dirs = ["/data/inbox", "/data/phone"]
dest_dir_pictures = "/library/pictures"
dest_dir_pictures_raw = "/library/raw"
dest_dir_videos = "/library/videos"
dest_non_media = "/library/other"
no_exif_directories_all = "undated"
log_dir = "/var/log/media"

[FileExtensions]
image_extensions = [".jpg", ".png"]
raw_extensions = [".cr2"]
video_extensions = [".mp4"]
`

func TestRead(t *testing.T) {
	cfg, err := Read(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !cfg.Careful {
		t.Error("careful should be true")
	}
	if len(cfg.SourceDirs) != 2 || cfg.SourceDirs[0] != "/data/inbox" {
		t.Errorf("unexpected source_dirs: %v", cfg.SourceDirs)
	}
	if cfg.DestDirPictures != "/library/pictures" {
		t.Errorf("unexpected dest_dir_pictures: %q", cfg.DestDirPictures)
	}
	if cfg.NoExifDirectoriesAll != "undated" {
		t.Errorf("unexpected no_exif_directories_all: %q", cfg.NoExifDirectoriesAll)
	}
	if cfg.LogDir != "/var/log/media" {
		t.Errorf("unexpected log_dir: %q", cfg.LogDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed on complete config: %v", err)
	}
}

func TestReadDefaults(t *testing.T) {
	cfg, err := Read(strings.NewReader(`source_dirs = ["/in"]`))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if cfg.NoExifDirectoriesAll != "no_exif" {
		t.Errorf("default no_exif subdir = %q, want no_exif", cfg.NoExifDirectoriesAll)
	}
	if cfg.LogDir != "logs" {
		t.Errorf("default log_dir = %q, want logs", cfg.LogDir)
	}
	if len(cfg.FileExtensions.ImageExtensions) == 0 {
		t.Error("default image extensions not applied")
	}
	if len(cfg.FileExtensions.VideoExtensions) == 0 {
		t.Error("default video extensions not applied")
	}
}

func TestReadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile failed: %v", err)
	}
	if cfg.DestDirVideos != "/library/videos" {
		t.Errorf("unexpected dest_dir_videos: %q", cfg.DestDirVideos)
	}

	if _, err := ReadFromFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadInvalidTOML(t *testing.T) {
	if _, err := Read(strings.NewReader("careful = [broken")); err == nil {
		t.Error("expected decode error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no sources", func(c *Config) { c.SourceDirs = nil }},
		{"no picture dest", func(c *Config) { c.DestDirPictures = "" }},
		{"no raw dest", func(c *Config) { c.DestDirPicturesRaw = "" }},
		{"no video dest", func(c *Config) { c.DestDirVideos = "" }},
		{"no non-media dest", func(c *Config) { c.DestNonMedia = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Read(strings.NewReader(sampleConfig))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExtensionTable(t *testing.T) {
	cfg, err := Read(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	table := cfg.ExtensionTable()

	if got := table.Classify("x.jpg"); got != models.KindImage {
		t.Errorf("jpg classified as %v", got)
	}
	if got := table.Classify("x.cr2"); got != models.KindRaw {
		t.Errorf("cr2 classified as %v", got)
	}
	if got := table.Classify("x.mp4"); got != models.KindVideo {
		t.Errorf("mp4 classified as %v", got)
	}
	if got := table.Classify("x.doc"); got != models.KindNonMedia {
		t.Errorf("doc classified as %v", got)
	}
}
