// Package config loads the TOML configuration that drives every command.
// The file is the single source of truth for source and destination
// directories; commands receive a *Config explicitly, there is no global
// state.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/Resurrectum/media-structurer/internal/models"
)

// Config mirrors config.toml.
type Config struct {
	// Careful selects copy mode: sources are left untouched and every
	// placement is a copy. When false, files are moved.
	Careful bool `toml:"careful"`

	SourceDirs []string `toml:"source_dirs"`

	DestDirPictures    string `toml:"dest_dir_pictures"`
	DestDirPicturesRaw string `toml:"dest_dir_pictures_raw"`
	DestDirVideos      string `toml:"dest_dir_videos"`
	DestNonMedia       string `toml:"dest_non_media"`

	// NoExifDirectoriesAll is the subdirectory, below each category
	// destination, that receives files without a resolvable capture date.
	NoExifDirectoriesAll string `toml:"no_exif_directories_all"`

	LogDir string `toml:"log_dir"`

	FileExtensions FileExtensions `toml:"FileExtensions"`
}

// FileExtensions groups the per-category extension lists.
type FileExtensions struct {
	ImageExtensions []string `toml:"image_extensions"`
	RawExtensions   []string `toml:"raw_extensions"`
	VideoExtensions []string `toml:"video_extensions"`
}

// Read decodes a config from r and applies defaults.
func Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// ReadFromFile decodes the config at path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func (c *Config) applyDefaults() {
	if c.NoExifDirectoriesAll == "" {
		c.NoExifDirectoriesAll = "no_exif"
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if len(c.FileExtensions.ImageExtensions) == 0 {
		c.FileExtensions.ImageExtensions = []string{".png", ".jpg", ".jpeg", ".tiff"}
	}
	if len(c.FileExtensions.RawExtensions) == 0 {
		c.FileExtensions.RawExtensions = []string{".raw", ".cr2", ".nef", ".dng"}
	}
	if len(c.FileExtensions.VideoExtensions) == 0 {
		c.FileExtensions.VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".mts", ".m2ts", ".webm"}
	}
}

// Validate checks the fields the organize pipeline cannot run without.
func (c *Config) Validate() error {
	if len(c.SourceDirs) == 0 {
		return fmt.Errorf("config: source_dirs is empty")
	}
	if c.DestDirPictures == "" || c.DestDirPicturesRaw == "" || c.DestDirVideos == "" {
		return fmt.Errorf("config: all three media destination directories must be set")
	}
	if c.DestNonMedia == "" {
		return fmt.Errorf("config: dest_non_media must be set")
	}
	return nil
}

// ExtensionTable builds the classification table from the configured lists.
func (c *Config) ExtensionTable() models.ExtensionTable {
	return models.NewExtensionTable(
		c.FileExtensions.ImageExtensions,
		c.FileExtensions.RawExtensions,
		c.FileExtensions.VideoExtensions,
	)
}

// MediaDirs returns the organized library roots, the trees the hash scan
// walks.
func (c *Config) MediaDirs() []string {
	return []string{c.DestDirPictures, c.DestDirPicturesRaw, c.DestDirVideos}
}
