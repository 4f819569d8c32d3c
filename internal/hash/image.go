package hash

import (
	"fmt"
	"image"
	"os"

	"github.com/corona10/goimagehash"

	// Image format decoders for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Resurrectum/media-structurer/internal/models"
)

// phashSize is the per-axis perceptual hash resolution. 16x16 yields a
// 256-bit fingerprint, precise enough that exact-equality grouping works.
const phashSize = 16

// Image computes the perceptual hash record for an image file. RAW files
// in TIFF containers decode as well; formats the decoders reject return
// an error and are skipped by the caller.
func Image(path string) (*models.HashRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	phash, width, height, err := perceptualHash(path)
	if err != nil {
		return nil, err
	}

	return &models.HashRecord{
		Path:           path,
		PerceptualHash: phash,
		FileSize:       info.Size(),
		ModTime:        info.ModTime(),
		MediaType:      models.MediaImage,
		Width:          width,
		Height:         height,
	}, nil
}

func perceptualHash(path string) (phash string, width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", 0, 0, fmt.Errorf("decoding %s: %w", path, err)
	}

	h, err := goimagehash.ExtPerceptionHash(img, phashSize, phashSize)
	if err != nil {
		return "", 0, 0, fmt.Errorf("perceptual hash of %s: %w", path, err)
	}

	bounds := img.Bounds()
	return h.ToString(), bounds.Dx(), bounds.Dy(), nil
}
