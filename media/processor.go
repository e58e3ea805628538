package media

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailJpegQuality   = 90
	ThumbnailFileExtension = ".jpg"
)

// Processor turns downloaded originals into cached JPEG thumbnails.
type Processor struct {
	store   Store
	maxSize int
}

func NewProcessor(store Store, maxSize int) *Processor {
	if maxSize <= 0 {
		maxSize = 600
	}
	return &Processor{store: store, maxSize: maxSize}
}

// ThumbnailPath is the relative store path of a file's thumbnail.
func (p *Processor) ThumbnailPath(fileID string) string {
	return p.store.RelativePath(AssetTypeThumbnail, fileID+ThumbnailFileExtension)
}

// thumbnailSize scales the longest side down to maxSize; smaller images keep their size.
func thumbnailSize(origWidth, origHeight, maxSize int) (int, int) {
	var newWidth, newHeight int
	if origWidth > origHeight {
		if origWidth <= maxSize {
			newWidth, newHeight = origWidth, origHeight
		} else {
			newWidth = maxSize
			newHeight = int(math.Round(float64(origHeight) * (float64(maxSize) / float64(origWidth))))
		}
	} else {
		if origHeight <= maxSize {
			newWidth, newHeight = origWidth, origHeight
		} else {
			newHeight = maxSize
			newWidth = int(math.Round(float64(origWidth) * (float64(maxSize) / float64(origHeight))))
		}
	}
	return max(1, newWidth), max(1, newHeight)
}

// GenerateThumbnail decodes src, honoring EXIF orientation, and saves a JPEG
// whose longest side is at most maxSize. Returns the relative path of the thumbnail.
func (p *Processor) GenerateThumbnail(fileID string, src io.Reader) (string, error) {
	originalImg, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, fileID)
		}
		return "", fmt.Errorf("failed to decode %s: %w", fileID, err)
	}

	origBounds := originalImg.Bounds()
	if origBounds.Dx() <= 0 || origBounds.Dy() <= 0 {
		return "", fmt.Errorf("invalid original image dimensions: %dx%d", origBounds.Dx(), origBounds.Dy())
	}
	newWidth, newHeight := thumbnailSize(origBounds.Dx(), origBounds.Dy(), p.maxSize)

	thumb := imaging.Resize(originalImg, newWidth, newHeight, imaging.Lanczos)

	reader, writer := io.Pipe()

	go func() {
		defer writer.Close()
		err := imaging.Encode(writer, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailJpegQuality))
		if err != nil {
			log.Printf("processor: Failed to encode thumbnail: %v", err)
			writer.CloseWithError(fmt.Errorf("thumbnail encoding failed: %w", err))
		}
	}()

	savedRelPath, err := p.store.Save(AssetTypeThumbnail, fileID+ThumbnailFileExtension, reader)
	if err != nil {
		reader.CloseWithError(err)
		return "", fmt.Errorf("failed to save thumbnail via store: %w", err)
	}

	log.Printf("processor: Generated thumbnail for %s (%dx%d) at %s", fileID, newWidth, newHeight, savedRelPath)
	return savedRelPath, nil
}
