package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tombaby2015-max/family-photo-album-google/drive"
)

const defaultFetchTries = 3

// Asset is an open image ready to be streamed to a client.
type Asset struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64 // -1 when unknown
}

type download struct {
	body        io.ReadCloser
	contentType string
}

// ImageFetcher serves thumbnails from the local cache, generating them from
// Drive on a miss, and proxies originals straight from Drive.
type ImageFetcher struct {
	provider  drive.Provider
	processor *Processor
	store     Store

	maxTries        uint
	initialInterval time.Duration
}

func NewImageFetcher(provider drive.Provider, processor *Processor, store Store) *ImageFetcher {
	return &ImageFetcher{
		provider:        provider,
		processor:       processor,
		store:           store,
		maxTries:        defaultFetchTries,
		initialInterval: 500 * time.Millisecond,
	}
}

// SetRetry overrides the download retry policy.
func (f *ImageFetcher) SetRetry(maxTries uint, initialInterval time.Duration) {
	f.maxTries = max(1, maxTries)
	f.initialInterval = initialInterval
}

func (f *ImageFetcher) download(ctx context.Context, fileID string) (download, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initialInterval

	op := func() (download, error) {
		body, contentType, err := f.provider.Download(ctx, fileID)
		if errors.Is(err, drive.ErrFileNotFound) {
			return download{}, backoff.Permanent(err)
		}
		if err != nil {
			log.Printf("media.fetcher: download of %s failed, may retry: %v", fileID, err)
			return download{}, err
		}
		return download{body: body, contentType: contentType}, nil
	}
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(f.maxTries))
}

// Original streams the file as stored in Drive.
func (f *ImageFetcher) Original(ctx context.Context, fileID string) (*Asset, error) {
	d, err := f.download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if d.contentType == "" {
		d.contentType = "application/octet-stream"
	}
	return &Asset{Body: d.body, ContentType: d.contentType, Size: -1}, nil
}

// Warm makes sure the thumbnail of fileID is cached.
func (f *ImageFetcher) Warm(ctx context.Context, fileID string) error {
	if f.store.Exists(f.processor.ThumbnailPath(fileID)) {
		return nil
	}
	d, err := f.download(ctx, fileID)
	if err != nil {
		return err
	}
	defer d.body.Close()

	if _, err := f.processor.GenerateThumbnail(fileID, d.body); err != nil {
		return err
	}
	return nil
}

// Thumbnail returns the cached thumbnail, generating it first if needed.
// Images the processor cannot decode are served as originals.
func (f *ImageFetcher) Thumbnail(ctx context.Context, fileID string) (*Asset, error) {
	err := f.Warm(ctx, fileID)
	if errors.Is(err, ErrUnsupportedImage) {
		log.Printf("media.fetcher: no thumbnail for %s, serving original", fileID)
		return f.Original(ctx, fileID)
	}
	if err != nil {
		return nil, err
	}

	body, info, err := f.store.Get(f.processor.ThumbnailPath(fileID))
	if err != nil {
		return nil, fmt.Errorf("failed to open thumbnail of %s: %w", fileID, err)
	}
	return &Asset{Body: body, ContentType: "image/jpeg", Size: info.Size()}, nil
}

// Fetch dispatches on the asset type.
func (f *ImageFetcher) Fetch(ctx context.Context, fileID string, assetType AssetType) (*Asset, error) {
	if assetType == AssetTypeOriginal {
		return f.Original(ctx, fileID)
	}
	return f.Thumbnail(ctx, fileID)
}
