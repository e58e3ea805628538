// Package drive talks to Google Drive, the authoritative source of the
// gallery's folders and image files.
package drive

import (
	"context"
	"errors"
	"io"
)

// ErrFileNotFound is returned when Drive answers 404 for a file or folder.
var ErrFileNotFound = errors.New("drive file not found")

// RemoteFolder is a direct child folder of the configured root.
type RemoteFolder struct {
	ID   string
	Name string
}

// RemoteFile is an image file inside a gallery folder.
type RemoteFile struct {
	ID          string
	Name        string
	MimeType    string
	CreatedTime string
}

// FilePage is one page of a folder listing. An empty NextPageToken means the
// listing is exhausted.
type FilePage struct {
	Files         []RemoteFile
	NextPageToken string
}

// Provider is the subset of Drive the gallery needs.
type Provider interface {
	// ListFolders returns every non-trashed folder directly under parentID.
	ListFolders(ctx context.Context, parentID string) ([]RemoteFolder, error)
	// ListImages returns one page of image files directly under folderID.
	ListImages(ctx context.Context, folderID, pageToken string) (FilePage, error)
	// Download streams the file content. The caller closes the reader.
	Download(ctx context.Context, fileID string) (io.ReadCloser, string, error)
}

// ListAllImages pages through ListImages until the listing is exhausted.
func ListAllImages(ctx context.Context, p Provider, folderID string) ([]RemoteFile, error) {
	var files []RemoteFile
	pageToken := ""
	for {
		page, err := p.ListImages(ctx, folderID, pageToken)
		if err != nil {
			return nil, err
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// ErrNotConfigured is returned by Disabled for every call.
var ErrNotConfigured = errors.New("google drive credentials are not configured")

// Disabled stands in for Drive when no service account is configured, so
// the gallery can still serve what the store already holds.
type Disabled struct{}

func (Disabled) ListFolders(ctx context.Context, parentID string) ([]RemoteFolder, error) {
	return nil, ErrNotConfigured
}

func (Disabled) ListImages(ctx context.Context, folderID, pageToken string) (FilePage, error) {
	return FilePage{}, ErrNotConfigured
}

func (Disabled) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	return nil, "", ErrNotConfigured
}
