package media

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Store defines the interface for saving, retrieving, and deleting cached media assets
type Store interface {
	// Save writes data under filename inside the asset type's directory and
	// returns the relative path. Readers never observe a partial file.
	Save(assetType AssetType, filename string, data io.Reader) (string, error)
	// Get retrieves a reader for an asset
	Get(relativePath string) (io.ReadCloser, os.FileInfo, error)
	Exists(relativePath string) bool
	Delete(relativePath string) error
	// RelativePath builds the relative path of filename for assetType without touching the disk
	RelativePath(assetType AssetType, filename string) string
	GetFullPath(relativePath string) (string, error)
	EnsureDir(assetType AssetType) (string, error)
}

// LocalStorage implements the Store interface using the local filesystem
type LocalStorage struct {
	basePath  string               // absolute path to the MEDIA_STORAGE_PATH
	subDirMap map[AssetType]string // maps AssetType to subdirectory name (e.g., "thumbnails")
}

// NewLocalStorage creates a new local filesystem store
func NewLocalStorage(basePath string, subDirs map[AssetType]string) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	dirs := make(map[AssetType]string, len(subDirs))
	for assetType, subDir := range subDirs {
		fullPath := filepath.Join(absBasePath, subDir)
		if !strings.HasPrefix(filepath.Clean(fullPath), absBasePath) {
			return nil, fmt.Errorf("invalid subdirectory configuration: '%s' resolves outside base path '%s'", subDir, absBasePath)
		}
		dirs[assetType] = subDir
	}

	log.Printf("media.store: Initialized LocalStorage at %s", absBasePath)
	return &LocalStorage{basePath: absBasePath, subDirMap: dirs}, nil
}

func (ls *LocalStorage) subDir(assetType AssetType) string {
	if dir, ok := ls.subDirMap[assetType]; ok {
		return dir
	}
	return string(assetType)
}

func (ls *LocalStorage) RelativePath(assetType AssetType, filename string) string {
	return filepath.ToSlash(filepath.Join(ls.subDir(assetType), filepath.Base(filename)))
}

// EnsureDir creates the directory for the asset type if it doesn't exist
func (ls *LocalStorage) EnsureDir(assetType AssetType) (string, error) {
	dirPath, err := ls.GetFullPath(ls.subDir(assetType))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to ensure directory '%s': %w", dirPath, err)
	}
	return dirPath, nil
}

// Save streams data into a temp file next to the target and renames it into place.
func (ls *LocalStorage) Save(assetType AssetType, filename string, data io.Reader) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid filename '%s' for LocalStorage.Save", filename)
	}
	dir, err := ls.EnsureDir(assetType)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file in '%s': %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write data for '%s': %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file for '%s': %w", filename, err)
	}

	fullSavePath := filepath.Join(dir, filename)
	if err := os.Rename(tmpPath, fullSavePath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move asset into '%s': %w", fullSavePath, err)
	}

	log.Printf("media.store: Saved asset to %s", fullSavePath)
	return ls.RelativePath(assetType, filename), nil
}

func (ls *LocalStorage) Get(relativePath string) (io.ReadCloser, os.FileInfo, error) {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w at '%s'", ErrAssetNotFound, relativePath)
		}
		return nil, nil, fmt.Errorf("failed to open asset '%s': %w", relativePath, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat asset '%s': %w", relativePath, err)
	}

	return file, info, nil
}

func (ls *LocalStorage) Exists(relativePath string) bool {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes an asset file
func (ls *LocalStorage) Delete(relativePath string) error {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) { // Ignore "not exist" errors
		return fmt.Errorf("failed to delete asset '%s': %w", relativePath, err)
	}
	if err == nil {
		log.Printf("media.store: Deleted asset %s", fullPath)
	}
	return nil
}

// GetFullPath calculates the absolute path and performs security check
func (ls *LocalStorage) GetFullPath(relativePath string) (string, error) {
	// clean the relative path first to prevent simple traversal tricks
	cleanRelativePath := filepath.Clean(relativePath)

	absFullPath, err := filepath.Abs(filepath.Join(ls.basePath, cleanRelativePath))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", relativePath, err)
	}

	if absFullPath != ls.basePath && !strings.HasPrefix(absFullPath, ls.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: access denied for '%s'", relativePath)
	}

	return absFullPath, nil
}
