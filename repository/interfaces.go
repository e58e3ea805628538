package repository

import (
	"context"
	"time"

	"github.com/tombaby2015-max/family-photo-album-google/models"
)

// FolderRepositoryInterface defines the methods for folder record operations.
// Get returns database.ErrNotFound for unknown folders.
type FolderRepositoryInterface interface {
	Get(ctx context.Context, folderID string) (*models.Folder, error)
	Put(ctx context.Context, folderID string, folder *models.Folder) error
	Delete(ctx context.Context, folderID string) error
	ListIDs(ctx context.Context) ([]string, error)
	GetMany(ctx context.Context, folderIDs []string) (map[string]*models.Folder, error)
	GetAll(ctx context.Context) (map[string]*models.Folder, error)
}

// SectionRepositoryInterface defines the methods for per-folder section lists.
// A folder without a stored list has no sections.
type SectionRepositoryInterface interface {
	List(ctx context.Context, folderID string) ([]models.Section, error)
	Save(ctx context.Context, folderID string, sections []models.Section) error
	Delete(ctx context.Context, folderID string) error
	ListFolderIDs(ctx context.Context) ([]string, error)
}

// IndexRepositoryInterface defines the methods for the folders_index document.
// Load returns database.ErrNotFound when the document is absent.
type IndexRepositoryInterface interface {
	Load(ctx context.Context) ([]models.FolderIndexEntry, error)
	Save(ctx context.Context, entries []models.FolderIndexEntry) error
	Delete(ctx context.Context) error
}

// SessionRepositoryInterface defines the methods for admin session tokens.
type SessionRepositoryInterface interface {
	Create(ctx context.Context, token string, ttl time.Duration) error
	Exists(ctx context.Context, token string) (bool, error)
	Delete(ctx context.Context, token string) error
}
