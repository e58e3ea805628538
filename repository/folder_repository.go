package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/models"
)

// FolderRepository stores one JSON document per folder under folder:<id>.
type FolderRepository struct {
	Store database.Store
}

// NewFolderRepository creates a new instance of FolderRepository
func NewFolderRepository(store database.Store) *FolderRepository {
	return &FolderRepository{Store: store}
}

func decodeFolder(raw []byte) (*models.Folder, error) {
	var folder models.Folder
	if err := json.Unmarshal(raw, &folder); err != nil {
		return nil, err
	}
	if folder.Photos == nil {
		folder.Photos = []models.Photo{}
	}
	return &folder, nil
}

// Get loads one folder record.
func (r *FolderRepository) Get(ctx context.Context, folderID string) (*models.Folder, error) {
	raw, err := r.Store.Get(ctx, database.FolderKey(folderID))
	if err != nil {
		return nil, err
	}
	folder, err := decodeFolder(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode folder %s: %w", folderID, err)
	}
	return folder, nil
}

// Put writes the whole record, stamping the current schema.
func (r *FolderRepository) Put(ctx context.Context, folderID string, folder *models.Folder) error {
	folder.Schema = models.SchemaEmbedded
	if err := database.PutJSON(ctx, r.Store, database.FolderKey(folderID), folder, 0); err != nil {
		return fmt.Errorf("failed to save folder %s: %w", folderID, err)
	}
	return nil
}

func (r *FolderRepository) Delete(ctx context.Context, folderID string) error {
	return r.Store.Delete(ctx, database.FolderKey(folderID))
}

// ListIDs returns the IDs of all stored folders.
func (r *FolderRepository) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := r.Store.List(ctx, database.FolderPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, database.FolderIDFromKey(key))
	}
	return ids, nil
}

// GetMany batch-loads the given folders. Unknown IDs are absent from the
// result; undecodable records are logged and skipped.
func (r *FolderRepository) GetMany(ctx context.Context, folderIDs []string) (map[string]*models.Folder, error) {
	keys := make([]string, 0, len(folderIDs))
	for _, id := range folderIDs {
		keys = append(keys, database.FolderKey(id))
	}

	values, err := r.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load folders: %w", err)
	}

	folders := make(map[string]*models.Folder, len(values))
	for key, raw := range values {
		folder, err := decodeFolder(raw)
		if err != nil {
			log.Printf("repository: skipping undecodable record %s: %v", key, err)
			continue
		}
		folders[database.FolderIDFromKey(key)] = folder
	}
	return folders, nil
}

// GetAll loads every stored folder.
func (r *FolderRepository) GetAll(ctx context.Context) (map[string]*models.Folder, error) {
	ids, err := r.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetMany(ctx, ids)
}
