package repository

import (
	"context"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/models"
)

// IndexRepository reads and writes the single folders_index document.
type IndexRepository struct {
	Store database.Store
}

func NewIndexRepository(store database.Store) *IndexRepository {
	return &IndexRepository{Store: store}
}

func (r *IndexRepository) Load(ctx context.Context) ([]models.FolderIndexEntry, error) {
	var entries []models.FolderIndexEntry
	if err := database.GetJSON(ctx, r.Store, database.FoldersIndexKey, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.FolderIndexEntry{}
	}
	return entries, nil
}

func (r *IndexRepository) Save(ctx context.Context, entries []models.FolderIndexEntry) error {
	if entries == nil {
		entries = []models.FolderIndexEntry{}
	}
	return database.PutJSON(ctx, r.Store, database.FoldersIndexKey, entries, 0)
}

func (r *IndexRepository) Delete(ctx context.Context) error {
	return r.Store.Delete(ctx, database.FoldersIndexKey)
}
