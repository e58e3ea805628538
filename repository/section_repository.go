package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/models"
)

// SectionRepository stores each folder's sections as one JSON array under sections:<id>.
type SectionRepository struct {
	Store database.Store
}

func NewSectionRepository(store database.Store) *SectionRepository {
	return &SectionRepository{Store: store}
}

func (r *SectionRepository) List(ctx context.Context, folderID string) ([]models.Section, error) {
	sections := []models.Section{}
	err := database.GetJSON(ctx, r.Store, database.SectionsKey(folderID), &sections)
	if errors.Is(err, database.ErrNotFound) {
		return []models.Section{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sections of %s: %w", folderID, err)
	}
	return sections, nil
}

func (r *SectionRepository) Save(ctx context.Context, folderID string, sections []models.Section) error {
	if sections == nil {
		sections = []models.Section{}
	}
	if err := database.PutJSON(ctx, r.Store, database.SectionsKey(folderID), sections, 0); err != nil {
		return fmt.Errorf("failed to save sections of %s: %w", folderID, err)
	}
	return nil
}

func (r *SectionRepository) Delete(ctx context.Context, folderID string) error {
	return r.Store.Delete(ctx, database.SectionsKey(folderID))
}

func (r *SectionRepository) ListFolderIDs(ctx context.Context) ([]string, error) {
	keys, err := r.Store.List(ctx, database.SectionsPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, database.SectionsPrefix))
	}
	return ids, nil
}
