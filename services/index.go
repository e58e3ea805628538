package services

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/models"
	"github.com/tombaby2015-max/family-photo-album-google/repository"
)

// IndexService maintains folders_index, the denormalized folder summary.
// The index is derived data: every entry can be recomputed from the folder
// records, and callers always write the record before patching the index.
type IndexService struct {
	folders repository.FolderRepositoryInterface
	index   repository.IndexRepositoryInterface
}

func NewIndexService(folders repository.FolderRepositoryInterface, index repository.IndexRepositoryInterface) *IndexService {
	return &IndexService{folders: folders, index: index}
}

// Rebuild scans every folder record and replaces the index with a single put.
func (s *IndexService) Rebuild(ctx context.Context) ([]models.FolderIndexEntry, error) {
	folders, err := s.folders.GetAll(ctx)
	if err != nil {
		return nil, storeErr("rebuild index", err)
	}

	entries := make([]models.FolderIndexEntry, 0, len(folders))
	for id, folder := range folders {
		entries = append(entries, folder.IndexEntry(id))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	if err := s.index.Save(ctx, entries); err != nil {
		return nil, storeErr("save index", err)
	}
	log.Printf("index: rebuilt folders_index with %d folder(s)", len(entries))
	return entries, nil
}

// Load returns the stored index, rebuilding it when it is missing or unreadable.
func (s *IndexService) Load(ctx context.Context) ([]models.FolderIndexEntry, error) {
	entries, err := s.index.Load(ctx)
	if err == nil {
		return entries, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		log.Printf("index: failed to read folders_index, rebuilding: %v", err)
	}
	return s.Rebuild(ctx)
}

// PatchOne recomputes the entry of one folder and rewrites the index.
func (s *IndexService) PatchOne(ctx context.Context, folderID string, folder *models.Folder) error {
	return s.PatchMany(ctx, map[string]*models.Folder{folderID: folder})
}

// PatchMany recomputes the entries of the given folders in one index write.
// A missing index is left alone since the next Load rebuilds it; an unreadable
// one is rebuilt.
func (s *IndexService) PatchMany(ctx context.Context, folders map[string]*models.Folder) error {
	if len(folders) == 0 {
		return nil
	}
	entries, err := s.index.Load(ctx)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		log.Printf("index: failed to read folders_index for patch, rebuilding: %v", err)
		_, err := s.Rebuild(ctx)
		return err
	}

	pending := make(map[string]*models.Folder, len(folders))
	for id, folder := range folders {
		pending[id] = folder
	}
	for i := range entries {
		if folder, ok := pending[entries[i].ID]; ok {
			entries[i] = folder.IndexEntry(entries[i].ID)
			delete(pending, entries[i].ID)
		}
	}
	// folders the index has not seen yet
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		entries = append(entries, pending[id].IndexEntry(id))
	}

	if err := s.index.Save(ctx, entries); err != nil {
		return storeErr("save index", err)
	}
	return nil
}

// Drop deletes the index document.
func (s *IndexService) Drop(ctx context.Context) error {
	if err := s.index.Delete(ctx); err != nil {
		return storeErr("delete index", err)
	}
	return nil
}
