package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/facette/natsort"
	"golang.org/x/sync/errgroup"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/models"
	"github.com/tombaby2015-max/family-photo-album-google/repository"
)

// GalleryService serves folder and photo reads and the admin edits on them.
// Visibility filtering happens here, driven by asAdmin.
type GalleryService struct {
	folders  repository.FolderRepositoryInterface
	sections repository.SectionRepositoryInterface
	index    *IndexService
}

func NewGalleryService(folders repository.FolderRepositoryInterface, sections repository.SectionRepositoryInterface, index *IndexService) *GalleryService {
	return &GalleryService{folders: folders, sections: sections, index: index}
}

// FolderPatch carries the admin-editable folder fields; nil means unchanged.
// An empty CoverPhotoID removes the cover.
type FolderPatch struct {
	Title        *string `json:"title"`
	Hidden       *bool   `json:"hidden"`
	Order        *int    `json:"order"`
	CoverPhotoID *string `json:"cover_photo_id"`
	CoverX       *int    `json:"cover_x"`
	CoverY       *int    `json:"cover_y"`
	CoverScale   *int    `json:"cover_scale"`
}

// PhotoPatch carries the admin-editable photo fields.
type PhotoPatch struct {
	Hidden *bool `json:"hidden"`
}

// OrderItem assigns a manual position to a folder or section.
type OrderItem struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// PhotoOrderItem assigns a position to a photo. SectionID nil leaves the
// section untouched, an empty string clears it.
type PhotoOrderItem struct {
	ID        string  `json:"id"`
	Order     int     `json:"order"`
	SectionID *string `json:"section_id"`
}

// FolderStorageInfo is one row of StorageInfo.
type FolderStorageInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Hidden     bool   `json:"hidden"`
	PhotoCount int    `json:"photo_count"`
}

type StorageInfo struct {
	Folders       []FolderStorageInfo `json:"folders"`
	TotalPhotos   int                 `json:"totalPhotos"`
	DeletedPhotos int                 `json:"deletedPhotos"`
	ApproxBytes   int64               `json:"approxBytes"`
	ApproxSize    string              `json:"approxSize"`
}

type ClearResult struct {
	DeletedFolders int `json:"deletedFolders"`
	DeletedPhotos  int `json:"deletedPhotos"`
}

func (s *GalleryService) getFolder(ctx context.Context, folderID string) (*models.Folder, error) {
	folder, err := s.folders.Get(ctx, folderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("folder", folderID)
	}
	if err != nil {
		return nil, storeErr("load folder "+folderID, err)
	}
	return folder, nil
}

// saveFolder writes the record first, then patches its index entry.
func (s *GalleryService) saveFolder(ctx context.Context, folderID string, folder *models.Folder) error {
	if err := s.folders.Put(ctx, folderID, folder); err != nil {
		return storeErr("save folder "+folderID, err)
	}
	return s.index.PatchOne(ctx, folderID, folder)
}

// ListFolders returns index entries ordered by their manual order; hidden
// folders are only included for admins.
func (s *GalleryService) ListFolders(ctx context.Context, asAdmin bool) ([]models.FolderIndexEntry, error) {
	entries, err := s.index.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.FolderIndexEntry, 0, len(entries))
	for _, e := range entries {
		if e.Hidden && !asAdmin {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// ListPhotos returns the non-deleted photos of a folder; hidden photos are
// only included for admins.
func (s *GalleryService) ListPhotos(ctx context.Context, folderID string, asAdmin bool) ([]models.Photo, error) {
	folder, err := s.getFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	photos := make([]models.Photo, 0, len(folder.Photos))
	for _, p := range folder.Photos {
		if p.Deleted || (p.Hidden && !asAdmin) {
			continue
		}
		photos = append(photos, p)
	}
	SortPhotos(photos)
	return photos, nil
}

// SortPhotos puts photos with a manual order first, ascending, then the rest
// by natural file name order.
func SortPhotos(photos []models.Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		a, b := photos[i], photos[j]
		switch {
		case a.Order != nil && b.Order != nil:
			return *a.Order < *b.Order
		case a.Order != nil:
			return true
		case b.Order != nil:
			return false
		}
		return natsort.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

func validPercent(v int) bool {
	return v >= 0 && v <= 100
}

func (s *GalleryService) UpdateFolder(ctx context.Context, folderID string, patch FolderPatch) (*models.Folder, error) {
	folder, err := s.getFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		folder.Title = title
	}
	if patch.Hidden != nil {
		folder.Hidden = *patch.Hidden
	}
	if patch.Order != nil {
		folder.Order = *patch.Order
	}
	if patch.CoverPhotoID != nil {
		if *patch.CoverPhotoID == "" {
			folder.Cover = nil
		} else {
			if folder.FindPhoto(*patch.CoverPhotoID) == nil {
				return nil, notFound("photo", *patch.CoverPhotoID)
			}
			if folder.Cover == nil {
				folder.Cover = models.NewCover(*patch.CoverPhotoID)
			} else {
				folder.Cover.PhotoID = *patch.CoverPhotoID
			}
		}
	}
	if patch.CoverX != nil || patch.CoverY != nil || patch.CoverScale != nil {
		if folder.Cover == nil {
			return nil, invalid("folder has no cover to position")
		}
		if patch.CoverX != nil {
			if !validPercent(*patch.CoverX) {
				return nil, invalid("cover_x must be between 0 and 100")
			}
			folder.Cover.X = *patch.CoverX
		}
		if patch.CoverY != nil {
			if !validPercent(*patch.CoverY) {
				return nil, invalid("cover_y must be between 0 and 100")
			}
			folder.Cover.Y = *patch.CoverY
		}
		if patch.CoverScale != nil {
			if *patch.CoverScale <= 0 {
				return nil, invalid("cover_scale must be positive")
			}
			folder.Cover.Scale = *patch.CoverScale
		}
	}

	if err := s.saveFolder(ctx, folderID, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// ReorderFolders applies manual positions to many folders at once and returns
// how many existed.
func (s *GalleryService) ReorderFolders(ctx context.Context, orders []OrderItem) (int, error) {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	folders, err := s.folders.GetMany(ctx, ids)
	if err != nil {
		return 0, storeErr("load folders", err)
	}

	updated := make(map[string]*models.Folder, len(folders))
	for _, o := range orders {
		if folder, ok := folders[o.ID]; ok {
			folder.Order = o.Order
			updated[o.ID] = folder
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(database.BatchChunkSize)
	for id, folder := range updated {
		g.Go(func() error {
			if err := s.folders.Put(gctx, id, folder); err != nil {
				return storeErr("save folder "+id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.index.PatchMany(ctx, updated); err != nil {
		return 0, err
	}
	return len(updated), nil
}

func (s *GalleryService) UpdatePhoto(ctx context.Context, folderID, photoID string, patch PhotoPatch) (*models.Photo, error) {
	folder, err := s.getFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	photo := folder.FindPhoto(photoID)
	if photo == nil {
		return nil, notFound("photo", photoID)
	}
	if patch.Hidden != nil {
		photo.Hidden = *patch.Hidden
	}
	if err := s.saveFolder(ctx, folderID, folder); err != nil {
		return nil, err
	}
	return photo, nil
}

// DeletePhoto soft-deletes a photo; the element stays in the list.
func (s *GalleryService) DeletePhoto(ctx context.Context, folderID, photoID string) error {
	folder, err := s.getFolder(ctx, folderID)
	if err != nil {
		return err
	}
	photo := folder.FindPhoto(photoID)
	if photo == nil {
		return notFound("photo", photoID)
	}
	if photo.Deleted {
		return nil
	}
	photo.Deleted = true
	return s.saveFolder(ctx, folderID, folder)
}

// ReorderPhotos sets manual positions and optionally sections. Unknown photo
// IDs are ignored.
func (s *GalleryService) ReorderPhotos(ctx context.Context, folderID string, orders []PhotoOrderItem) error {
	folder, err := s.getFolder(ctx, folderID)
	if err != nil {
		return err
	}
	for _, item := range orders {
		photo := folder.FindPhoto(item.ID)
		if photo == nil {
			continue
		}
		order := item.Order
		photo.Order = &order
		if item.SectionID != nil {
			setSection(photo, *item.SectionID)
		}
	}
	return s.saveFolder(ctx, folderID, folder)
}

func setSection(photo *models.Photo, sectionID string) {
	if sectionID == "" {
		photo.SectionID = nil
		return
	}
	photo.SectionID = &sectionID
}

// AssignSection moves a photo into a section; an empty sectionID unassigns it.
func (s *GalleryService) AssignSection(ctx context.Context, folderID, photoID, sectionID string) error {
	folder, err := s.getFolder(ctx, folderID)
	if err != nil {
		return err
	}
	photo := folder.FindPhoto(photoID)
	if photo == nil {
		return notFound("photo", photoID)
	}
	if sectionID != "" {
		sections, err := s.sections.List(ctx, folderID)
		if err != nil {
			return storeErr("load sections", err)
		}
		if findSection(sections, sectionID) < 0 {
			return notFound("section", sectionID)
		}
	}
	setSection(photo, sectionID)
	return s.saveFolder(ctx, folderID, folder)
}

// StorageInfo summarizes what the store holds, read from the records rather
// than the index.
func (s *GalleryService) StorageInfo(ctx context.Context) (StorageInfo, error) {
	folders, err := s.folders.GetAll(ctx)
	if err != nil {
		return StorageInfo{}, storeErr("load folders", err)
	}

	info := StorageInfo{Folders: make([]FolderStorageInfo, 0, len(folders))}
	for id, f := range folders {
		active := f.ActivePhotoCount()
		info.TotalPhotos += active
		info.DeletedPhotos += len(f.Photos) - active
		info.Folders = append(info.Folders, FolderStorageInfo{ID: id, Title: f.Title, Hidden: f.Hidden, PhotoCount: active})
		if raw, err := json.Marshal(f); err == nil {
			info.ApproxBytes += int64(len(raw))
		}
	}
	sort.Slice(info.Folders, func(i, j int) bool { return info.Folders[i].ID < info.Folders[j].ID })
	info.ApproxSize = humanize.Bytes(uint64(info.ApproxBytes))
	return info, nil
}

// ClearStorage removes every folder record, every section list and the index.
// Sessions and the cached Drive token are kept.
func (s *GalleryService) ClearStorage(ctx context.Context) (ClearResult, error) {
	var result ClearResult
	ids, err := s.folders.ListIDs(ctx)
	if err != nil {
		return result, storeErr("list folders", err)
	}
	folders, err := s.folders.GetMany(ctx, ids)
	if err != nil {
		return result, storeErr("load folders", err)
	}
	for _, id := range ids {
		if err := s.folders.Delete(ctx, id); err != nil {
			return result, storeErr("delete folder "+id, err)
		}
		result.DeletedFolders++
		if f, ok := folders[id]; ok {
			result.DeletedPhotos += len(f.Photos)
		}
	}

	if err := s.index.Drop(ctx); err != nil {
		return result, err
	}

	sectionFolders, err := s.sections.ListFolderIDs(ctx)
	if err != nil {
		return result, storeErr("list sections", err)
	}
	for _, id := range sectionFolders {
		if err := s.sections.Delete(ctx, id); err != nil {
			return result, storeErr("delete sections "+id, err)
		}
	}
	return result, nil
}
