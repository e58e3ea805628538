package services

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/models"
)

// BackupService exports and imports the whole mirror: folder records and
// section lists. Sessions, the Drive token and the index are not part of it.
type BackupService struct {
	store database.Store
	index *IndexService
	now   func() time.Time
}

func NewBackupService(store database.Store, index *IndexService) *BackupService {
	return &BackupService{store: store, index: index, now: time.Now}
}

type RestoreResult struct {
	RestoredFolders int `json:"restoredFolders"`
	RestoredPhotos  int `json:"restoredPhotos"`
}

func (s *BackupService) dumpPrefix(ctx context.Context, prefix string) ([]models.BackupItem, error) {
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, storeErr("list "+prefix, err)
	}
	values, err := s.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, storeErr("read "+prefix, err)
	}

	items := make([]models.BackupItem, 0, len(values))
	for _, key := range keys {
		raw, ok := values[key]
		if !ok || !json.Valid(raw) {
			continue
		}
		items = append(items, models.BackupItem{Key: key, Value: json.RawMessage(raw)})
	}
	return items, nil
}

// Backup serializes every folder record and section list in the current schema.
func (s *BackupService) Backup(ctx context.Context) (*models.Backup, error) {
	folders, err := s.dumpPrefix(ctx, database.FolderPrefix)
	if err != nil {
		return nil, err
	}
	sections, err := s.dumpPrefix(ctx, database.SectionsPrefix)
	if err != nil {
		return nil, err
	}
	return &models.Backup{
		Folders:  folders,
		Sections: sections,
		Created:  s.now().UTC().Format(time.RFC3339),
		Schema:   models.SchemaEmbedded,
	}, nil
}

// Restore writes the document's records over the existing ones (last write
// wins per key, nothing is merged) and rebuilds the index. Legacy documents
// are converted to embedded photo lists first.
func (s *BackupService) Restore(ctx context.Context, doc *models.Backup) (RestoreResult, error) {
	if doc == nil || doc.Folders == nil {
		return RestoreResult{}, invalid("invalid backup format")
	}

	var (
		result RestoreResult
		err    error
	)
	if doc.IsLegacy() {
		result, err = s.restoreLegacy(ctx, doc)
	} else {
		result, err = s.restoreCurrent(ctx, doc)
	}
	if err != nil {
		return result, err
	}

	for _, item := range doc.Sections {
		if !strings.HasPrefix(item.Key, database.SectionsPrefix) || !isArray(item.Value) {
			log.Printf("backup: skipping invalid sections item %q", item.Key)
			continue
		}
		if err := s.store.Put(ctx, item.Key, item.Value, 0); err != nil {
			return result, storeErr("restore "+item.Key, err)
		}
	}

	if _, err := s.index.Rebuild(ctx); err != nil {
		return result, err
	}
	log.Printf("backup: restored %d folder(s) and %d photo(s) from schema %d document", result.RestoredFolders, result.RestoredPhotos, doc.Schema)
	return result, nil
}

// restoreCurrent re-encodes every folder value through models.Folder. Records
// written by the original service keep their cover as cover_url/cover_x/...
// fields, which are translated the same way as in legacy documents.
func (s *BackupService) restoreCurrent(ctx context.Context, doc *models.Backup) (RestoreResult, error) {
	var result RestoreResult
	for _, item := range doc.Folders {
		folderID, ok := strings.CutPrefix(item.Key, database.FolderPrefix)
		if !ok || folderID == "" || !isObject(item.Value) {
			log.Printf("backup: skipping invalid folder item %q", item.Key)
			continue
		}
		folder := currentFolder(gjson.ParseBytes(item.Value))
		if err := database.PutJSON(ctx, s.store, item.Key, folder, 0); err != nil {
			return result, storeErr("restore "+item.Key, err)
		}
		result.RestoredFolders++
		result.RestoredPhotos += len(folder.Photos)
	}
	return result, nil
}

// restoreLegacy groups photo:<folder>:<photo> entries under their folder.
// Photos whose folder is not in the document are dropped.
func (s *BackupService) restoreLegacy(ctx context.Context, doc *models.Backup) (RestoreResult, error) {
	var result RestoreResult
	folders := make(map[string]*models.Folder)
	for _, item := range doc.Folders {
		folderID, ok := strings.CutPrefix(item.Key, database.FolderPrefix)
		if !ok || folderID == "" || !isObject(item.Value) {
			log.Printf("backup: skipping invalid legacy folder item %q", item.Key)
			continue
		}
		folders[folderID] = legacyFolder(gjson.ParseBytes(item.Value))
	}

	for _, item := range doc.Photos {
		folderID, photoID, ok := database.SplitLegacyPhotoKey(item.Key)
		if !ok || !isObject(item.Value) {
			continue
		}
		folder, ok := folders[folderID]
		if !ok {
			continue
		}
		folder.Photos = append(folder.Photos, legacyPhoto(photoID, gjson.ParseBytes(item.Value)))
		result.RestoredPhotos++
	}

	ids := make([]string, 0, len(folders))
	for id := range folders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := database.PutJSON(ctx, s.store, database.FolderKey(id), folders[id], 0); err != nil {
			return result, storeErr("restore folder "+id, err)
		}
		result.RestoredFolders++
	}
	return result, nil
}

// isObject rejects null and scalar values, which the original service skipped
// on restore.
func isObject(raw []byte) bool {
	return gjson.ValidBytes(raw) && gjson.ParseBytes(raw).IsObject()
}

func isArray(raw []byte) bool {
	return gjson.ValidBytes(raw) && gjson.ParseBytes(raw).IsArray()
}

// coverAt builds a cover for photoID, keeping the defaults for any position
// field that is absent.
func coverAt(photoID string, x, y, scale gjson.Result) *models.Cover {
	cover := models.NewCover(photoID)
	if x.Exists() && x.Type == gjson.Number {
		cover.X = int(x.Int())
	}
	if y.Exists() && y.Type == gjson.Number {
		cover.Y = int(y.Int())
	}
	if scale.Exists() && scale.Type == gjson.Number {
		cover.Scale = int(scale.Int())
	}
	return cover
}

func legacyFolder(v gjson.Result) *models.Folder {
	folder := models.NewFolder(v.Get("title").String())
	folder.Hidden = v.Get("hidden").Bool()
	folder.Order = int(v.Get("order").Int())

	if photoID := PhotoIDFromCoverURL(v.Get("cover_url").String()); photoID != "" {
		folder.Cover = coverAt(photoID, v.Get("cover_x"), v.Get("cover_y"), v.Get("cover_scale"))
	}
	return folder
}

// currentFolder decodes a schema 2 folder value. A cover object wins over
// cover_url fields.
func currentFolder(v gjson.Result) *models.Folder {
	folder := legacyFolder(v)
	if c := v.Get("cover"); c.IsObject() {
		if photoID := c.Get("photo_id").String(); photoID != "" {
			folder.Cover = coverAt(photoID, c.Get("x"), c.Get("y"), c.Get("scale"))
		}
	}
	v.Get("photos").ForEach(func(_, p gjson.Result) bool {
		if !p.IsObject() {
			return true
		}
		photoID := p.Get("id").String()
		if photoID == "" {
			photoID = p.Get("file_id").String()
		}
		if photoID != "" {
			folder.Photos = append(folder.Photos, legacyPhoto(photoID, p))
		}
		return true
	})
	return folder
}

func legacyPhoto(photoID string, v gjson.Result) models.Photo {
	photo := models.Photo{
		ID:        photoID,
		FileID:    v.Get("file_id").String(),
		Name:      v.Get("name").String(),
		CreatedAt: v.Get("date").String(),
		Deleted:   v.Get("deleted").Bool(),
		Hidden:    v.Get("hidden").Bool(),
	}
	if photo.FileID == "" {
		photo.FileID = photoID
	}
	if order := v.Get("order"); order.Exists() && order.Type == gjson.Number {
		n := int(order.Int())
		photo.Order = &n
	}
	if section := v.Get("section_id").String(); section != "" {
		photo.SectionID = &section
	}
	return photo
}

// PhotoIDFromCoverURL extracts the file ID from a legacy cover URL such as
// https://host/photo?id=<file>&size=thumb. A bare ID is returned as is.
func PhotoIDFromCoverURL(coverURL string) string {
	if coverURL == "" {
		return ""
	}
	if !strings.Contains(coverURL, "?") && !strings.Contains(coverURL, "/") {
		return coverURL
	}
	u, err := url.Parse(coverURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}
