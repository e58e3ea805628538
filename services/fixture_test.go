package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/drive"
	"github.com/tombaby2015-max/family-photo-album-google/repository"
)

const testRootID = "root"

// fakeDrive is an in-memory Provider. Listings are served one file per page
// so paging is always exercised.
type fakeDrive struct {
	mu       sync.Mutex
	folders  []drive.RemoteFolder
	files    map[string][]drive.RemoteFile
	failList map[string]error
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: make(map[string][]drive.RemoteFile), failList: make(map[string]error)}
}

func (d *fakeDrive) addFolder(id, name string, fileNames ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.folders = append(d.folders, drive.RemoteFolder{ID: id, Name: name})
	for _, n := range fileNames {
		d.files[id] = append(d.files[id], drive.RemoteFile{ID: id + "-" + n, Name: n, MimeType: "image/jpeg", CreatedTime: "2024-05-01T10:00:00Z"})
	}
}

func (d *fakeDrive) addFile(folderID, fileID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[folderID] = append(d.files[folderID], drive.RemoteFile{ID: fileID, Name: name, MimeType: "image/jpeg"})
}

func (d *fakeDrive) removeFile(folderID, fileID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	files := d.files[folderID][:0]
	for _, f := range d.files[folderID] {
		if f.ID != fileID {
			files = append(files, f)
		}
	}
	d.files[folderID] = files
}

func (d *fakeDrive) removeFolder(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	folders := d.folders[:0]
	for _, f := range d.folders {
		if f.ID != id {
			folders = append(folders, f)
		}
	}
	d.folders = folders
	delete(d.files, id)
}

func (d *fakeDrive) renameFolder(id, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.folders {
		if d.folders[i].ID == id {
			d.folders[i].Name = name
		}
	}
}

func (d *fakeDrive) ListFolders(ctx context.Context, parentID string) ([]drive.RemoteFolder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if parentID != testRootID {
		return nil, drive.ErrFileNotFound
	}
	return append([]drive.RemoteFolder(nil), d.folders...), nil
}

func (d *fakeDrive) ListImages(ctx context.Context, folderID, pageToken string) (drive.FilePage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failList[folderID]; err != nil {
		return drive.FilePage{}, err
	}
	files := d.files[folderID]
	start := 0
	if pageToken != "" {
		for i, f := range files {
			if f.ID == pageToken {
				start = i
			}
		}
	}
	if start >= len(files) {
		return drive.FilePage{}, nil
	}
	page := drive.FilePage{Files: []drive.RemoteFile{files[start]}}
	if start+1 < len(files) {
		page.NextPageToken = files[start+1].ID
	}
	return page, nil
}

func (d *fakeDrive) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	return nil, "", errors.New("not implemented")
}

type recordingWarmer struct {
	ids []string
}

func (w *recordingWarmer) Warm(fileIDs ...string) {
	w.ids = append(w.ids, fileIDs...)
	sort.Strings(w.ids)
}

type fixture struct {
	ctx      context.Context
	store    *database.MemoryStore
	drive    *fakeDrive
	folders  *repository.FolderRepository
	sections *repository.SectionRepository
	index    *IndexService
	sync     *SyncService
	gallery  *GalleryService
	sectSvc  *SectionService
	warmer   *recordingWarmer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		ctx:      context.Background(),
		store:    store,
		drive:    newFakeDrive(),
		folders:  repository.NewFolderRepository(store),
		sections: repository.NewSectionRepository(store),
		warmer:   &recordingWarmer{},
	}
	f.index = NewIndexService(f.folders, repository.NewIndexRepository(store))
	f.sync = NewSyncService(f.drive, f.folders, f.sections, f.index, testRootID, 1)
	f.sync.SetWarmer(f.warmer)
	f.gallery = NewGalleryService(f.folders, f.sections, f.index)
	f.sectSvc = NewSectionService(f.sections, f.folders, f.index)
	return f
}

func ptr[T any](v T) *T {
	return &v
}

func photoNames(t *testing.T, f *fixture, folderID string, asAdmin bool) []string {
	t.Helper()
	photos, err := f.gallery.ListPhotos(f.ctx, folderID, asAdmin)
	if err != nil {
		t.Fatalf("list photos: %v", err)
	}
	names := make([]string, 0, len(photos))
	for _, p := range photos {
		names = append(names, p.Name)
	}
	return names
}

func hasPrefixKey(keys []string, prefix string) bool {
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}
