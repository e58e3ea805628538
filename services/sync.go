package services

import (
	"context"
	"log"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/tombaby2015-max/family-photo-album-google/drive"
	"github.com/tombaby2015-max/family-photo-album-google/models"
	"github.com/tombaby2015-max/family-photo-album-google/repository"
)

// SyncResult counts what one sync run changed.
type SyncResult struct {
	CreatedFolders int `json:"syncedFolders"`
	CreatedPhotos  int `json:"syncedPhotos"`
	DeletedFolders int `json:"deletedFolders"`
	DeletedPhotos  int `json:"deletedPhotos"`
}

// Sync progress event types.
const (
	SyncStarted  = "sync_started"
	SyncFolder   = "sync_folder"
	SyncFinished = "sync_finished"
	SyncFailed   = "sync_failed"
)

// SyncEvent reports the progress of a running sync. For SyncFolder events
// Result holds the counters of that folder alone.
type SyncEvent struct {
	Type     string
	FolderID string
	Title    string
	Result   SyncResult
	Err      error
}

// SyncObserver receives progress events. It may be called from several
// goroutines at once.
type SyncObserver func(SyncEvent)

// PhotoWarmer is told about photos that appeared during a sync.
type PhotoWarmer interface {
	Warm(fileIDs ...string)
}

// SyncService reconciles the Drive tree under the root folder with the
// stored folder records. Runs are idempotent: a second run without Drive
// changes writes nothing and reports zero changes.
type SyncService struct {
	provider     drive.Provider
	folders      repository.FolderRepositoryInterface
	sections     repository.SectionRepositoryInterface
	index        *IndexService
	rootFolderID string
	concurrency  int
	warmer       PhotoWarmer
	observer     SyncObserver
}

func NewSyncService(
	provider drive.Provider,
	folders repository.FolderRepositoryInterface,
	sections repository.SectionRepositoryInterface,
	index *IndexService,
	rootFolderID string,
	concurrency int,
) *SyncService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SyncService{
		provider:     provider,
		folders:      folders,
		sections:     sections,
		index:        index,
		rootFolderID: rootFolderID,
		concurrency:  concurrency,
	}
}

// SetWarmer registers a receiver for newly created photo IDs.
func (s *SyncService) SetWarmer(w PhotoWarmer) {
	s.warmer = w
}

// SetObserver registers a receiver for progress events.
func (s *SyncService) SetObserver(fn SyncObserver) {
	s.observer = fn
}

func (s *SyncService) emit(ev SyncEvent) {
	if s.observer != nil {
		s.observer(ev)
	}
}

type folderOutcome struct {
	created       bool
	createdPhotos int
	deletedPhotos int
	newPhotoIDs   []string
}

// Sync runs one reconciliation. On a Drive failure the run stops, folders
// already written stay written, and the counters of the completed folders are
// returned together with the error.
func (s *SyncService) Sync(ctx context.Context) (result SyncResult, err error) {
	start := time.Now()
	s.emit(SyncEvent{Type: SyncStarted})
	defer func() {
		if err != nil {
			s.emit(SyncEvent{Type: SyncFailed, Result: result, Err: err})
			return
		}
		s.emit(SyncEvent{Type: SyncFinished, Result: result})
	}()

	remote, err := s.provider.ListFolders(ctx, s.rootFolderID)
	if err != nil {
		return result, upstreamErr("list drive folders", err)
	}
	remoteIDs := make(map[string]struct{}, len(remote))
	for _, rf := range remote {
		remoteIDs[rf.ID] = struct{}{}
	}

	knownIDs, err := s.knownFolderIDs(ctx)
	if err != nil {
		return result, err
	}
	existing, err := s.folders.GetMany(ctx, knownIDs)
	if err != nil {
		return result, storeErr("load folders", err)
	}

	for _, id := range knownIDs {
		if _, ok := remoteIDs[id]; ok {
			continue
		}
		if folder, ok := existing[id]; ok {
			result.DeletedPhotos += folder.ActivePhotoCount()
		}
		if err := s.folders.Delete(ctx, id); err != nil {
			return result, storeErr("delete folder "+id, err)
		}
		if err := s.sections.Delete(ctx, id); err != nil {
			return result, storeErr("delete sections "+id, err)
		}
		result.DeletedFolders++
		log.Printf("sync: folder %s no longer in drive, removed", id)
	}

	p := pool.NewWithResults[folderOutcome]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(s.concurrency)
	for _, rf := range remote {
		folder := existing[rf.ID]
		p.Go(func(ctx context.Context) (folderOutcome, error) {
			out, err := s.syncFolder(ctx, rf, folder)
			if err == nil {
				s.emit(SyncEvent{
					Type:     SyncFolder,
					FolderID: rf.ID,
					Title:    rf.Name,
					Result:   SyncResult{CreatedPhotos: out.createdPhotos, DeletedPhotos: out.deletedPhotos},
				})
			}
			return out, err
		})
	}
	outcomes, runErr := p.Wait()

	var newPhotoIDs []string
	for _, o := range outcomes {
		if o.created {
			result.CreatedFolders++
		}
		result.CreatedPhotos += o.createdPhotos
		result.DeletedPhotos += o.deletedPhotos
		newPhotoIDs = append(newPhotoIDs, o.newPhotoIDs...)
	}

	// the index must not keep listing folders removed above, even when the run aborts
	if _, err := s.index.Rebuild(ctx); err != nil {
		if runErr != nil {
			log.Printf("sync: index rebuild after failed run also failed: %v", err)
			return result, runErr
		}
		return result, err
	}
	if runErr != nil {
		log.Printf("sync: aborted after %s: %v", time.Since(start), runErr)
		return result, runErr
	}

	if s.warmer != nil && len(newPhotoIDs) > 0 {
		s.warmer.Warm(newPhotoIDs...)
	}

	log.Printf("sync: done in %s: +%d folders, +%d photos, -%d folders, -%d photos",
		time.Since(start), result.CreatedFolders, result.CreatedPhotos, result.DeletedFolders, result.DeletedPhotos)
	return result, nil
}

// knownFolderIDs merges the index with the stored records so a stale index
// cannot hide an orphaned folder.
func (s *SyncService) knownFolderIDs(ctx context.Context) ([]string, error) {
	entries, err := s.index.Load(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := s.folders.ListIDs(ctx)
	if err != nil {
		return nil, storeErr("list folders", err)
	}

	seen := make(map[string]struct{}, len(entries)+len(stored))
	ids := make([]string, 0, len(entries)+len(stored))
	for _, e := range entries {
		if _, ok := seen[e.ID]; !ok {
			seen[e.ID] = struct{}{}
			ids = append(ids, e.ID)
		}
	}
	for _, id := range stored {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// syncFolder diffs one Drive folder against its record. Photos are matched by
// Drive file ID only.
func (s *SyncService) syncFolder(ctx context.Context, rf drive.RemoteFolder, folder *models.Folder) (folderOutcome, error) {
	var out folderOutcome
	if folder == nil {
		folder = models.NewFolder(rf.Name)
		out.created = true
	}

	files, err := drive.ListAllImages(ctx, s.provider, rf.ID)
	if err != nil {
		return folderOutcome{}, upstreamErr("list images of "+rf.ID, err)
	}

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.ID] = struct{}{}
	}
	known := make(map[string]struct{}, len(folder.Photos))
	changed := out.created

	for i := range folder.Photos {
		photo := &folder.Photos[i]
		known[photo.ID] = struct{}{}
		if _, ok := present[photo.ID]; !ok && !photo.Deleted {
			photo.Deleted = true
			out.deletedPhotos++
			changed = true
		}
	}

	for _, f := range files {
		if _, ok := known[f.ID]; ok {
			continue
		}
		known[f.ID] = struct{}{}
		folder.Photos = append(folder.Photos, models.Photo{
			ID:        f.ID,
			FileID:    f.ID,
			Name:      f.Name,
			CreatedAt: f.CreatedTime,
		})
		out.createdPhotos++
		out.newPhotoIDs = append(out.newPhotoIDs, f.ID)
		changed = true
	}

	if changed {
		if err := s.folders.Put(ctx, rf.ID, folder); err != nil {
			return folderOutcome{}, storeErr("save folder "+rf.ID, err)
		}
	}
	return out, nil
}
