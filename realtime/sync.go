package realtime

import (
	"github.com/tombaby2015-max/family-photo-album-google/services"
)

// SyncObserver forwards sync progress to every connected client.
func (h *Hub) SyncObserver() services.SyncObserver {
	return func(ev services.SyncEvent) {
		h.Broadcast(syncEvent(ev))
	}
}

func syncEvent(ev services.SyncEvent) Event {
	out := Event{
		Type:     ev.Type,
		FolderID: ev.FolderID,
		Title:    ev.Title,
	}
	if ev.Type != services.SyncStarted {
		r := ev.Result
		out.Counts = map[string]int{
			"syncedFolders":  r.CreatedFolders,
			"syncedPhotos":   r.CreatedPhotos,
			"deletedFolders": r.DeletedFolders,
			"deletedPhotos":  r.DeletedPhotos,
		}
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}
