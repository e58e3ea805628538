package realtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tombaby2015-max/family-photo-album-google/services"
)

func TestSyncEventMapping(t *testing.T) {
	started := syncEvent(services.SyncEvent{Type: services.SyncStarted})
	assert.Equal(t, services.SyncStarted, started.Type)
	assert.Nil(t, started.Counts)

	failed := syncEvent(services.SyncEvent{
		Type:   services.SyncFailed,
		Result: services.SyncResult{CreatedFolders: 1, CreatedPhotos: 4},
		Err:    errors.New("drive down"),
	})
	assert.Equal(t, "drive down", failed.Error)
	assert.Equal(t, 1, failed.Counts["syncedFolders"])
	assert.Equal(t, 4, failed.Counts["syncedPhotos"])
	assert.Equal(t, 0, failed.Counts["deletedPhotos"])
}
