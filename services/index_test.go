package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/models"
)

func TestIndex_RebuildsWhenMissing(t *testing.T) {
	f := newFixture(t)
	folder := models.NewFolder("One")
	folder.Photos = []models.Photo{{ID: "p1", FileID: "p1", Name: "p1.jpg"}, {ID: "p2", FileID: "p2", Name: "p2.jpg", Hidden: true}}
	require.NoError(t, f.folders.Put(f.ctx, "F1", folder))

	entries, err := f.index.Load(f.ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].PhotoCount)
	assert.Equal(t, 2, entries[0].PhotoCountAdmin)

	_, err = f.store.Get(f.ctx, database.FoldersIndexKey)
	assert.NoError(t, err, "rebuild should persist the index")
}

func TestIndex_RebuildsWhenCorrupt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.folders.Put(f.ctx, "F1", models.NewFolder("One")))
	require.NoError(t, f.store.Put(f.ctx, database.FoldersIndexKey, []byte("{not json"), 0))

	entries, err := f.gallery.ListFolders(f.ctx, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "One", entries[0].Title)
}

func TestIndex_PatchLeavesMissingIndexAlone(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.index.PatchOne(f.ctx, "F1", models.NewFolder("One")))

	_, err := f.store.Get(f.ctx, database.FoldersIndexKey)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestIndex_PatchAppendsUnknownFolder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.folders.Put(f.ctx, "F1", models.NewFolder("One")))
	_, err := f.index.Rebuild(f.ctx)
	require.NoError(t, err)

	require.NoError(t, f.index.PatchMany(f.ctx, map[string]*models.Folder{
		"F1": models.NewFolder("One renamed"),
		"F2": models.NewFolder("Two"),
	}))

	entries, err := f.index.Load(f.ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "One renamed", entries[0].Title)
	assert.Equal(t, "F2", entries[1].ID)
}
