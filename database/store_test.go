package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) map[string]Store {
	t.Helper()

	gormStore, err := OpenGormStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gormStore.Close() })

	mr := miniredis.RunT(t)
	valkeyStore, err := NewValkeyStore(mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = valkeyStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": gormStore,
		"valkey": valkeyStore,
	}
}

func TestStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "folder:missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Put(ctx, "folder:a", []byte(`{"title":"A"}`), 0))
			got, err := store.Get(ctx, "folder:a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"title":"A"}`, string(got))

			require.NoError(t, store.Put(ctx, "folder:a", []byte(`{"title":"B"}`), 0))
			got, err = store.Get(ctx, "folder:a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"title":"B"}`, string(got))

			require.NoError(t, store.Delete(ctx, "folder:a"))
			_, err = store.Get(ctx, "folder:a")
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting an absent key is not an error
			assert.NoError(t, store.Delete(ctx, "folder:a"))
		})
	}
}

func TestStore_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"folder:b", "folder:a", "sections:a", "folders_index", "Folder:c"} {
				require.NoError(t, store.Put(ctx, key, []byte("{}"), 0))
			}

			keys, err := store.List(ctx, FolderPrefix)
			require.NoError(t, err)
			assert.Equal(t, []string{"folder:a", "folder:b"}, keys)

			keys, err = store.List(ctx, "nothing:")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestStore_BatchGet(t *testing.T) {
	ctx := context.Background()
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			var keys []string
			for i := 0; i < 120; i++ {
				key := fmt.Sprintf("folder:%03d", i)
				keys = append(keys, key)
				require.NoError(t, store.Put(ctx, key, []byte(fmt.Sprintf(`{"order":%d}`, i)), 0))
			}
			keys = append(keys, "folder:missing")

			got, err := store.BatchGet(ctx, keys)
			require.NoError(t, err)
			assert.Len(t, got, 120)
			assert.JSONEq(t, `{"order":42}`, string(got["folder:042"]))
			assert.NotContains(t, got, "folder:missing")
		})
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Put(ctx, GoogleAccessTokenKey, []byte("tok"), time.Minute))
	got, err := store.Get(ctx, GoogleAccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(got))

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, GoogleAccessTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_TTLAndPurge(t *testing.T) {
	ctx := context.Background()
	store, err := OpenGormStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, AdminTokenKey("t1"), []byte("1"), time.Hour))
	require.NoError(t, store.Put(ctx, AdminTokenKey("t2"), []byte("1"), 0))

	keys, err := store.List(ctx, AdminTokenPrefix)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	now = now.Add(2 * time.Hour)
	_, err = store.Get(ctx, AdminTokenKey("t1"))
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err = store.List(ctx, AdminTokenPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{AdminTokenKey("t2")}, keys)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestValkeyStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store, err := NewValkeyStore(mr.Addr(), "")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, GoogleAccessTokenKey, []byte("tok"), 55*time.Minute))
	assert.Equal(t, 55*time.Minute, mr.TTL(GoogleAccessTokenKey))

	mr.FastForward(56 * time.Minute)
	_, err = store.Get(ctx, GoogleAccessTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSplitLegacyPhotoKey(t *testing.T) {
	folderID, photoID, ok := SplitLegacyPhotoKey("photo:F1:P1")
	assert.True(t, ok)
	assert.Equal(t, "F1", folderID)
	assert.Equal(t, "P1", photoID)

	for _, key := range []string{"folder:F1", "photo:F1", "photo::P1", "photo:F1:"} {
		_, _, ok := SplitLegacyPhotoKey(key)
		assert.False(t, ok, key)
	}
}
