package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombaby2015-max/family-photo-album-google/drive"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	ls, err := NewLocalStorage(t.TempDir(), map[AssetType]string{AssetTypeThumbnail: "thumbnails"})
	require.NoError(t, err)
	return ls
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalStorage_SaveGetDelete(t *testing.T) {
	ls := newTestStorage(t)

	rel, err := ls.Save(AssetTypeThumbnail, "abc.jpg", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "thumbnails/abc.jpg", rel)
	assert.True(t, ls.Exists(rel))

	rc, info, err := ls.Get(rel)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "data", string(body))
	assert.Equal(t, int64(4), info.Size())

	require.NoError(t, ls.Delete(rel))
	require.NoError(t, ls.Delete(rel))
	assert.False(t, ls.Exists(rel))
	_, _, err = ls.Get(rel)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ls := newTestStorage(t)

	_, err := ls.Save(AssetTypeThumbnail, "../escape.jpg", strings.NewReader("x"))
	assert.Error(t, err)
	_, err = ls.GetFullPath("../../etc/passwd")
	assert.Error(t, err)
	assert.False(t, ls.Exists("../outside"))
}

func TestLocalStorage_FailedWriteLeavesNoFile(t *testing.T) {
	ls := newTestStorage(t)
	pr, pw := io.Pipe()
	go func() {
		pw.Write([]byte("partial"))
		pw.CloseWithError(errors.New("boom"))
	}()

	_, err := ls.Save(AssetTypeThumbnail, "broken.jpg", pr)
	require.Error(t, err)
	assert.False(t, ls.Exists("thumbnails/broken.jpg"))
}

func TestThumbnailSize(t *testing.T) {
	w, h := thumbnailSize(1200, 800, 600)
	assert.Equal(t, []int{600, 400}, []int{w, h})
	w, h = thumbnailSize(800, 1600, 600)
	assert.Equal(t, []int{300, 600}, []int{w, h})
	w, h = thumbnailSize(200, 100, 600)
	assert.Equal(t, []int{200, 100}, []int{w, h})
	w, h = thumbnailSize(5000, 1, 600)
	assert.Equal(t, []int{600, 1}, []int{w, h})
}

func TestProcessor_GenerateThumbnail(t *testing.T) {
	ls := newTestStorage(t)
	p := NewProcessor(ls, 600)

	rel, err := p.GenerateThumbnail("file1", bytes.NewReader(pngBytes(t, 1200, 800)))
	require.NoError(t, err)
	assert.Equal(t, p.ThumbnailPath("file1"), rel)

	full, err := ls.GetFullPath(rel)
	require.NoError(t, err)
	img, err := imaging.Open(full)
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestProcessor_UnsupportedFormat(t *testing.T) {
	p := NewProcessor(newTestStorage(t), 600)
	_, err := p.GenerateThumbnail("heic", strings.NewReader("ftypheic not really an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

type fakeProvider struct {
	drive.Provider
	calls    atomic.Int32
	failures int32
	err      error
	body     []byte
	mime     string
}

func (f *fakeProvider) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, "", f.err
	}
	if n <= f.failures {
		return nil, "", errors.New("temporary failure")
	}
	return io.NopCloser(bytes.NewReader(f.body)), f.mime, nil
}

func newTestFetcher(t *testing.T, provider drive.Provider) *ImageFetcher {
	t.Helper()
	ls := newTestStorage(t)
	f := NewImageFetcher(provider, NewProcessor(ls, 100), ls)
	f.SetRetry(3, time.Millisecond)
	return f
}

func TestFetcher_ThumbnailIsCached(t *testing.T) {
	provider := &fakeProvider{body: pngBytes(t, 400, 200), mime: "image/png"}
	f := newTestFetcher(t, provider)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		asset, err := f.Thumbnail(ctx, "file1")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", asset.ContentType)
		assert.Positive(t, asset.Size)
		require.NoError(t, asset.Body.Close())
	}
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestFetcher_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{body: []byte("raw"), mime: "image/heic", failures: 2}
	f := newTestFetcher(t, provider)

	asset, err := f.Fetch(context.Background(), "file1", AssetTypeOriginal)
	require.NoError(t, err)
	defer asset.Body.Close()
	assert.Equal(t, "image/heic", asset.ContentType)
	assert.Equal(t, int32(3), provider.calls.Load())
}

func TestFetcher_GivesUpAfterMaxTries(t *testing.T) {
	provider := &fakeProvider{failures: 10}
	f := newTestFetcher(t, provider)

	_, err := f.Original(context.Background(), "file1")
	require.Error(t, err)
	assert.Equal(t, int32(3), provider.calls.Load())
}

func TestFetcher_NotFoundIsNotRetried(t *testing.T) {
	provider := &fakeProvider{err: drive.ErrFileNotFound}
	f := newTestFetcher(t, provider)

	_, err := f.Thumbnail(context.Background(), "gone")
	assert.ErrorIs(t, err, drive.ErrFileNotFound)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestFetcher_UndecodableThumbnailFallsBackToOriginal(t *testing.T) {
	provider := &fakeProvider{body: []byte("heic bytes"), mime: "image/heic"}
	f := newTestFetcher(t, provider)

	asset, err := f.Fetch(context.Background(), "file1", ParseAssetType("thumb"))
	require.NoError(t, err)
	defer asset.Body.Close()
	assert.Equal(t, "image/heic", asset.ContentType)
	body, err := io.ReadAll(asset.Body)
	require.NoError(t, err)
	assert.Equal(t, "heic bytes", string(body))
}
