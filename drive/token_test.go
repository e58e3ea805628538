package drive

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombaby2015-max/family-photo-album-google/database"
)

type fakeExchanger struct {
	calls     atomic.Int32
	expiresIn time.Duration
	err       error
}

func (f *fakeExchanger) Exchange(ctx context.Context) (AccessToken, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return AccessToken{}, f.err
	}
	return AccessToken{Value: "token-" + string(rune('0'+n)), ExpiresIn: f.expiresIn}, nil
}

func TestTokenCache_ReusesCachedToken(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ex := &fakeExchanger{expiresIn: time.Hour}
	cache := NewTokenCache(store, ex, 5*time.Minute)

	first, err := cache.Token(ctx)
	require.NoError(t, err)
	second, err := cache.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "token-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), ex.calls.Load())
}

func TestTokenCache_ExpiresBeforeRealLifetime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := database.NewMemoryStore()
	store.SetClock(func() time.Time { return now })
	ex := &fakeExchanger{expiresIn: time.Hour}
	cache := NewTokenCache(store, ex, 5*time.Minute)

	_, err := cache.Token(ctx)
	require.NoError(t, err)

	now = now.Add(54 * time.Minute)
	tok, err := cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	// cached for 55 minutes of a 60 minute token
	now = now.Add(time.Minute)
	tok, err = cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
	assert.Equal(t, int32(2), ex.calls.Load())
}

func TestTokenCache_ExchangeFailure(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	cache := NewTokenCache(store, &fakeExchanger{err: errors.New("invalid_grant")}, time.Minute)

	_, err := cache.Token(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")

	_, err = store.Get(ctx, database.GoogleAccessTokenKey)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestTokenCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ex := &fakeExchanger{expiresIn: time.Hour}
	cache := NewTokenCache(store, ex, time.Minute)

	_, err := cache.Token(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))

	tok, err := cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
}
