package drive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tombaby2015-max/family-photo-album-google/database"
)

// defaultTokenLifetime is assumed when the token endpoint omits expires_in.
const defaultTokenLifetime = time.Hour

// AccessToken is the result of one credential exchange.
type AccessToken struct {
	Value     string
	ExpiresIn time.Duration
}

// Exchanger trades the service-account credentials for a fresh bearer token.
type Exchanger interface {
	Exchange(ctx context.Context) (AccessToken, error)
}

// TokenCache keeps the current bearer token in the record store under
// google_access_token, with a TTL shorter than the token's real lifetime.
// Concurrent misses may both exchange; the last write wins.
type TokenCache struct {
	store     database.Store
	exchanger Exchanger
	margin    time.Duration
}

func NewTokenCache(store database.Store, exchanger Exchanger, margin time.Duration) *TokenCache {
	return &TokenCache{store: store, exchanger: exchanger, margin: margin}
}

// Token returns the cached token or performs an exchange on a miss.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	cached, err := c.store.Get(ctx, database.GoogleAccessTokenKey)
	if err == nil && len(cached) > 0 {
		return string(cached), nil
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("drive: token cache read failed, exchanging a new token: %v", err)
	}

	tok, err := c.exchanger.Exchange(ctx)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}

	if ttl := c.cacheTTL(tok.ExpiresIn); ttl > 0 {
		if err := c.store.Put(ctx, database.GoogleAccessTokenKey, []byte(tok.Value), ttl); err != nil {
			log.Printf("drive: failed to cache access token: %v", err)
		}
	}
	return tok.Value, nil
}

// Invalidate drops the cached token so the next call exchanges again.
func (c *TokenCache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, database.GoogleAccessTokenKey)
}

func (c *TokenCache) cacheTTL(lifetime time.Duration) time.Duration {
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	return lifetime - c.margin
}
