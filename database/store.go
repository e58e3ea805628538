package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchChunkSize caps the number of in-flight reads issued by BatchGet.
const BatchChunkSize = 50

// ErrNotFound is returned for keys that are absent or past their TTL.
var ErrNotFound = errors.New("record not found")

// Store is the key-value contract every other component uses. Values are
// opaque bytes; a zero ttl means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// List returns the live keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// BatchGet fetches keys with bounded concurrency. Missing keys are left
	// out of the result.
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)
	Close() error
}

type getFunc func(ctx context.Context, key string) ([]byte, error)

// batchGet runs get for every key, at most BatchChunkSize at a time, and stops
// at the first store error.
func batchGet(ctx context.Context, get getFunc, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(BatchChunkSize)
	for _, key := range keys {
		g.Go(func() error {
			val, err := get(gctx, key)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("batch get %s: %w", key, err)
			}
			mu.Lock()
			out[key] = val
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and writes it under key.
func PutJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Put(ctx, key, raw, ttl)
}
