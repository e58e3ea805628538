package database

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

const valkeyScanCount = 500

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// ValkeyStore keeps records in a valkey (or redis) server. TTLs map onto PX.
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore connects to addr. Client-side caching stays off so every read
// observes the latest write from other instances.
func NewValkeyStore(addr, password string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", addr, err)
	}
	log.Printf("database: connected to valkey at %s", addr)
	return &ValkeyStore{client: client}, nil
}

func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return []byte(val), nil
}

func (s *ValkeyStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var cmd valkey.Completed
	if ttl > 0 {
		cmd = s.client.B().Set().Key(key).Value(valkey.BinaryString(value)).PxMilliseconds(ttl.Milliseconds()).Build()
	} else {
		cmd = s.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *ValkeyStore) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := globEscaper.Replace(prefix) + "*"
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		entry, err := s.client.Do(ctx, s.client.B().Scan().Cursor(cursor).Match(pattern).Count(valkeyScanCount).Build()).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
		}
		// SCAN may return a key more than once
		for _, key := range entry.Elements {
			seen[key] = struct{}{}
		}
		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *ValkeyStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	return batchGet(ctx, s.Get, keys)
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
