package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tombaby2015-max/family-photo-album-google/database"
)

// SessionRepository keeps admin session tokens as TTL-bound admin_token:<token> keys.
type SessionRepository struct {
	Store database.Store
}

func NewSessionRepository(store database.Store) *SessionRepository {
	return &SessionRepository{Store: store}
}

func (r *SessionRepository) Create(ctx context.Context, token string, ttl time.Duration) error {
	return r.Store.Put(ctx, database.AdminTokenKey(token), []byte("1"), ttl)
}

func (r *SessionRepository) Exists(ctx context.Context, token string) (bool, error) {
	_, err := r.Store.Get(ctx, database.AdminTokenKey(token))
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	return r.Store.Delete(ctx, database.AdminTokenKey(token))
}
