package database

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tombaby2015-max/family-photo-album-google/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// GormStore keeps records in the sqlite kv_entries table. Expired rows are
// hidden from reads and removed by PurgeExpired.
type GormStore struct {
	DB  *gorm.DB
	now func() time.Time
}

// NewGormStore wraps an initialized and migrated GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db, now: time.Now}
}

// OpenGormStore opens the sqlite file at path and migrates it.
func OpenGormStore(path string) (*GormStore, error) {
	db, err := InitGormDB(path)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrateModels(db); err != nil {
		return nil, err
	}
	return NewGormStore(db), nil
}

// liveCondition matches rows without an expiry or with one in the future.
func (s *GormStore) liveCondition() sq.Sqlizer {
	return sq.Or{
		sq.Eq{"expires_at": nil},
		sq.Gt{"expires_at": s.now().UnixMilli()},
	}
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.KVEntry
	err := s.DB.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if entry.ExpiresAt != nil && *entry.ExpiresAt <= s.now().UnixMilli() {
		return nil, ErrNotFound
	}
	return entry.Value, nil
}

func (s *GormStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := models.KVEntry{Key: key, Value: value, UpdatedAt: s.now().Unix()}
	if ttl > 0 {
		expiresAt := s.now().Add(ttl).UnixMilli()
		entry.ExpiresAt = &expiresAt
	}

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	err := s.DB.WithContext(ctx).Where("entry_key = ?", key).Delete(&models.KVEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, prefix string) ([]string, error) {
	// substr instead of LIKE: sqlite LIKE is case-insensitive and treats '_' as a wildcard
	queryBuilder := psql.Select("entry_key").
		From("kv_entries").
		Where(sq.Expr("substr(entry_key, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)).
		Where(s.liveCondition()).
		OrderBy("entry_key")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for List: %w", err)
	}

	keys := []string{}
	if err := s.DB.WithContext(ctx).Raw(sqlStr, args...).Scan(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list prefix %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *GormStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	return batchGet(ctx, s.Get, keys)
}

// PurgeExpired deletes rows whose TTL has passed and returns how many went.
func (s *GormStore) PurgeExpired(ctx context.Context) (int64, error) {
	sqlStr, args, err := psql.Delete("kv_entries").
		Where(sq.LtOrEq{"expires_at": s.now().UnixMilli()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for PurgeExpired: %w", err)
	}

	res := s.DB.WithContext(ctx).Exec(sqlStr, args...)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
