package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"thrx-be/pkg/database"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is one row of the postgres backend. Values are JSON documents.
type KVEntry struct {
	EntryKey  string         `gorm:"column:entry_key;primaryKey;size:255"`
	Value     datatypes.JSON `gorm:"column:value;type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

type GormStore struct {
	db *gorm.DB
}

func OpenGormStore(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres store DSN is required")
	}
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	return NewGormStore(db)
}

// NewGormStore migrates the kv_entries table on db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(entry.Value), nil
}

func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	entry := KVEntry{
		EntryKey:  key,
		Value:     datatypes.JSON(value),
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&KVEntry{}).Error
}

func (s *GormStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&KVEntry{}).
		Where("entry_key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("entry_key").
		Pluck("entry_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
