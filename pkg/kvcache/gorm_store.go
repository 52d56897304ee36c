package kvcache

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntry is the persisted form of one key/value pair.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}

// GormStore implements Store on a database table, so entries survive
// restarts and are shared across instances.
type GormStore struct {
	db    *gorm.DB
	clock Clock
}

func NewGormStore(db *gorm.DB, clock Clock) *GormStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &GormStore{db: db, clock: clock}
}

func (s *GormStore) Get(key string) (string, bool, error) {
	var entry CacheEntry
	err := s.db.Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if !entry.ExpiresAt.IsZero() && !s.clock.Now().Before(entry.ExpiresAt) {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (s *GormStore) Set(key, value string, ttl time.Duration) error {
	now := s.clock.Now()
	entry := CacheEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (s *GormStore) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&CacheEntry{}).Error
}
