package repository

import (
	"errors"
	"time"

	maildomain "mailbridge-backend/internal/mail/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// syncStateRepository implements SyncStateRepository interface
type syncStateRepository struct {
	db *gorm.DB
}

// NewSyncStateRepository creates a new instance of syncStateRepository
func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{
		db: db,
	}
}

// TryAcquireLock clears an expired lock and then races an insert; the
// primary-key conflict decides the winner, so two concurrent callers
// cannot both acquire.
func (r *syncStateRepository) TryAcquireLock(userID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	lock := &maildomain.SyncLock{
		UserID:     userID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	acquired := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND expires_at <= ?", userID, now).
			Delete(&maildomain.SyncLock{}).Error; err != nil {
			return err
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(lock)
		if result.Error != nil {
			return result.Error
		}
		acquired = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

func (r *syncStateRepository) ReleaseLock(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&maildomain.SyncLock{}).Error
}

func (r *syncStateRepository) GetCheckpoint(userID string) (*maildomain.SyncCheckpoint, error) {
	var checkpoint maildomain.SyncCheckpoint
	err := r.db.Where("user_id = ?", userID).First(&checkpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &checkpoint, nil
}

func (r *syncStateRepository) SetCheckpoint(userID string, lastSyncedAt time.Time) error {
	checkpoint := &maildomain.SyncCheckpoint{
		UserID:       userID,
		LastSyncedAt: lastSyncedAt,
		UpdatedAt:    time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_synced_at", "updated_at"}),
	}).Create(checkpoint).Error
}

func (r *syncStateRepository) SaveWatch(reg *maildomain.WatchRegistration) error {
	reg.UpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"topic", "history_id", "expiration", "updated_at"}),
	}).Create(reg).Error
}

func (r *syncStateRepository) GetWatch(userID string) (*maildomain.WatchRegistration, error) {
	var reg maildomain.WatchRegistration
	err := r.db.Where("user_id = ?", userID).First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}
