package repository

import (
	"time"

	maildomain "mailbridge-backend/internal/mail/domain"
)

// SyncStateRepository defines the interface for sync locks, checkpoints
// and watch registrations
type SyncStateRepository interface {
	// TryAcquireLock takes the per-user sync lock for ttl. Returns false
	// without blocking when a live lock is held by another run.
	TryAcquireLock(userID string, ttl time.Duration) (bool, error)
	ReleaseLock(userID string) error
	GetCheckpoint(userID string) (*maildomain.SyncCheckpoint, error)
	SetCheckpoint(userID string, lastSyncedAt time.Time) error
	SaveWatch(reg *maildomain.WatchRegistration) error
	GetWatch(userID string) (*maildomain.WatchRegistration, error)
}
