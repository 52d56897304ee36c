package domain

import "time"

// SyncLock is a per-user mutual-exclusion record. At most one
// non-expired lock exists per user; a sync attempt that finds a live
// lock skips instead of blocking. TTL-based, no renewal: runs are kept
// short by the per-run message cap, so a run outliving its TTL is an
// accepted risk.
type SyncLock struct {
	UserID     string    `json:"user_id" gorm:"primaryKey"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SyncCheckpoint is the per-user cursor bounding the next incremental
// query window.
type SyncCheckpoint struct {
	UserID       string    `json:"user_id" gorm:"primaryKey"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WatchRegistration records the active push-notification registration
// for a user's mailbox so callers can detect staleness and re-register
// before expiry.
type WatchRegistration struct {
	UserID     string    `json:"user_id" gorm:"primaryKey"`
	Topic      string    `json:"topic"`
	HistoryID  uint64    `json:"history_id"`
	Expiration time.Time `json:"expiration"`
	UpdatedAt  time.Time `json:"updated_at"`
}
