package domain

import "time"

// IndexedDocument is the deduplicated, persisted representation of an
// attachment's content. Identity for dedup purposes is the SHA-256 hash
// of the attachment bytes, computed once during the pipeline's fetch
// step. Created once; only the enrichment fields (Summary, Embedded)
// are ever updated afterwards.
type IndexedDocument struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"uniqueIndex:idx_user_hash_unique;not null"`
	ContentHash string    `json:"content_hash" gorm:"uniqueIndex:idx_user_hash_unique;not null"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	ByteSize    int64     `json:"byte_size"`
	StoragePath string    `json:"storage_path"`
	AccessURL   string    `json:"access_url"`
	Summary     string    `json:"summary,omitempty" gorm:"type:text"`
	Embedded    bool      `json:"embedded"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
