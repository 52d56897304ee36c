package repository

import (
	"errors"
	"time"

	maildomain "mailbridge-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// documentRepository implements DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new instance of documentRepository
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{
		db: db,
	}
}

func (r *documentRepository) FindByHash(userID, contentHash string) (*maildomain.IndexedDocument, error) {
	var doc maildomain.IndexedDocument
	err := r.db.Where("user_id = ? AND content_hash = ?", userID, contentHash).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) Create(doc *maildomain.IndexedDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return r.db.Create(doc).Error
}

// UpdateEnrichment adds the async enrichment fields; nothing else on a
// document is ever mutated after creation.
func (r *documentRepository) UpdateEnrichment(id, summary string, embedded bool) error {
	return r.db.Model(&maildomain.IndexedDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"summary":    summary,
			"embedded":   embedded,
			"updated_at": time.Now(),
		}).Error
}
