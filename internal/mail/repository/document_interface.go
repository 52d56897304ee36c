package repository

import maildomain "mailbridge-backend/internal/mail/domain"

// DocumentRepository defines the interface for indexed attachment documents
type DocumentRepository interface {
	FindByHash(userID, contentHash string) (*maildomain.IndexedDocument, error)
	Create(doc *maildomain.IndexedDocument) error
	UpdateEnrichment(id, summary string, embedded bool) error
}
