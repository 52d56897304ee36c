package repository

import maildomain "mailbridge-backend/internal/mail/domain"

// EmailRepository defines the interface for normalized email persistence
type EmailRepository interface {
	// UpsertEmail stores an email; a record with the same user and
	// message ID already present makes this a no-op.
	UpsertEmail(email *maildomain.Email) error
	Exists(userID, messageID string) (bool, error)
	GetByMessageID(userID, messageID string) (*maildomain.Email, error)
	GetByThread(userID, threadID string) ([]*maildomain.Email, error)
	SetRead(userID, messageID string, isRead bool) error
}
