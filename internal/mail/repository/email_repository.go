package repository

import (
	"errors"
	"time"

	maildomain "mailbridge-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// emailRepository implements EmailRepository interface
type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new instance of emailRepository
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{
		db: db,
	}
}

// UpsertEmail inserts the email unless one with the same (user,
// message) pair exists. ON CONFLICT DO NOTHING keeps re-ingestion
// idempotent without a read-modify-write race.
func (r *emailRepository) UpsertEmail(email *maildomain.Email) error {
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	now := time.Now()
	email.CreatedAt = now
	email.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
		DoNothing: true,
	}).Create(email).Error
}

func (r *emailRepository) Exists(userID, messageID string) (bool, error) {
	var count int64
	err := r.db.Model(&maildomain.Email{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *emailRepository) GetByMessageID(userID, messageID string) (*maildomain.Email, error) {
	var email maildomain.Email
	err := r.db.Where("user_id = ? AND message_id = ?", userID, messageID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

// GetByThread returns the thread's messages ordered by receive time;
// presentation ordering is an explicit sort, not an ingestion property.
func (r *emailRepository) GetByThread(userID, threadID string) ([]*maildomain.Email, error) {
	var emails []*maildomain.Email
	err := r.db.Where("user_id = ? AND thread_id = ?", userID, threadID).
		Order("received_at ASC").
		Find(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *emailRepository) SetRead(userID, messageID string, isRead bool) error {
	return r.db.Model(&maildomain.Email{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Updates(map[string]interface{}{"is_read": isRead, "updated_at": time.Now()}).Error
}
