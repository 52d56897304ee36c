package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// LocalUserSentinel replaces the literal From header when the
// authenticated user is the sender.
const LocalUserSentinel = "You"

// StringArray is a custom type to handle JSON array in GORM
type StringArray []string

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 {
		*a = []string{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// AttachmentRef points at one attachment of an email. Bytes are never
// fetched at decode time; ProviderAttachmentID is the opaque handle the
// provider expects for retrieval and AccessURL is constructed up front.
type AttachmentRef struct {
	Filename             string `json:"filename"`
	MimeType             string `json:"mime_type"`
	ProviderAttachmentID string `json:"provider_attachment_id"`
	AccessURL            string `json:"access_url,omitempty"`
}

// AttachmentList stores attachment references as a JSON column
type AttachmentList []AttachmentRef

// Value implements driver.Valuer
func (l AttachmentList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*l = AttachmentList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 {
		*l = AttachmentList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Email is one normalized ingested or sent message. MessageID is the
// provider-assigned ID and is unique per user; re-ingestion of the same
// MessageID is a no-op.
type Email struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	UserID      string         `json:"user_id" gorm:"uniqueIndex:idx_user_message_unique;not null"`
	MessageID   string         `json:"message_id" gorm:"uniqueIndex:idx_user_message_unique;not null"`
	ThreadID    string         `json:"thread_id" gorm:"index"`
	From        string         `json:"from"`
	To          StringArray    `json:"to" gorm:"type:text"`
	Subject     string         `json:"subject"`
	TextBody    string         `json:"text_body" gorm:"type:text"`
	HTMLBody    string         `json:"html_body" gorm:"type:text"`
	Attachments AttachmentList `json:"attachments" gorm:"type:text"`
	Labels      StringArray    `json:"labels" gorm:"type:text"`
	ReceivedAt  time.Time      `json:"received_at"`
	IsRead      bool           `json:"is_read"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
