package usecase

import (
	"context"

	maildomain "mailbridge-backend/internal/mail/domain"
)

// SyncReport summarizes one sync run.
type SyncReport struct {
	// Skipped is true when another run held the lock or the throttle
	// window had not elapsed; nothing was fetched.
	Skipped          bool   `json:"skipped"`
	SkipReason       string `json:"skip_reason,omitempty"`
	Fetched          int    `json:"fetched"`
	Stored           int    `json:"stored"`
	AlreadyKnown     int    `json:"already_known"`
	DecodeFailures   int    `json:"decode_failures"`
	AttachmentErrors int    `json:"attachment_errors"`
}

// OutboundAttachment is one attachment submitted with a send request,
// bytes already in hand.
type OutboundAttachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// SendRequest describes an outbound message.
type SendRequest struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []OutboundAttachment
}

// AttachmentFailure reports one attachment that was dropped from a
// send or failed to index afterwards.
type AttachmentFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// SendResult reports the outcome of a send. The message goes out even
// when some attachments fail; FailedAttachments carries those.
type SendResult struct {
	MessageID          string              `json:"message_id"`
	ThreadID           string              `json:"thread_id"`
	SentAttachments    []string            `json:"sent_attachments"`
	FailedAttachments  []AttachmentFailure `json:"failed_attachments,omitempty"`
	IndexedAttachments int                 `json:"indexed_attachments"`
}

// MailUsecase defines the interface for mail sync, send and mailbox
// state operations
type MailUsecase interface {
	SyncEmails(ctx context.Context, userID string) (*SyncReport, error)
	SendNew(ctx context.Context, userID string, req SendRequest) (*SendResult, error)
	SendReply(ctx context.Context, userID, threadID string, req SendRequest) (*SendResult, error)
	MarkAsRead(ctx context.Context, userID, messageID string, read bool) error
	GetThread(ctx context.Context, userID, threadID string) ([]*maildomain.Email, error)
	GetAttachment(ctx context.Context, userID, messageID, attachmentID string) ([]byte, string, error)
	WatchMailbox(ctx context.Context, userID string) (*maildomain.WatchRegistration, error)
	StopWatchMailbox(ctx context.Context, userID string) error
}
