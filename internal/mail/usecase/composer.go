package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mailbridge-backend/internal/mail/codec"
	maildomain "mailbridge-backend/internal/mail/domain"
)

// SendNew composes and sends a message starting a fresh thread.
func (u *mailUsecase) SendNew(ctx context.Context, userID string, req SendRequest) (*SendResult, error) {
	return u.send(ctx, userID, "", req)
}

// SendReply composes and sends a reply on an existing thread, carrying
// the thread's In-Reply-To/References headers.
func (u *mailUsecase) SendReply(ctx context.Context, userID, threadID string, req SendRequest) (*SendResult, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: thread id is required", maildomain.ErrValidation)
	}
	return u.send(ctx, userID, threadID, req)
}

func (u *mailUsecase) send(ctx context.Context, userID, threadID string, req SendRequest) (*SendResult, error) {
	if err := validateSendRequest(req); err != nil {
		return nil, err
	}

	accessToken, refreshToken, onRefresh, err := u.credentials(userID)
	if err != nil {
		return nil, err
	}

	// Invalid attachments are dropped up front and reported; they never
	// block the message itself.
	valid, failed := partitionAttachments(req.Attachments)

	var original *maildomain.ThreadMessage
	if threadID != "" {
		original, err = u.provider.GetThreadFirstMessage(ctx, accessToken, refreshToken, threadID, onRefresh)
		if err != nil {
			return nil, fmt.Errorf("load thread headers: %w", err)
		}
	}

	raw, err := codec.Encode(codec.Outgoing{
		To:          req.To,
		Subject:     req.Subject,
		HTMLBody:    req.HTMLBody,
		Attachments: valid,
		Original:    original,
	})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	sent, err := u.provider.SendRaw(ctx, accessToken, refreshToken, raw, threadID, onRefresh)
	if err != nil {
		return nil, err
	}

	result := &SendResult{
		MessageID:         sent.Id,
		ThreadID:          sent.ThreadId,
		FailedAttachments: failed,
	}
	for _, att := range valid {
		result.SentAttachments = append(result.SentAttachments, att.Filename)
	}

	u.persistSent(ctx, userID, accessToken, refreshToken, sent.Id, onRefresh)

	// Index the attachment bytes we already hold; indexing failures are
	// reported but the send has already succeeded.
	for _, att := range valid {
		ref := maildomain.AttachmentRef{Filename: att.Filename, MimeType: att.MimeType}
		if _, _, err := u.pipeline.IndexBytes(ctx, userID, ref, att.Data); err != nil {
			result.FailedAttachments = append(result.FailedAttachments, AttachmentFailure{
				Filename: att.Filename,
				Reason:   err.Error(),
			})
			continue
		}
		result.IndexedAttachments++
	}

	return result, nil
}

// persistSent re-reads the sent message from the provider so the stored
// copy carries provider attachment IDs and labels. Best effort: the
// send already happened.
func (u *mailUsecase) persistSent(ctx context.Context, userID, accessToken, refreshToken, messageID string, onRefresh maildomain.TokenUpdateFunc) {
	msg, err := u.provider.GetMessage(ctx, accessToken, refreshToken, messageID, onRefresh)
	if err != nil {
		log.Printf("[Composer] Failed to re-read sent message %s: %v", messageID, err)
		return
	}
	email, err := u.decoder.Decode(msg, userID)
	if err != nil {
		log.Printf("[Composer] Failed to decode sent message %s: %v", messageID, err)
		return
	}
	email.From = maildomain.LocalUserSentinel
	if err := u.emails.UpsertEmail(email); err != nil {
		log.Printf("[Composer] Failed to store sent message %s: %v", messageID, err)
	}
}

func validateSendRequest(req SendRequest) error {
	if len(req.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", maildomain.ErrValidation)
	}
	for _, addr := range req.To {
		if !strings.Contains(addr, "@") {
			return fmt.Errorf("%w: invalid recipient %q", maildomain.ErrValidation, addr)
		}
	}
	if strings.TrimSpace(req.Subject) == "" && strings.TrimSpace(req.HTMLBody) == "" {
		return fmt.Errorf("%w: subject or body is required", maildomain.ErrValidation)
	}
	return nil
}

// partitionAttachments splits the request's attachments into sendable
// ones and up-front failures.
func partitionAttachments(atts []OutboundAttachment) ([]codec.OutgoingAttachment, []AttachmentFailure) {
	var valid []codec.OutgoingAttachment
	var failed []AttachmentFailure
	for _, att := range atts {
		switch {
		case att.Filename == "":
			failed = append(failed, AttachmentFailure{Filename: att.Filename, Reason: "missing filename"})
		case len(att.Data) == 0:
			failed = append(failed, AttachmentFailure{Filename: att.Filename, Reason: "empty attachment body"})
		default:
			mimeType := att.MimeType
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			valid = append(valid, codec.OutgoingAttachment{
				Filename: att.Filename,
				MimeType: mimeType,
				Data:     att.Data,
			})
		}
	}
	return valid, failed
}
