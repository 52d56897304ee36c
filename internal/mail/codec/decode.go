package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"mailbridge-backend/internal/mail/domain"

	"google.golang.org/api/gmail/v1"
)

// Decoder converts provider message trees into normalized Email
// records. Pure transformation, no I/O.
type Decoder struct {
	transform TextTransform
}

// NewDecoder creates a decoder with the given cleanup transform; nil
// selects the default quote stripper.
func NewDecoder(transform TextTransform) *Decoder {
	if transform == nil {
		transform = NewQuoteStripper()
	}
	return &Decoder{transform: transform}
}

// Decode normalizes one provider message for the given user. A decode
// failure here is scoped to this message; callers must not let it abort
// sibling messages.
func (d *Decoder) Decode(msg *gmail.Message, userID string) (*domain.Email, error) {
	if msg == nil || msg.Payload == nil {
		return nil, &domain.DecodeError{MessageID: messageID(msg), Err: fmt.Errorf("message has no payload")}
	}

	headers := msg.Payload.Headers
	from := headerValue(headers, "From")
	if hasLabel(msg.LabelIds, "SENT") {
		// The authenticated user sent this one, regardless of what the
		// literal header says.
		from = domain.LocalUserSentinel
	} else {
		from = displayName(from)
	}

	textBody, htmlBody := extractBodies(msg.Payload)
	textBody = d.transform.StripText(textBody)
	htmlBody = d.transform.StripHTML(htmlBody)

	email := &domain.Email{
		UserID:      userID,
		MessageID:   msg.Id,
		ThreadID:    msg.ThreadId,
		From:        from,
		To:          splitRecipients(headerValue(headers, "To")),
		Subject:     headerValue(headers, "Subject"),
		TextBody:    textBody,
		HTMLBody:    htmlBody,
		Attachments: collectAttachments(msg),
		Labels:      msg.LabelIds,
		ReceivedAt:  time.Unix(msg.InternalDate/1000, 0),
		IsRead:      !hasLabel(msg.LabelIds, "UNREAD"),
	}
	return email, nil
}

// extractBodies walks the part tree for text/plain and text/html
// bodies. A message without nested parts is the degenerate singlepart
// case: its one body lands on whichever side its content type declares.
func extractBodies(payload *gmail.MessagePart) (textBody, htmlBody string) {
	if len(payload.Parts) == 0 {
		body := decodePartBody(payload.Body)
		if payload.MimeType == "text/html" {
			return "", body
		}
		return body, ""
	}

	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			switch part.MimeType {
			case "text/plain":
				if textBody == "" {
					textBody = decodePartBody(part.Body)
				}
			case "text/html":
				if htmlBody == "" {
					htmlBody = decodePartBody(part.Body)
				}
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return textBody, htmlBody
}

// collectAttachments records a reference for every part carrying both a
// filename and a body attachment id. Bytes stay with the provider until
// the pipeline asks for them.
func collectAttachments(msg *gmail.Message) domain.AttachmentList {
	var refs domain.AttachmentList

	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
				refs = append(refs, domain.AttachmentRef{
					Filename:             part.Filename,
					MimeType:             part.MimeType,
					ProviderAttachmentID: part.Body.AttachmentId,
					AccessURL:            fmt.Sprintf("/api/mail/%s/attachments/%s", msg.Id, part.Body.AttachmentId),
				})
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(msg.Payload.Parts)
	return refs
}

func decodePartBody(body *gmail.MessagePartBody) string {
	if body == nil || body.Data == "" {
		return ""
	}
	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		// Tolerate unpadded payloads from the provider.
		data, err = base64.RawURLEncoding.DecodeString(body.Data)
		if err != nil {
			return ""
		}
	}
	return string(data)
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// displayName extracts the name from "Name <addr>" syntax, falling back
// to the raw header value.
func displayName(from string) string {
	if idx := strings.Index(from, "<"); idx > 0 {
		if name := strings.TrimSpace(strings.Trim(from[:idx], `" `)); name != "" {
			return name
		}
	}
	return from
}

func splitRecipients(header string) []string {
	if header == "" {
		return []string{}
	}
	parts := strings.Split(header, ",")
	recipients := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}

func messageID(msg *gmail.Message) string {
	if msg == nil {
		return ""
	}
	return msg.Id
}
