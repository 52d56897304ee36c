package codec

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"mailbridge-backend/internal/mail/domain"

	"github.com/emersion/go-message/mail"
)

// OutgoingAttachment is one attachment with its bytes already fetched.
type OutgoingAttachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Outgoing describes a message to encode. Original is the thread's
// first message for replies and nil for new threads.
type Outgoing struct {
	From        string
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []OutgoingAttachment
	Original    *domain.ThreadMessage
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	htmlBreakRe  = regexp.MustCompile(`(?i)<(br|/p|/div|/li)[^>]*>`)
	rePrefixRe   = regexp.MustCompile(`(?i)^re:\s*`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
)

// Encode produces a multipart/mixed message with a nested
// multipart/alternative body (plain derived from the HTML) followed by
// base64 attachment parts. Threading headers come from Original when
// present; a missing Message-ID or References on the original is
// tolerated by omitting the corresponding header.
func Encode(out Outgoing) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(normalizeSubject(out.Subject, out.Original != nil))
	if out.From != "" {
		h.Set("From", out.From)
	}
	if len(out.To) > 0 {
		h.Set("To", strings.Join(out.To, ", "))
	}
	if out.Original != nil && out.Original.MessageID != "" {
		h.SetMsgIDList("In-Reply-To", []string{out.Original.MessageID})
		h.SetMsgIDList("References", referenceIDs(out.Original))
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create alternative part: %w", err)
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := iw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("create plain part: %w", err)
	}
	if _, err := pw.Write([]byte(HTMLToPlainText(out.HTMLBody))); err != nil {
		return nil, fmt.Errorf("write plain part: %w", err)
	}
	pw.Close()

	var hh mail.InlineHeader
	hh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	hw, err := iw.CreatePart(hh)
	if err != nil {
		return nil, fmt.Errorf("create html part: %w", err)
	}
	if _, err := hw.Write([]byte(out.HTMLBody)); err != nil {
		return nil, fmt.Errorf("write html part: %w", err)
	}
	hw.Close()
	iw.Close()

	for _, att := range out.Attachments {
		var ah mail.AttachmentHeader
		ah.SetFilename(att.Filename)
		ah.SetContentType(att.MimeType, nil)
		ah.Set("Content-Transfer-Encoding", "base64")
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("create attachment part %q: %w", att.Filename, err)
		}
		if _, err := aw.Write(att.Data); err != nil {
			return nil, fmt.Errorf("write attachment %q: %w", att.Filename, err)
		}
		aw.Close()
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

// referenceIDs is the original's References chain with its own
// Message-ID appended.
func referenceIDs(orig *domain.ThreadMessage) []string {
	var ids []string
	for _, raw := range strings.Fields(orig.References) {
		if id := strings.Trim(raw, "<>"); id != "" {
			ids = append(ids, id)
		}
	}
	return append(ids, orig.MessageID)
}

// normalizeSubject prepends "Re:" for replies unless some casing of it
// is already there.
func normalizeSubject(subject string, reply bool) string {
	if !reply || rePrefixRe.MatchString(subject) {
		return subject
	}
	return "Re: " + subject
}

// HTMLToPlainText derives the plain-text alternative by stripping tags.
// No markdown or rich conversion is attempted.
func HTMLToPlainText(html string) string {
	text := htmlBreakRe.ReplaceAllString(html, "\n")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = whitespaceRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
