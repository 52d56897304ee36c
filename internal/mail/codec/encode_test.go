package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"mailbridge-backend/internal/mail/domain"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodedMessage struct {
	header      mail.Header
	textBody    string
	htmlBody    string
	attachments map[string][]byte
}

func parseEncoded(t *testing.T, raw []byte) *decodedMessage {
	t.Helper()
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	out := &decodedMessage{header: mr.Header, attachments: make(map[string][]byte)}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		body, err := io.ReadAll(part.Body)
		require.NoError(t, err)

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if ct == "text/html" {
				out.htmlBody = string(body)
			} else {
				out.textBody = string(body)
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			out.attachments[filename] = body
		}
	}
	return out
}

func TestEncodeNewMessage(t *testing.T) {
	raw, err := Encode(Outgoing{
		To:       []string{"bob@example.com"},
		Subject:  "Weekly report",
		HTMLBody: "<p>All on track.</p>",
	})
	require.NoError(t, err)

	msg := parseEncoded(t, raw)

	subject, err := msg.header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Weekly report", subject)
	assert.Equal(t, "<p>All on track.</p>", msg.htmlBody)
	assert.Equal(t, "All on track.", msg.textBody)

	// No threading headers on a fresh thread.
	assert.Empty(t, msg.header.Get("In-Reply-To"))
	assert.Empty(t, msg.header.Get("References"))
}

func TestEncodeReplyThreading(t *testing.T) {
	raw, err := Encode(Outgoing{
		To:       []string{"bob@example.com"},
		Subject:  "Budget",
		HTMLBody: "<p>agreed</p>",
		Original: &domain.ThreadMessage{
			MessageID:  "orig@example.com",
			References: "<root@example.com> <mid@example.com>",
		},
	})
	require.NoError(t, err)

	msg := parseEncoded(t, raw)

	subject, _ := msg.header.Subject()
	assert.Equal(t, "Re: Budget", subject)

	inReplyTo, err := msg.header.MsgIDList("In-Reply-To")
	require.NoError(t, err)
	assert.Equal(t, []string{"orig@example.com"}, inReplyTo)

	refs, err := msg.header.MsgIDList("References")
	require.NoError(t, err)
	assert.Equal(t, []string{"root@example.com", "mid@example.com", "orig@example.com"}, refs)
}

func TestEncodeSubjectRePrefixNotDoubled(t *testing.T) {
	raw, err := Encode(Outgoing{
		To:       []string{"bob@example.com"},
		Subject:  "RE: Budget",
		HTMLBody: "<p>x</p>",
		Original: &domain.ThreadMessage{MessageID: "orig@example.com"},
	})
	require.NoError(t, err)

	msg := parseEncoded(t, raw)
	subject, _ := msg.header.Subject()
	assert.Equal(t, "RE: Budget", subject)
}

func TestEncodeAttachments(t *testing.T) {
	raw, err := Encode(Outgoing{
		To:       []string{"bob@example.com"},
		Subject:  "Files",
		HTMLBody: "<p>see attached</p>",
		Attachments: []OutgoingAttachment{
			{Filename: "a.txt", MimeType: "text/plain", Data: []byte("alpha")},
			{Filename: "b.bin", MimeType: "application/octet-stream", Data: []byte{0x00, 0x01, 0x02}},
		},
	})
	require.NoError(t, err)

	msg := parseEncoded(t, raw)
	require.Len(t, msg.attachments, 2)
	assert.Equal(t, []byte("alpha"), msg.attachments["a.txt"])
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, msg.attachments["b.bin"])
}

func TestEncodeMissingOriginalHeadersTolerated(t *testing.T) {
	raw, err := Encode(Outgoing{
		To:       []string{"bob@example.com"},
		Subject:  "Budget",
		HTMLBody: "<p>x</p>",
		Original: &domain.ThreadMessage{}, // thread head had no Message-ID
	})
	require.NoError(t, err)

	msg := parseEncoded(t, raw)
	assert.Empty(t, msg.header.Get("In-Reply-To"))
	subject, _ := msg.header.Subject()
	assert.Equal(t, "Re: Budget", subject)
}

func TestHTMLToPlainText(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo"},
		{"breaks", "line<br>next", "line\nnext"},
		{"entities", "a &amp; b &lt;c&gt;", "a & b <c>"},
		{"nested tags", "<div><b>bold</b> text</div>", "bold text"},
		{"plain passthrough", "no markup", "no markup"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTMLToPlainText(tc.html))
		})
	}
}

func TestEncodeRecipientList(t *testing.T) {
	raw, err := Encode(Outgoing{
		To:       []string{"bob@example.com", "carol@example.com"},
		Subject:  "Hi",
		HTMLBody: "<p>x</p>",
	})
	require.NoError(t, err)

	to := parseEncoded(t, raw).header.Get("To")
	assert.True(t, strings.Contains(to, "bob@example.com"))
	assert.True(t, strings.Contains(to, "carol@example.com"))
}
