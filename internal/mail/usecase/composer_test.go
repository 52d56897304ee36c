package usecase

import (
	"context"
	"errors"
	"testing"

	maildomain "mailbridge-backend/internal/mail/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNewValidation(t *testing.T) {
	uc, _, _ := newTestUsecase(newFakeProvider(), newFakeEmailRepo(), newFakeSyncState())

	cases := []struct {
		name string
		req  SendRequest
	}{
		{"no recipients", SendRequest{Subject: "Hi", HTMLBody: "<p>x</p>"}},
		{"bad address", SendRequest{To: []string{"not-an-address"}, Subject: "Hi", HTMLBody: "<p>x</p>"}},
		{"empty subject and body", SendRequest{To: []string{"a@b.c"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.SendNew(context.Background(), "user-1", tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, maildomain.ErrValidation))
		})
	}
}

func TestSendReplyRequiresThreadID(t *testing.T) {
	uc, _, _ := newTestUsecase(newFakeProvider(), newFakeEmailRepo(), newFakeSyncState())

	_, err := uc.SendReply(context.Background(), "user-1", "", SendRequest{
		To: []string{"a@b.c"}, Subject: "Hi", HTMLBody: "<p>x</p>",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, maildomain.ErrValidation))
}

func TestSendNewEncodesAndSends(t *testing.T) {
	provider := newFakeProvider()
	provider.messages["sent-1"] = textMessage("sent-1", "thread-new", "me@example.com", "Greetings", "hello there")
	provider.messages["sent-1"].LabelIds = []string{"SENT"}

	emails := newFakeEmailRepo()
	uc, _, _ := newTestUsecase(provider, emails, newFakeSyncState())

	result, err := uc.SendNew(context.Background(), "user-1", SendRequest{
		To:       []string{"bob@example.com"},
		Subject:  "Greetings",
		HTMLBody: "<p>hello there</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", result.MessageID)
	assert.Equal(t, "thread-new", result.ThreadID)

	require.Len(t, provider.sentRaw, 1)
	raw := string(provider.sentRaw[0])
	assert.Contains(t, raw, "Subject: Greetings")
	assert.Contains(t, raw, "bob@example.com")
	assert.Contains(t, raw, "hello there")
	assert.Empty(t, provider.sentThreadID)

	// The sent copy is persisted with the local-user sentinel.
	stored, _ := emails.GetByMessageID("user-1", "sent-1")
	require.NotNil(t, stored)
	assert.Equal(t, maildomain.LocalUserSentinel, stored.From)
}

func TestSendReplyCarriesThreadingHeaders(t *testing.T) {
	provider := newFakeProvider()
	provider.threadFirst = &maildomain.ThreadMessage{
		MessageID:  "orig-id@example.com",
		References: "<root-id@example.com>",
	}
	provider.messages["sent-1"] = textMessage("sent-1", "thread-7", "me@example.com", "Re: Budget", "agreed")
	provider.messages["sent-1"].LabelIds = []string{"SENT"}

	uc, _, _ := newTestUsecase(provider, newFakeEmailRepo(), newFakeSyncState())

	result, err := uc.SendReply(context.Background(), "user-1", "thread-7", SendRequest{
		To:       []string{"bob@example.com"},
		Subject:  "Budget",
		HTMLBody: "<p>agreed</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "thread-7", result.ThreadID)
	assert.Equal(t, "thread-7", provider.sentThreadID)

	raw := string(provider.sentRaw[0])
	assert.Contains(t, raw, "In-Reply-To: <orig-id@example.com>")
	assert.Contains(t, raw, "<root-id@example.com>")
	assert.Contains(t, raw, "Subject: Re: Budget")
}

func TestSendPartialAttachmentFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.messages["sent-1"] = textMessage("sent-1", "thread-new", "me@example.com", "Files", "see attached")
	provider.messages["sent-1"].LabelIds = []string{"SENT"}

	uc, docs, _ := newTestUsecase(provider, newFakeEmailRepo(), newFakeSyncState())

	result, err := uc.SendNew(context.Background(), "user-1", SendRequest{
		To:       []string{"bob@example.com"},
		Subject:  "Files",
		HTMLBody: "<p>see attached</p>",
		Attachments: []OutboundAttachment{
			{Filename: "good.txt", MimeType: "text/plain", Data: []byte("fine")},
			{Filename: "broken.txt", MimeType: "text/plain"}, // no bytes
		},
	})
	require.NoError(t, err, "a bad attachment must not fail the send")

	assert.Equal(t, []string{"good.txt"}, result.SentAttachments)
	require.Len(t, result.FailedAttachments, 1)
	assert.Equal(t, "broken.txt", result.FailedAttachments[0].Filename)
	assert.Equal(t, 1, result.IndexedAttachments)
	assert.Len(t, docs.docs, 1)

	// The message went out with only the healthy attachment.
	raw := string(provider.sentRaw[0])
	assert.Contains(t, raw, "good.txt")
	assert.NotContains(t, raw, "broken.txt")
}

func TestMarkAsRead(t *testing.T) {
	provider := newFakeProvider()
	emails := newFakeEmailRepo()
	require.NoError(t, emails.UpsertEmail(&maildomain.Email{UserID: "user-1", MessageID: "msg-1", IsRead: false}))

	uc, _, _ := newTestUsecase(provider, emails, newFakeSyncState())

	require.NoError(t, uc.MarkAsRead(context.Background(), "user-1", "msg-1", true))

	stored, _ := emails.GetByMessageID("user-1", "msg-1")
	assert.True(t, stored.IsRead)
	require.Len(t, provider.modified, 1)
	assert.Equal(t, []string{"msg-1", "UNREAD"}, provider.modified[0])
}

func TestWatchMailboxPersistsRegistration(t *testing.T) {
	provider := newFakeProvider()
	state := newFakeSyncState()
	uc, _, _ := newTestUsecase(provider, newFakeEmailRepo(), state)

	reg, err := uc.WatchMailbox(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "projects/test/topics/gmail-updates", reg.Topic)

	saved, _ := state.GetWatch("user-1")
	require.NotNil(t, saved)
	assert.Equal(t, reg.HistoryID, saved.HistoryID)
}
