package domain

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc func(token *oauth2.Token) error

// MessageRef is a lightweight reference returned by a list call.
type MessageRef struct {
	ID       string
	ThreadID string
}

// MessagePage is one page of message references.
type MessagePage struct {
	Refs          []MessageRef
	NextPageToken string
}

// ThreadMessage carries the threading headers of a message within a
// thread, used to derive In-Reply-To/References for replies.
type ThreadMessage struct {
	MessageID  string // RFC 5322 Message-ID header value, without angle brackets
	References string // raw References header value, may be empty
}

// WatchResult is the provider's answer to a watch registration.
type WatchResult struct {
	HistoryID  uint64
	Expiration time.Time
}

// MailProvider is the mail provider API surface consumed by the sync
// engine and the outbound composer. Implementations surface expired
// credentials as ErrAuthExpired via ClassifyProviderError.
type MailProvider interface {
	ListMessageRefs(ctx context.Context, accessToken, refreshToken, query, pageToken string, maxResults int64, onTokenRefresh TokenUpdateFunc) (*MessagePage, error)
	GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) (*gmail.Message, error)
	GetThreadFirstMessage(ctx context.Context, accessToken, refreshToken, threadID string, onTokenRefresh TokenUpdateFunc) (*ThreadMessage, error)
	SendRaw(ctx context.Context, accessToken, refreshToken string, raw []byte, threadID string, onTokenRefresh TokenUpdateFunc) (*gmail.Message, error)
	ModifyLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh TokenUpdateFunc) error
	GetAttachmentData(ctx context.Context, accessToken, refreshToken, messageID, attachmentID string, onTokenRefresh TokenUpdateFunc) ([]byte, error)
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) (*WatchResult, error)
	StopWatch(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error
}
