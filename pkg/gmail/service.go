package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	maildomain "mailbridge-backend/internal/mail/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = maildomain.TokenUpdateFunc

// Service implements maildomain.MailProvider against the Gmail API.
type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// getGmailService creates a Gmail service with the user's access token
func (s *Service) getGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	tokenSource := config.TokenSource(ctx, token)

	// Wrap token source to detect refreshes
	wrappedSource := &notifyTokenSource{
		src:      tokenSource,
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// ListMessageRefs fetches one page of message references matching the
// query. Pagination uses the provider's pageToken cursor.
func (s *Service) ListMessageRefs(ctx context.Context, accessToken, refreshToken, query, pageToken string, maxResults int64, onTokenRefresh TokenUpdateFunc) (*maildomain.MessagePage, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	call := srv.Users.Messages.List("me").MaxResults(maxResults)
	if query != "" {
		call = call.Q(query)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, maildomain.ClassifyProviderError(err)
	}

	page := &maildomain.MessagePage{NextPageToken: resp.NextPageToken}
	for _, msg := range resp.Messages {
		page.Refs = append(page.Refs, maildomain.MessageRef{ID: msg.Id, ThreadID: msg.ThreadId})
	}
	return page, nil
}

// GetMessage retrieves the full MIME tree of one message.
func (s *Service) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) (*gmail.Message, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, maildomain.ClassifyProviderError(err)
	}
	return msg, nil
}

// GetThreadFirstMessage returns the threading headers of the thread's
// first message, used to build In-Reply-To/References on replies.
func (s *Service) GetThreadFirstMessage(ctx context.Context, accessToken, refreshToken, threadID string, onTokenRefresh TokenUpdateFunc) (*maildomain.ThreadMessage, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	thread, err := srv.Users.Threads.Get("me", threadID).Format("metadata").
		MetadataHeaders("Message-ID", "References").Context(ctx).Do()
	if err != nil {
		return nil, maildomain.ClassifyProviderError(err)
	}
	if len(thread.Messages) == 0 || thread.Messages[0].Payload == nil {
		return &maildomain.ThreadMessage{}, nil
	}

	first := thread.Messages[0].Payload.Headers
	tm := &maildomain.ThreadMessage{}
	for _, h := range first {
		switch h.Name {
		case "Message-ID", "Message-Id":
			tm.MessageID = trimAngles(h.Value)
		case "References":
			tm.References = h.Value
		}
	}
	return tm, nil
}

// SendRaw submits an RFC 822 message, base64url-encoded per the
// provider contract, optionally attached to an existing thread.
func (s *Service) SendRaw(ctx context.Context, accessToken, refreshToken string, raw []byte, threadID string, onTokenRefresh TokenUpdateFunc) (*gmail.Message, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}
	if threadID != "" {
		msg.ThreadId = threadID
	}

	sent, err := srv.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return nil, maildomain.ClassifyProviderError(err)
	}
	return sent, nil
}

// ModifyLabels adds and/or removes labels from a message
func (s *Service) ModifyLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{}
	if len(addLabelIDs) > 0 {
		modifyReq.AddLabelIds = addLabelIDs
	}
	if len(removeLabelIDs) > 0 {
		modifyReq.RemoveLabelIds = removeLabelIDs
	}

	_, err = srv.Users.Messages.Modify("me", messageID, modifyReq).Context(ctx).Do()
	if err != nil {
		return maildomain.ClassifyProviderError(err)
	}
	return nil
}

// GetAttachmentData fetches and decodes the bytes of one attachment.
func (s *Service) GetAttachmentData(ctx context.Context, accessToken, refreshToken, messageID, attachmentID string, onTokenRefresh TokenUpdateFunc) ([]byte, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	attachPart, err := srv.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, maildomain.ClassifyProviderError(err)
	}

	data, err := base64.URLEncoding.DecodeString(attachPart.Data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode attachment data: %v", err)
	}
	return data, nil
}

// Watch sets up push notifications for the user's mailbox. Any existing
// registration is stopped first; the provider overwrites stale ones, so
// a failed stop is logged and ignored.
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) (*maildomain.WatchResult, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	if err := srv.Users.Stop("me").Context(ctx).Do(); err != nil {
		log.Printf("[Gmail] Stopping existing watch failed (continuing): %v", err)
	}

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	resp, err := srv.Users.Watch("me", req).Context(ctx).Do()
	if err != nil {
		return nil, maildomain.ClassifyProviderError(err)
	}
	log.Printf("[Gmail] Watch started. Expiration: %d, HistoryId: %d", resp.Expiration, resp.HistoryId)

	return &maildomain.WatchResult{
		HistoryID:  resp.HistoryId,
		Expiration: time.Unix(resp.Expiration/1000, 0),
	}, nil
}

// StopWatch stops push notifications for the user's mailbox
func (s *Service) StopWatch(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	if err := srv.Users.Stop("me").Context(ctx).Do(); err != nil {
		return maildomain.ClassifyProviderError(err)
	}
	return nil
}

func trimAngles(id string) string {
	if len(id) >= 2 && id[0] == '<' && id[len(id)-1] == '>' {
		return id[1 : len(id)-1]
	}
	return id
}
