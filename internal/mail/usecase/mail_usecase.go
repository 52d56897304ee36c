package usecase

import (
	"context"
	"fmt"
	"time"

	authrepo "mailbridge-backend/internal/auth/repository"
	"mailbridge-backend/internal/mail/codec"
	maildomain "mailbridge-backend/internal/mail/domain"
	"mailbridge-backend/internal/mail/pipeline"
	"mailbridge-backend/internal/mail/repository"
	"mailbridge-backend/pkg/kvcache"

	"golang.org/x/oauth2"
)

// mailUsecase implements MailUsecase interface
type mailUsecase struct {
	provider  maildomain.MailProvider
	decoder   *codec.Decoder
	emails    repository.EmailRepository
	syncState repository.SyncStateRepository
	users     authrepo.UserRepository
	pipeline  *pipeline.Pipeline
	throttle  kvcache.Store
	topicName string
	lockTTL   time.Duration
}

// NewMailUsecase creates a new instance of mailUsecase
func NewMailUsecase(
	provider maildomain.MailProvider,
	decoder *codec.Decoder,
	emails repository.EmailRepository,
	syncState repository.SyncStateRepository,
	users authrepo.UserRepository,
	pl *pipeline.Pipeline,
	throttle kvcache.Store,
	topicName string,
	lockTTL time.Duration,
) MailUsecase {
	return &mailUsecase{
		provider:  provider,
		decoder:   decoder,
		emails:    emails,
		syncState: syncState,
		users:     users,
		pipeline:  pl,
		throttle:  throttle,
		topicName: topicName,
		lockTTL:   lockTTL,
	}
}

// credentials loads the user's provider tokens and builds the callback
// that persists refreshed ones.
func (u *mailUsecase) credentials(userID string) (accessToken, refreshToken string, onRefresh maildomain.TokenUpdateFunc, err error) {
	user, err := u.users.GetByID(userID)
	if err != nil {
		return "", "", nil, err
	}
	if user == nil {
		return "", "", nil, fmt.Errorf("%w: unknown user %s", maildomain.ErrValidation, userID)
	}
	onRefresh = func(token *oauth2.Token) error {
		return u.users.UpdateTokens(userID, token.AccessToken, token.RefreshToken, token.Expiry)
	}
	return user.AccessToken, user.RefreshToken, onRefresh, nil
}

func (u *mailUsecase) MarkAsRead(ctx context.Context, userID, messageID string, read bool) error {
	accessToken, refreshToken, onRefresh, err := u.credentials(userID)
	if err != nil {
		return err
	}

	var add, remove []string
	if read {
		remove = []string{"UNREAD"}
	} else {
		add = []string{"UNREAD"}
	}
	if err := u.provider.ModifyLabels(ctx, accessToken, refreshToken, messageID, add, remove, onRefresh); err != nil {
		return err
	}

	return u.emails.SetRead(userID, messageID, read)
}

func (u *mailUsecase) GetThread(ctx context.Context, userID, threadID string) ([]*maildomain.Email, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: thread id is required", maildomain.ErrValidation)
	}
	return u.emails.GetByThread(userID, threadID)
}

// GetAttachment streams one attachment's bytes from the provider. The
// mime type comes from the stored email's attachment reference.
func (u *mailUsecase) GetAttachment(ctx context.Context, userID, messageID, attachmentID string) ([]byte, string, error) {
	email, err := u.emails.GetByMessageID(userID, messageID)
	if err != nil {
		return nil, "", err
	}
	if email == nil {
		return nil, "", fmt.Errorf("%w: unknown message %s", maildomain.ErrValidation, messageID)
	}

	mimeType := "application/octet-stream"
	found := false
	for _, ref := range email.Attachments {
		if ref.ProviderAttachmentID == attachmentID {
			if ref.MimeType != "" {
				mimeType = ref.MimeType
			}
			found = true
			break
		}
	}
	if !found {
		return nil, "", fmt.Errorf("%w: unknown attachment", maildomain.ErrValidation)
	}

	accessToken, refreshToken, onRefresh, err := u.credentials(userID)
	if err != nil {
		return nil, "", err
	}
	data, err := u.provider.GetAttachmentData(ctx, accessToken, refreshToken, messageID, attachmentID, onRefresh)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

// WatchMailbox (re)registers the push watch for the user's inbox and
// persists the registration so expiry can be tracked.
func (u *mailUsecase) WatchMailbox(ctx context.Context, userID string) (*maildomain.WatchRegistration, error) {
	accessToken, refreshToken, onRefresh, err := u.credentials(userID)
	if err != nil {
		return nil, err
	}

	result, err := u.provider.Watch(ctx, accessToken, refreshToken, u.topicName, onRefresh)
	if err != nil {
		return nil, err
	}

	reg := &maildomain.WatchRegistration{
		UserID:     userID,
		Topic:      u.topicName,
		HistoryID:  result.HistoryID,
		Expiration: result.Expiration,
	}
	if err := u.syncState.SaveWatch(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (u *mailUsecase) StopWatchMailbox(ctx context.Context, userID string) error {
	accessToken, refreshToken, onRefresh, err := u.credentials(userID)
	if err != nil {
		return err
	}
	return u.provider.StopWatch(ctx, accessToken, refreshToken, onRefresh)
}
