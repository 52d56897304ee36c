package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	authdomain "mailbridge-backend/internal/auth/domain"
	maildomain "mailbridge-backend/internal/mail/domain"

	"google.golang.org/api/gmail/v1"
)

type fakeProvider struct {
	mu sync.Mutex

	refs        []maildomain.MessageRef
	listQueries []string
	listSizes   []int64

	messages map[string]*gmail.Message
	getErrs  map[string]error

	attachments map[string][]byte

	threadFirst *maildomain.ThreadMessage

	sentRaw      [][]byte
	sentThreadID string
	sendErr      error

	modified [][]string

	watchResult *maildomain.WatchResult
	stopped     bool

	inFlight    int32
	maxInFlight int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		messages:    make(map[string]*gmail.Message),
		getErrs:     make(map[string]error),
		attachments: make(map[string][]byte),
	}
}

func (p *fakeProvider) ListMessageRefs(ctx context.Context, accessToken, refreshToken, query, pageToken string, maxResults int64, onTokenRefresh maildomain.TokenUpdateFunc) (*maildomain.MessagePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listQueries = append(p.listQueries, query)
	p.listSizes = append(p.listSizes, maxResults)

	start := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &start)
	}
	end := start + int(maxResults)
	if end > len(p.refs) {
		end = len(p.refs)
	}
	page := &maildomain.MessagePage{Refs: p.refs[start:end]}
	if end < len(p.refs) {
		page.NextPageToken = fmt.Sprintf("page-%d", end)
	}
	return page, nil
}

func (p *fakeProvider) GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh maildomain.TokenUpdateFunc) (*gmail.Message, error) {
	cur := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		max := atomic.LoadInt32(&p.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&p.maxInFlight, max, cur) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.getErrs[messageID]; err != nil {
		return nil, err
	}
	msg, ok := p.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no such message %s", messageID)
	}
	return msg, nil
}

func (p *fakeProvider) GetThreadFirstMessage(ctx context.Context, accessToken, refreshToken, threadID string, onTokenRefresh maildomain.TokenUpdateFunc) (*maildomain.ThreadMessage, error) {
	if p.threadFirst == nil {
		return &maildomain.ThreadMessage{}, nil
	}
	return p.threadFirst, nil
}

func (p *fakeProvider) SendRaw(ctx context.Context, accessToken, refreshToken string, raw []byte, threadID string, onTokenRefresh maildomain.TokenUpdateFunc) (*gmail.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	p.sentRaw = append(p.sentRaw, raw)
	p.sentThreadID = threadID
	sent := &gmail.Message{Id: "sent-1", ThreadId: threadID}
	if threadID == "" {
		sent.ThreadId = "thread-new"
	}
	return sent, nil
}

func (p *fakeProvider) ModifyLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh maildomain.TokenUpdateFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modified = append(p.modified, append(append([]string{messageID}, addLabelIDs...), removeLabelIDs...))
	return nil
}

func (p *fakeProvider) GetAttachmentData(ctx context.Context, accessToken, refreshToken, messageID, attachmentID string, onTokenRefresh maildomain.TokenUpdateFunc) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.attachments[attachmentID]
	if !ok {
		return nil, fmt.Errorf("no such attachment %s", attachmentID)
	}
	return data, nil
}

func (p *fakeProvider) Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh maildomain.TokenUpdateFunc) (*maildomain.WatchResult, error) {
	if p.watchResult == nil {
		return &maildomain.WatchResult{HistoryID: 1, Expiration: time.Now().Add(time.Hour)}, nil
	}
	return p.watchResult, nil
}

func (p *fakeProvider) StopWatch(ctx context.Context, accessToken, refreshToken string, onTokenRefresh maildomain.TokenUpdateFunc) error {
	p.stopped = true
	return nil
}

type fakeEmailRepo struct {
	mu     sync.Mutex
	emails map[string]*maildomain.Email // keyed by userID+messageID
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{emails: make(map[string]*maildomain.Email)}
}

func (r *fakeEmailRepo) key(userID, messageID string) string { return userID + "/" + messageID }

func (r *fakeEmailRepo) UpsertEmail(email *maildomain.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(email.UserID, email.MessageID)
	if _, exists := r.emails[k]; exists {
		return nil
	}
	r.emails[k] = email
	return nil
}

func (r *fakeEmailRepo) Exists(userID, messageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.emails[r.key(userID, messageID)]
	return ok, nil
}

func (r *fakeEmailRepo) GetByMessageID(userID, messageID string) (*maildomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emails[r.key(userID, messageID)], nil
}

func (r *fakeEmailRepo) GetByThread(userID, threadID string) ([]*maildomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*maildomain.Email
	for _, e := range r.emails {
		if e.UserID == userID && e.ThreadID == threadID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEmailRepo) SetRead(userID, messageID string, isRead bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.emails[r.key(userID, messageID)]; ok {
		e.IsRead = isRead
	}
	return nil
}

type fakeSyncState struct {
	mu          sync.Mutex
	lockHeld    bool
	lockErr     error
	acquires    int
	releases    int
	checkpoints map[string]time.Time
	watches     map[string]*maildomain.WatchRegistration
}

func newFakeSyncState() *fakeSyncState {
	return &fakeSyncState{
		checkpoints: make(map[string]time.Time),
		watches:     make(map[string]*maildomain.WatchRegistration),
	}
}

func (s *fakeSyncState) TryAcquireLock(userID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockErr != nil {
		return false, s.lockErr
	}
	if s.lockHeld {
		return false, nil
	}
	s.lockHeld = true
	s.acquires++
	return true, nil
}

func (s *fakeSyncState) ReleaseLock(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockHeld = false
	s.releases++
	return nil
}

func (s *fakeSyncState) GetCheckpoint(userID string) (*maildomain.SyncCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.checkpoints[userID]
	if !ok {
		return nil, nil
	}
	return &maildomain.SyncCheckpoint{UserID: userID, LastSyncedAt: at}, nil
}

func (s *fakeSyncState) SetCheckpoint(userID string, lastSyncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[userID] = lastSyncedAt
	return nil
}

func (s *fakeSyncState) SaveWatch(reg *maildomain.WatchRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches[reg.UserID] = reg
	return nil
}

func (s *fakeSyncState) GetWatch(userID string) (*maildomain.WatchRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watches[userID], nil
}

type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[string]*maildomain.IndexedDocument
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[string]*maildomain.IndexedDocument)}
}

func (r *fakeDocRepo) FindByHash(userID, contentHash string) (*maildomain.IndexedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[userID+"/"+contentHash], nil
}

func (r *fakeDocRepo) Create(doc *maildomain.IndexedDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.UserID+"/"+doc.ContentHash] = doc
	return nil
}

func (r *fakeDocRepo) UpdateEnrichment(id, summary string, embedded bool) error { return nil }

type fakeBlobs struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{saved: make(map[string][]byte)}
}

func (s *fakeBlobs) Save(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[objectPath] = data
	return "https://blobs.test/" + objectPath, nil
}

func (s *fakeBlobs) Exists(ctx context.Context, objectPath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.saved[objectPath]
	return ok, nil
}

func (s *fakeBlobs) Download(ctx context.Context, objectPath string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[objectPath], nil
}

func (s *fakeBlobs) Delete(ctx context.Context, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, objectPath)
	return nil
}

type fakeUserRepo struct {
	user         *authdomain.User
	tokenUpdates int
}

func (r *fakeUserRepo) GetByID(id string) (*authdomain.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(email string) (*authdomain.User, error) { return r.user, nil }

func (r *fakeUserRepo) Upsert(user *authdomain.User) error { return nil }

func (r *fakeUserRepo) UpdateTokens(userID, accessToken, refreshToken string, expiry time.Time) error {
	r.tokenUpdates++
	return nil
}

func textMessage(id, threadID, from, subject, body string) *gmail.Message {
	return &gmail.Message{
		Id:           id,
		ThreadId:     threadID,
		LabelIds:     []string{"INBOX", "UNREAD"},
		InternalDate: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "To", Value: "me@example.com"},
				{Name: "Subject", Value: subject},
			},
			Body: &gmail.MessagePartBody{
				Data: base64.URLEncoding.EncodeToString([]byte(body)),
			},
		},
	}
}
