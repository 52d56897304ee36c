package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	authrepo "mailbridge-backend/internal/auth/repository"
	"mailbridge-backend/internal/mail/usecase"
	"mailbridge-backend/pkg/fcm"
	"mailbridge-backend/pkg/kvcache"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// MailboxNotification is the payload the provider publishes on mailbox
// changes.
type MailboxNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// dedupTTL bounds how long a processed historyId suppresses replays.
const dedupTTL = 24 * time.Hour

// Service listens on the push topic's subscription, triggers a sync for
// the notified user and fans the event out to registered devices.
type Service struct {
	pubsubClient *pubsub.Client
	userRepo     authrepo.UserRepository
	fcmRepo      authrepo.FCMTokenRepository
	fcmClient    *fcm.Client
	mailUsecase  usecase.MailUsecase
	topicName    string
	subName      string
	// history holds the last processed historyId per user; backing it
	// with a shared store keeps dedup correct across restarts and
	// multiple instances.
	history kvcache.Store
}

func NewService(projectID, topicName string, userRepo authrepo.UserRepository, fcmRepo authrepo.FCMTokenRepository, fcmClient *fcm.Client, mailUsecase usecase.MailUsecase, history kvcache.Store, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient: client,
		userRepo:     userRepo,
		fcmRepo:      fcmRepo,
		fcmClient:    fcmClient,
		mailUsecase:  mailUsecase,
		topicName:    topicName,
		subName:      topicName + "-sub", // Convention: topic-sub
		history:      history,
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic does not exist, cannot create subscription")
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification MailboxNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	user, err := s.userRepo.GetByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user by email %s: %v", notification.EmailAddress, err)
		return
	}
	if user == nil {
		log.Printf("[PubSub] User not found for email: %s", notification.EmailAddress)
		return
	}

	if s.isDuplicate(user.ID, notification.HistoryID) {
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d)", user.ID, notification.HistoryID)
		return
	}

	report, err := s.mailUsecase.SyncEmails(ctx, user.ID)
	if err != nil {
		log.Printf("[PubSub] Sync failed for user %s: %v", user.ID, err)
		return
	}
	if report.Skipped || report.Stored == 0 {
		return
	}

	s.pushToDevices(ctx, user.ID, notification, report.Stored)
}

// isDuplicate records the historyId and reports whether an equal or
// newer one was already processed for this user.
func (s *Service) isDuplicate(userID string, historyID uint64) bool {
	key := "notify:history:" + userID
	if val, ok, err := s.history.Get(key); err == nil && ok {
		if last, err := strconv.ParseUint(val, 10, 64); err == nil && historyID <= last {
			return true
		}
	}
	if err := s.history.Set(key, strconv.FormatUint(historyID, 10), dedupTTL); err != nil {
		log.Printf("[PubSub] Failed to record historyId for user %s: %v", userID, err)
	}
	return false
}

func (s *Service) pushToDevices(ctx context.Context, userID string, notification MailboxNotification, newCount int) {
	if s.fcmClient == nil || s.fcmRepo == nil {
		return
	}

	tokens, err := s.fcmRepo.GetTokensByUser(userID)
	if err != nil {
		log.Printf("[FCM] Error getting tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	body := "You have a new email"
	if newCount > 1 {
		body = fmt.Sprintf("You have %d new emails", newCount)
	}

	failedTokens, err := s.fcmClient.SendToDevices(ctx, tokens, fcm.NotificationData{
		Title: "New mail",
		Body:  body,
		Data: map[string]string{
			"type":      "email_update",
			"email":     notification.EmailAddress,
			"historyId": strconv.FormatUint(notification.HistoryID, 10),
		},
	})
	if err != nil {
		log.Printf("[FCM] Error sending notifications: %v", err)
		return
	}

	if len(failedTokens) > 0 {
		log.Printf("[FCM] Cleaning up %d failed tokens", len(failedTokens))
		if err := s.fcmRepo.DeleteTokens(failedTokens); err != nil {
			log.Printf("[FCM] Failed to delete stale tokens: %v", err)
		}
	}
}
