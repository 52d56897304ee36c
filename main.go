package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	api "mailbridge-backend/cmd/api"
	authdomain "mailbridge-backend/internal/auth/domain"
	authRepo "mailbridge-backend/internal/auth/repository"
	"mailbridge-backend/internal/mail/codec"
	maildomain "mailbridge-backend/internal/mail/domain"
	"mailbridge-backend/internal/mail/pipeline"
	mailRepo "mailbridge-backend/internal/mail/repository"
	mailUsecase "mailbridge-backend/internal/mail/usecase"
	"mailbridge-backend/internal/notification"
	"mailbridge-backend/pkg/chroma"
	"mailbridge-backend/pkg/config"
	"mailbridge-backend/pkg/database"
	"mailbridge-backend/pkg/fcm"
	"mailbridge-backend/pkg/gemini"
	"mailbridge-backend/pkg/gmail"
	"mailbridge-backend/pkg/kvcache"
	"mailbridge-backend/pkg/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.FCMToken{},
		&maildomain.Email{},
		&maildomain.IndexedDocument{},
		&maildomain.SyncLock{},
		&maildomain.SyncCheckpoint{},
		&maildomain.WatchRegistration{},
		&kvcache.CacheEntry{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	emailRepository := mailRepo.NewEmailRepository(db)
	documentRepo := mailRepo.NewDocumentRepository(db)
	syncStateRepo := mailRepo.NewSyncStateRepository(db)

	// Shared KV store backs sync throttling and notification dedup
	kvStore := kvcache.NewGormStore(db, kvcache.SystemClock{})

	// Initialize the mail provider
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Blob storage for attachment payloads
	if cfg.StorageBucket == "" {
		log.Fatal("STORAGE_BUCKET is required")
	}
	blobStorage, err := storage.NewGCSStorage(context.Background(), cfg.StorageBucket, cfg.GoogleCredentials)
	if err != nil {
		log.Fatal("Failed to initialize blob storage:", err)
	}

	// Optional enrichment stack: summaries and vector embeddings are
	// skipped when their credentials are not configured.
	var enricher pipeline.Enricher
	if cfg.GeminiApiKey != "" {
		enricher = gemini.NewGeminiService(cfg.GeminiApiKey)
	} else {
		log.Println("[WARN] GEMINI_API_KEY not set, attachment summaries disabled")
	}

	var embedder pipeline.Embedder
	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewChromaClient(cfg)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Chroma client (embeddings disabled): %v", err)
		} else {
			embedder = chromaClient
		}
	} else {
		log.Println("[WARN] CHROMA_API_KEY not set, embeddings disabled")
	}

	attachmentPipeline := pipeline.NewPipeline(documentRepo, blobStorage, enricher, embedder)

	// Watch registrations need the fully qualified topic resource name
	watchTopic := cfg.GooglePubSubTopic
	if !strings.Contains(watchTopic, "/") && cfg.GoogleProjectID != "" {
		watchTopic = fmt.Sprintf("projects/%s/topics/%s", cfg.GoogleProjectID, cfg.GooglePubSubTopic)
	}

	mailUc := mailUsecase.NewMailUsecase(
		gmailService,
		codec.NewDecoder(nil),
		emailRepository,
		syncStateRepo,
		userRepo,
		attachmentPipeline,
		kvStore,
		watchTopic,
		cfg.SyncLockTTL,
	)

	// Initialize Notification Service (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		// The subscription side uses the short topic name
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		var fcmClient *fcm.Client
		if cfg.FirebaseCredentials != "" {
			fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
			if err != nil {
				log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
			}
		} else {
			log.Println("[WARN] No Firebase credentials configured, FCM disabled")
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, userRepo, fcmTokenRepo, fcmClient, mailUc, kvStore, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Println("[WARN] GOOGLE_PROJECT_ID not configured, notification service disabled")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(mailUc, fcmTokenRepo, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
