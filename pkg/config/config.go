package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	JWTSecret           string
	DatabaseURL         string
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleProjectID     string
	GoogleCredentials   string // path to a service account credentials file
	GooglePubSubTopic   string
	StorageBucket       string
	GeminiApiKey        string
	ChromaAPIKey        string
	ChromaTenant        string
	ChromaDatabase      string
	FirebaseCredentials string
	SyncLockTTL         time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	lockTTL := 5 * time.Minute
	if ttl := os.Getenv("SYNC_LOCK_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			lockTTL = parsed
		}
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		DatabaseURL:         getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=mailbridge port=5432 sslmode=disable"),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		StorageBucket:       getEnv("STORAGE_BUCKET", ""),
		GeminiApiKey:        getEnv("GEMINI_API_KEY", ""),
		ChromaAPIKey:        getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:        getEnv("CHROMA_TENANT", ""),
		ChromaDatabase:      getEnv("CHROMA_DATABASE", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		SyncLockTTL:         lockTTL,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
