package repository

import (
	"time"

	authdomain "mailbridge-backend/internal/auth/domain"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	GetByID(id string) (*authdomain.User, error)
	GetByEmail(email string) (*authdomain.User, error)
	Upsert(user *authdomain.User) error
	UpdateTokens(userID, accessToken, refreshToken string, expiry time.Time) error
}

// FCMTokenRepository defines the interface for device token persistence
type FCMTokenRepository interface {
	SaveToken(userID, token string) error
	GetTokensByUser(userID string) ([]string, error)
	DeleteTokens(tokens []string) error
}
