package api

import (
	authrepo "mailbridge-backend/internal/auth/repository"
	mailUsecase "mailbridge-backend/internal/mail/usecase"
	"mailbridge-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	mailUsecase mailUsecase.MailUsecase
	fcmRepo     authrepo.FCMTokenRepository
	config      *config.Config
}

func NewHandler(mailUc mailUsecase.MailUsecase, fcmRepo authrepo.FCMTokenRepository, cfg *config.Config) *Handler {
	return &Handler{
		mailUsecase: mailUc,
		fcmRepo:     fcmRepo,
		config:      cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.mailUsecase, h.fcmRepo, h.config)

	return r.Run(addr)
}
