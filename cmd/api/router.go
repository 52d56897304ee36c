package api

import (
	"net/http"

	authDelivery "mailbridge-backend/internal/auth/delivery"
	authrepo "mailbridge-backend/internal/auth/repository"
	mailDelivery "mailbridge-backend/internal/mail/delivery"
	mailUsecase "mailbridge-backend/internal/mail/usecase"
	"mailbridge-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, mailUc mailUsecase.MailUsecase, fcmRepo authrepo.FCMTokenRepository, cfg *config.Config) {
	mailHandler := mailDelivery.NewMailHandler(mailUc)
	fcmHandler := authDelivery.NewFCMHandler(fcmRepo)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			fcm.POST("/register", fcmHandler.RegisterToken)
			fcm.DELETE("/:token", fcmHandler.UnregisterToken)
		}

		// Mail routes (protected)
		mail := api.Group("/mail")
		mail.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			mail.POST("/sync", mailHandler.SyncEmails)
			mail.POST("/send", mailHandler.SendEmail)
			mail.GET("/threads/:threadId", mailHandler.GetThread)
			mail.POST("/threads/:threadId/reply", mailHandler.ReplyEmail)
			mail.GET("/:id/attachments/:attachmentId", mailHandler.GetAttachment)
			mail.PATCH("/:id/read", mailHandler.MarkAsRead)
			mail.PATCH("/:id/unread", mailHandler.MarkAsUnread)
			mail.POST("/watch", mailHandler.WatchMailbox)
			mail.DELETE("/watch", mailHandler.StopWatch)
		}
	}
}
