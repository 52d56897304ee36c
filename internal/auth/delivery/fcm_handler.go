package delivery

import (
	"net/http"

	authrepo "mailbridge-backend/internal/auth/repository"
	"mailbridge-backend/internal/mail/dto"

	"github.com/gin-gonic/gin"
)

// FCMHandler manages device token registration for push notifications.
type FCMHandler struct {
	fcmRepo authrepo.FCMTokenRepository
}

func NewFCMHandler(fcmRepo authrepo.FCMTokenRepository) *FCMHandler {
	return &FCMHandler{fcmRepo: fcmRepo}
}

func (h *FCMHandler) RegisterToken(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.RegisterFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.fcmRepo.SaveToken(userID, req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

func (h *FCMHandler) UnregisterToken(c *gin.Context) {
	token := c.Param("token")

	if err := h.fcmRepo.DeleteTokens([]string{token}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}
