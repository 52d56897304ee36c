package delivery

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"

	maildomain "mailbridge-backend/internal/mail/domain"
	"mailbridge-backend/internal/mail/dto"
	"mailbridge-backend/internal/mail/usecase"

	"github.com/gin-gonic/gin"
)

// MailHandler exposes sync, send and mailbox state over HTTP.
type MailHandler struct {
	mailUsecase usecase.MailUsecase
}

func NewMailHandler(mailUsecase usecase.MailUsecase) *MailHandler {
	return &MailHandler{mailUsecase: mailUsecase}
}

// respondError maps domain errors onto HTTP statuses. An expired
// provider credential gets a distinct code so clients know to run the
// re-auth flow instead of retrying.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, maildomain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, maildomain.ErrAuthExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "AUTH_REFRESH_NEEDED"})
	case errors.Is(err, maildomain.ErrTransientProvider):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.Printf("[Mail] Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// SyncEmails triggers a sync run for the authenticated user.
func (h *MailHandler) SyncEmails(c *gin.Context) {
	userID := c.GetString("userID")

	report, err := h.mailUsecase.SyncEmails(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SendEmail sends a message on a fresh thread.
func (h *MailHandler) SendEmail(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.mailUsecase.SendNew(c.Request.Context(), userID, toSendRequest(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReplyEmail sends a reply on an existing thread.
func (h *MailHandler) ReplyEmail(c *gin.Context) {
	userID := c.GetString("userID")
	threadID := c.Param("threadId")

	var req dto.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.mailUsecase.SendReply(c.Request.Context(), userID, threadID, toSendRequest(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetThread returns the stored messages of one thread in arrival order.
func (h *MailHandler) GetThread(c *gin.Context) {
	userID := c.GetString("userID")
	threadID := c.Param("threadId")

	emails, err := h.mailUsecase.GetThread(c.Request.Context(), userID, threadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

// GetAttachment streams attachment bytes.
func (h *MailHandler) GetAttachment(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("id")
	attachmentID := c.Param("attachmentId")

	data, mimeType, err := h.mailUsecase.GetAttachment(c.Request.Context(), userID, messageID, attachmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, mimeType, data)
}

// MarkAsRead marks a message read with the provider and locally.
func (h *MailHandler) MarkAsRead(c *gin.Context) {
	h.setRead(c, true)
}

// MarkAsUnread marks a message unread with the provider and locally.
func (h *MailHandler) MarkAsUnread(c *gin.Context) {
	h.setRead(c, false)
}

func (h *MailHandler) setRead(c *gin.Context, read bool) {
	userID := c.GetString("userID")
	messageID := c.Param("id")

	if err := h.mailUsecase.MarkAsRead(c.Request.Context(), userID, messageID, read); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "is_read": read})
}

// WatchMailbox registers push notifications for the user's mailbox and
// returns the registration including its expiration.
func (h *MailHandler) WatchMailbox(c *gin.Context) {
	userID := c.GetString("userID")

	reg, err := h.mailUsecase.WatchMailbox(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

// StopWatch cancels push notifications for the user's mailbox.
func (h *MailHandler) StopWatch(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.mailUsecase.StopWatchMailbox(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func toSendRequest(req dto.SendEmailRequest) usecase.SendRequest {
	out := usecase.SendRequest{
		To:       req.To,
		Subject:  req.Subject,
		HTMLBody: req.HTMLBody,
	}
	for _, att := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			// Keep the attachment in the request with no bytes; the
			// composer reports it as a failed attachment.
			data = nil
		}
		out.Attachments = append(out.Attachments, usecase.OutboundAttachment{
			Filename: att.Filename,
			MimeType: att.MimeType,
			Data:     data,
		})
	}
	return out
}
