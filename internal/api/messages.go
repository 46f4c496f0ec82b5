package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-connect/internal/messaging"
	"whatsapp-connect/internal/repo"
)

// MessageHandler exposes outbound sends and conversation queries.
type MessageHandler struct {
	DB         *gorm.DB
	Dispatcher *messaging.Dispatcher
}

func NewMessageHandler(db *gorm.DB, dispatcher *messaging.Dispatcher) *MessageHandler {
	return &MessageHandler{DB: db, Dispatcher: dispatcher}
}

func (h *MessageHandler) Send(c *gin.Context) {
	company, ok := resolveCompany(c, h.DB)
	if !ok {
		return
	}

	var req messaging.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Dispatcher.Send(c.Request.Context(), company, req)
	if err != nil {
		var dispatchErr *messaging.DispatchError
		if errors.As(err, &dispatchErr) {
			c.JSON(statusForDispatchCode(dispatchErr.Code), gin.H{
				"error": dispatchErr.Detail,
				"code":  dispatchErr.Code,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *MessageHandler) ListConversations(c *gin.Context) {
	company, ok := resolveCompany(c, h.DB)
	if !ok {
		return
	}
	conversations, err := repo.ListConversations(h.DB, company.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	company, ok := resolveCompany(c, h.DB)
	if !ok {
		return
	}
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	messages, err := repo.ListMessages(h.DB, company.ID, conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func statusForDispatchCode(code messaging.DispatchCode) int {
	switch code {
	case messaging.CodeWindowClosed:
		return http.StatusUnprocessableEntity
	case messaging.CodeInvalidRecipient:
		return http.StatusBadRequest
	case messaging.CodeRateLimited:
		return http.StatusTooManyRequests
	case messaging.CodeTemplateNotFound:
		return http.StatusNotFound
	case messaging.CodeRecipientUnreachable, messaging.CodeSendRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
