package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sentri/retail-security/internal/application"
	"go.uber.org/zap"
)

// ChatHandler exposes the security assistant chat over HTTP.
type ChatHandler struct {
	chat   *application.ChatService
	logger *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat *application.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// Register mounts the chat routes on the given router group.
func (h *ChatHandler) Register(rg *gin.RouterGroup) {
	ch := rg.Group("/chat")
	{
		ch.POST("", h.Send)
		ch.GET("/:userId", h.Transcript)
	}
}

type chatRequest struct {
	UserID  int64  `json:"userId"`
	Message string `json:"message" binding:"required"`
}

// Send handles POST /chat: one chat turn.
func (h *ChatHandler) Send(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.chat.Reply(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		if errors.Is(err, application.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("chat reply", zap.Int64("user_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chat failed"})
		return
	}

	c.JSON(http.StatusOK, reply)
}

// Transcript handles GET /chat/:userId.
func (h *ChatHandler) Transcript(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be an integer"})
		return
	}

	conv, ok := h.chat.Transcript(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	c.JSON(http.StatusOK, conv)
}
