package server

import (
	"net/http"

	"github.com/blockedu/blockedu/internal/assistant"
	"github.com/blockedu/blockedu/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler exposes the rule-based assistant.
type ChatHandler struct {
	assistant *assistant.Assistant
	tokens    *auth.TokenIssuer
	logger    *zap.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(a *assistant.Assistant, tokens *auth.TokenIssuer, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{assistant: a, tokens: tokens, logger: logger}
}

func (h *ChatHandler) requireAuth() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return auth.RequireToken(h.tokens)
}

// Register mounts the chat route on the given router group.
func (h *ChatHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/chat", h.requireAuth(), h.Chat)
}

type chatRequest struct {
	Message   string `json:"message" binding:"required"`
	StudentID string `json:"student_id"`
}

// Chat handles POST /chat. The student context comes from the session token
// when present; the explicit student_id field covers open mode and staff
// asking on a student's behalf.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	studentID := req.StudentID
	if claims := auth.ClaimsFromCtx(c); claims != nil && claims.StudentID != "" {
		studentID = claims.StudentID
	}

	reply := h.assistant.Reply(c.Request.Context(), studentID, req.Message)
	c.JSON(http.StatusOK, reply)
}
