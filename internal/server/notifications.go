package server

import (
	"net/http"

	"github.com/blockedu/blockedu/internal/auth"
	"github.com/blockedu/blockedu/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationHandler serves the in-app notification feed.
type NotificationHandler struct {
	svc    *notify.Service
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(svc *notify.Service, tokens *auth.TokenIssuer, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, tokens: tokens, logger: logger}
}

func (h *NotificationHandler) requireAuth() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return auth.RequireToken(h.tokens)
}

// Register mounts the notification routes on the given router group.
func (h *NotificationHandler) Register(rg *gin.RouterGroup) {
	n := rg.Group("/notifications")
	{
		n.GET("/students/:studentId", h.requireAuth(), h.List)
		n.POST("/students/:studentId/:id/read", h.requireAuth(), h.MarkRead)
	}
}

// List handles GET /notifications/students/:studentId — newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	feed := h.svc.ListByStudent(c.Request.Context(), c.Param("studentId"))
	c.JSON(http.StatusOK, gin.H{"notifications": feed, "count": len(feed)})
}

// MarkRead handles POST /notifications/students/:studentId/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	if !h.svc.MarkRead(c.Request.Context(), c.Param("studentId"), id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}
