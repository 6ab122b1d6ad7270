package server

import (
	"net/http"

	"github.com/blockedu/blockedu/internal/attendance"
	"github.com/blockedu/blockedu/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttendanceHandler handles attendance marking and analytics.
type AttendanceHandler struct {
	store  *attendance.Store
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewAttendanceHandler creates an AttendanceHandler.
func NewAttendanceHandler(store *attendance.Store, tokens *auth.TokenIssuer, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{store: store, tokens: tokens, logger: logger}
}

func (h *AttendanceHandler) requireStaff() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		auth.RequireToken(h.tokens)(c)
		if c.IsAborted() {
			return
		}
		auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin)(c)
	}
}

// Register mounts the attendance routes on the given router group.
func (h *AttendanceHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/attendance")
	{
		a.POST("/marks", h.requireStaff(), h.Mark)
		a.GET("/students/:studentId/marks", h.ListMarks)
		a.GET("/students/:studentId/summary", h.Summary)
	}
}

// Mark handles POST /attendance/marks.
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var draft attendance.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mark, err := h.store.Record(c.Request.Context(), draft)
	if err != nil {
		h.logger.Error("record attendance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record attendance"})
		return
	}
	c.JSON(http.StatusCreated, mark)
}

// ListMarks handles GET /attendance/students/:studentId/marks.
func (h *AttendanceHandler) ListMarks(c *gin.Context) {
	marks, err := h.store.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.logger.Error("list attendance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load attendance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marks": marks, "count": len(marks)})
}

// Summary handles GET /attendance/students/:studentId/summary.
func (h *AttendanceHandler) Summary(c *gin.Context) {
	sum, err := h.store.Summarize(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.logger.Error("attendance summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarize attendance"})
		return
	}
	c.JSON(http.StatusOK, sum)
}
