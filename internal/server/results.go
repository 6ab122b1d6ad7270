package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blockedu/blockedu/internal/auth"
	"github.com/blockedu/blockedu/internal/notify"
	"github.com/blockedu/blockedu/internal/results"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResultHandler handles semester result publishing and transcripts.
type ResultHandler struct {
	store    *results.Store
	notifier *notify.Service // nil = no notifications
	tokens   *auth.TokenIssuer
	logger   *zap.Logger
}

// NewResultHandler creates a ResultHandler.
func NewResultHandler(store *results.Store, notifier *notify.Service, tokens *auth.TokenIssuer, logger *zap.Logger) *ResultHandler {
	return &ResultHandler{store: store, notifier: notifier, tokens: tokens, logger: logger}
}

func (h *ResultHandler) requireStaff() gin.HandlerFunc {
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

// Register mounts the result routes on the given router group.
func (h *ResultHandler) Register(rg *gin.RouterGroup) {
	r := rg.Group("/results")
	{
		r.POST("", h.requireStaff(), h.Publish)
		r.GET("/students/:studentId/semesters/:semester", h.GetSemester)
		r.GET("/students/:studentId/transcript", h.Transcript)
	}
}

// Publish handles POST /results.
func (h *ResultHandler) Publish(c *gin.Context) {
	var draft results.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.store.Publish(c.Request.Context(), draft)
	if err != nil {
		h.logger.Error("publish result", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.notifier != nil {
		h.notifier.Push(c.Request.Context(), res.StudentID, notify.KindResultPublished,
			"Result published",
			fmt.Sprintf("Your semester %d result is out. GPA: %.2f", res.Semester, res.GPA),
		)
	}
	c.JSON(http.StatusCreated, res)
}

// GetSemester handles GET /results/students/:studentId/semesters/:semester.
func (h *ResultHandler) GetSemester(c *gin.Context) {
	semester, err := strconv.Atoi(c.Param("semester"))
	if err != nil || semester <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "semester must be a positive integer"})
		return
	}

	res, err := h.store.GetSemester(c.Request.Context(), c.Param("studentId"), semester)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		h.logger.Error("get semester result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load result"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Transcript handles GET /results/students/:studentId/transcript.
func (h *ResultHandler) Transcript(c *gin.Context) {
	tr, err := h.store.TranscriptFor(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.logger.Error("transcript", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transcript"})
		return
	}
	c.JSON(http.StatusOK, tr)
}
