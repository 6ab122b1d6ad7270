package server

import (
	"errors"
	"net/http"

	"github.com/blockedu/blockedu/internal/auth"
	"github.com/blockedu/blockedu/internal/students"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StudentHandler handles the student directory.
type StudentHandler struct {
	store  *students.Store
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewStudentHandler creates a StudentHandler. tokens may be nil to disable
// auth enforcement.
func NewStudentHandler(store *students.Store, tokens *auth.TokenIssuer, logger *zap.Logger) *StudentHandler {
	return &StudentHandler{store: store, tokens: tokens, logger: logger}
}

func (h *StudentHandler) requireStaff() gin.HandlerFunc {
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

// Register mounts the student routes on the given router group.
func (h *StudentHandler) Register(rg *gin.RouterGroup) {
	s := rg.Group("/students")
	{
		s.POST("", h.requireStaff(), h.Create)
		s.GET("", h.requireStaff(), h.List)
		s.GET("/:id", h.Get)
	}
}

// Create handles POST /students.
func (h *StudentHandler) Create(c *gin.Context) {
	var draft students.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.store.Create(c.Request.Context(), draft)
	if err != nil {
		if errors.Is(err, students.ErrDuplicateID) {
			c.JSON(http.StatusConflict, gin.H{"error": "student id already registered"})
			return
		}
		h.logger.Error("create student", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create student"})
		return
	}
	c.JSON(http.StatusCreated, st)
}

// Get handles GET /students/:id.
func (h *StudentHandler) Get(c *gin.Context) {
	st, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, students.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		h.logger.Error("get student", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load student"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// List handles GET /students.
func (h *StudentHandler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list students", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list students"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": list, "count": len(list)})
}
