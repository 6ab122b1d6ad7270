package server

import (
	"errors"
	"net/http"

	"github.com/blockedu/blockedu/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles account registration and login.
type AuthHandler struct {
	users  *auth.UserStore
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *auth.UserStore, tokens *auth.TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	{
		a.POST("/register", h.RegisterUser)
		a.POST("/login", h.Login)
		a.GET("/me", auth.RequireToken(h.tokens), h.Me)
	}
}

type registerRequest struct {
	Email     string `json:"email"    binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Name      string `json:"name"     binding:"required"`
	Role      string `json:"role"`
	StudentID string `json:"student_id"`
}

// RegisterUser handles POST /auth/register. Self-registration always yields
// a student account; faculty and admin roles are provisioned at seed time.
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Password, req.Name, auth.RoleStudent, req.StudentID)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.logger.Error("register user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// Me handles GET /auth/me — returns the authenticated user's claims.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := auth.ClaimsFromCtx(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"role":       claims.Role,
		"student_id": claims.StudentID,
	})
}
