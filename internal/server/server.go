package server

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/blockedu/blockedu/internal/assistant"
	"github.com/blockedu/blockedu/internal/attendance"
	"github.com/blockedu/blockedu/internal/auth"
	"github.com/blockedu/blockedu/internal/fees"
	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/blockedu/blockedu/internal/notify"
	"github.com/blockedu/blockedu/internal/records"
	"github.com/blockedu/blockedu/internal/results"
	"github.com/blockedu/blockedu/internal/students"
	"github.com/blockedu/blockedu/internal/verification"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds the HTTP-layer settings.
type Config struct {
	CORSOrigins  []string
	RateLimitRPS int   // 0 disables rate limiting
	BodyLimit    int64 // max request body bytes; 0 = 1 MB
}

// Deps bundles the wired services the router needs. Tokens may be nil to run
// without auth enforcement; Notifier may be nil to disable notifications.
type Deps struct {
	Records    *records.Service
	Ledger     ledger.Store
	Verifier   *verification.Engine
	Students   *students.Store
	Fees       *fees.Service
	Attendance *attendance.Store
	Results    *results.Store
	Notifier   *notify.Service
	Assistant  *assistant.Assistant
	Users      *auth.UserStore
	Tokens     *auth.TokenIssuer
	Logger     *zap.Logger
}

// NewRouter assembles the full gin engine: middleware chain, health and
// metrics endpoints, and every feature handler under /api/v1.
func NewRouter(cfg Config, d Deps) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit
	bodyLimit := cfg.BodyLimit
	if bodyLimit == 0 {
		bodyLimit = 1 << 20
	}
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)
		c.Next()
	})

	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}

	router.Use(PrometheusMiddleware())
	router.Use(requestLogger(d.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", MetricsHandler())

	v1 := router.Group("/api/v1")
	NewRecordHandler(d.Records, d.Notifier, d.Tokens, d.Logger).Register(v1)
	NewVerifyHandler(d.Verifier, d.Logger).Register(v1)
	NewLedgerHandler(d.Ledger, d.Logger).Register(v1)
	NewStudentHandler(d.Students, d.Tokens, d.Logger).Register(v1)
	NewFeeHandler(d.Fees, d.Notifier, d.Tokens, d.Logger).Register(v1)
	NewAttendanceHandler(d.Attendance, d.Tokens, d.Logger).Register(v1)
	NewResultHandler(d.Results, d.Notifier, d.Tokens, d.Logger).Register(v1)
	if d.Notifier != nil {
		NewNotificationHandler(d.Notifier, d.Tokens, d.Logger).Register(v1)
	}
	NewChatHandler(d.Assistant, d.Tokens, d.Logger).Register(v1)
	if d.Users != nil && d.Tokens != nil {
		NewAuthHandler(d.Users, d.Tokens, d.Logger).Register(v1)
	}

	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
