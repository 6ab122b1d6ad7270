package server

import (
	"net/http"

	"github.com/blockedu/blockedu/internal/verification"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerifyHandler exposes public verification endpoints. Verification is
// deliberately unauthenticated: an employer holding a record ID must be able
// to check it without an account.
type VerifyHandler struct {
	engine *verification.Engine
	logger *zap.Logger
}

// NewVerifyHandler creates a VerifyHandler.
func NewVerifyHandler(engine *verification.Engine, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{engine: engine, logger: logger}
}

// Register mounts the verification routes on the given router group.
func (h *VerifyHandler) Register(rg *gin.RouterGroup) {
	v := rg.Group("/verify")
	{
		v.GET("/records/:id", h.VerifyRecord)
		v.GET("/subjects/:subjectId", h.VerifySubject)
	}
}

func outcome(res *verification.Result) string {
	switch {
	case res.Tampered:
		return "tampered"
	case !res.Verified:
		return "not_found"
	case res.Unanchored:
		return "unanchored"
	default:
		return "verified"
	}
}

// VerifyRecord handles GET /verify/records/:id. Negative outcomes are 200
// responses with verified=false; only a malformed ID or a store failure is
// an error status.
func (h *VerifyHandler) VerifyRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	res, err := h.engine.Verify(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("verify record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	RecordVerification(outcome(res))
	c.JSON(http.StatusOK, res)
}

// VerifySubject handles GET /verify/subjects/:subjectId — batch verification
// of every record issued to one subject entity.
func (h *VerifyHandler) VerifySubject(c *gin.Context) {
	report, err := h.engine.VerifySubject(c.Request.Context(), c.Param("subjectId"))
	if err != nil {
		h.logger.Error("verify subject", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}
