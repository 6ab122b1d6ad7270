package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/blockedu/blockedu/internal/auth"
	"github.com/blockedu/blockedu/internal/notify"
	"github.com/blockedu/blockedu/internal/records"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordHandler handles HTTP requests for academic record issuance.
type RecordHandler struct {
	svc      *records.Service
	notifier *notify.Service // nil = no notifications
	tokens   *auth.TokenIssuer
	logger   *zap.Logger
}

// NewRecordHandler creates a RecordHandler. notifier and tokens may be nil;
// a nil tokens disables auth enforcement (tests and open mode).
func NewRecordHandler(svc *records.Service, notifier *notify.Service, tokens *auth.TokenIssuer, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{svc: svc, notifier: notifier, tokens: tokens, logger: logger}
}

func (h *RecordHandler) requireIssuer() gin.HandlerFunc {
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

// Register mounts the record routes on the given router group.
func (h *RecordHandler) Register(rg *gin.RouterGroup) {
	recs := rg.Group("/records")
	{
		recs.POST("", h.requireIssuer(), h.Issue)
		recs.GET("/:id", h.Get)
		recs.PATCH("/:id", h.requireIssuer(), h.UpdateMetadata)
		recs.POST("/:id/reissue", h.requireIssuer(), h.Reissue)
		recs.POST("/:id/reanchor", h.requireIssuer(), h.Reanchor)
	}
	rg.GET("/subjects/:subjectId/records", h.ListBySubject)
}

// Issue handles POST /records — issues and anchors a new record.
func (h *RecordHandler) Issue(c *gin.Context) {
	var draft records.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if claims := auth.ClaimsFromCtx(c); claims != nil && draft.IssuedBy == "" {
		draft.IssuedBy = claims.Email
	}

	rec, entry, err := h.svc.Issue(c.Request.Context(), draft)
	if err != nil {
		h.logger.Error("issue record", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.notifier != nil {
		h.notifier.Push(c.Request.Context(), rec.SubjectID, notify.KindRecordIssued,
			"New record issued",
			fmt.Sprintf("A %s titled %q was issued to you.", rec.Type, rec.Title),
		)
	}

	resp := gin.H{"record": rec}
	if entry != nil {
		resp["transaction"] = entry
	}
	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /records/:id.
func (h *RecordHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		h.logger.Error("get record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load record"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListBySubject handles GET /subjects/:subjectId/records.
func (h *RecordHandler) ListBySubject(c *gin.Context) {
	recs, err := h.svc.FindBySubject(c.Request.Context(), c.Param("subjectId"))
	if err != nil {
		h.logger.Error("list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

// UpdateMetadata handles PATCH /records/:id. Attempts to touch payload,
// content_hash, or type come back as 422 so the client can distinguish a
// contract violation from a malformed request.
func (h *RecordHandler) UpdateMetadata(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	var patch records.MetadataPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.UpdateMetadata(c.Request.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, records.ErrImmutableField):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, records.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		default:
			h.logger.Error("update record metadata", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update record"})
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}

type reissueRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// Reissue handles POST /records/:id/reissue — issues a replacement record
// with a new payload and hash.
func (h *RecordHandler) Reissue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	var req reissueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issuedBy := ""
	if claims := auth.ClaimsFromCtx(c); claims != nil {
		issuedBy = claims.Email
	}

	rec, entry, err := h.svc.Reissue(c.Request.Context(), id, req.Payload, issuedBy)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		h.logger.Error("reissue record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reissue record"})
		return
	}

	resp := gin.H{"record": rec}
	if entry != nil {
		resp["transaction"] = entry
	}
	c.JSON(http.StatusCreated, resp)
}

// Reanchor handles POST /records/:id/reanchor.
func (h *RecordHandler) Reanchor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	actor := ""
	if claims := auth.ClaimsFromCtx(c); claims != nil {
		actor = claims.Email
	}

	entry, err := h.svc.Reanchor(c.Request.Context(), id, actor)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		h.logger.Error("reanchor record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reanchor record"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": entry})
}
