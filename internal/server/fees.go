package server

import (
	"fmt"
	"net/http"

	"github.com/blockedu/blockedu/internal/auth"
	"github.com/blockedu/blockedu/internal/fees"
	"github.com/blockedu/blockedu/internal/notify"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FeeHandler handles fee payment recording and summaries.
type FeeHandler struct {
	svc      *fees.Service
	notifier *notify.Service // nil = no notifications
	tokens   *auth.TokenIssuer
	logger   *zap.Logger
}

// NewFeeHandler creates a FeeHandler.
func NewFeeHandler(svc *fees.Service, notifier *notify.Service, tokens *auth.TokenIssuer, logger *zap.Logger) *FeeHandler {
	return &FeeHandler{svc: svc, notifier: notifier, tokens: tokens, logger: logger}
}

func (h *FeeHandler) requireAuth() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return auth.RequireToken(h.tokens)
}

// Register mounts the fee routes on the given router group.
func (h *FeeHandler) Register(rg *gin.RouterGroup) {
	f := rg.Group("/fees")
	{
		f.POST("/payments", h.requireAuth(), h.RecordPayment)
		f.GET("/students/:studentId/payments", h.requireAuth(), h.ListPayments)
		f.GET("/students/:studentId/summary", h.requireAuth(), h.Summary)
	}
}

// RecordPayment handles POST /fees/payments — records and anchors a payment.
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var draft fees.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.svc.Record(c.Request.Context(), draft)
	if err != nil {
		h.logger.Error("record payment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
		return
	}

	if h.notifier != nil {
		h.notifier.Push(c.Request.Context(), p.StudentID, notify.KindPaymentRecorded,
			"Payment recorded",
			fmt.Sprintf("Your payment of %.2f %s for %s was recorded.", float64(p.AmountMinor)/100, p.Currency, p.Term),
		)
	}
	c.JSON(http.StatusCreated, p)
}

// ListPayments handles GET /fees/students/:studentId/payments.
func (h *FeeHandler) ListPayments(c *gin.Context) {
	payments, err := h.svc.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.logger.Error("list payments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

// Summary handles GET /fees/students/:studentId/summary.
func (h *FeeHandler) Summary(c *gin.Context) {
	sum, err := h.svc.Summarize(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.logger.Error("fee summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarize payments"})
		return
	}
	c.JSON(http.StatusOK, sum)
}
