package server

import (
	"errors"
	"net/http"

	"github.com/blockedu/blockedu/internal/ledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LedgerHandler exposes read-only HTTP endpoints for the transaction ledger.
// There is no write endpoint here: entries are appended only as a side
// effect of issuance and payment operations.
type LedgerHandler struct {
	store  ledger.Store
	logger *zap.Logger
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(store ledger.Store, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{store: store, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/transactions/:txId", h.GetTransaction)
		l.GET("/records/:recordId", h.ListByRecord)
	}
}

// Overview handles GET /ledger — returns the entry count.
func (h *LedgerHandler) Overview(c *gin.Context) {
	count, err := h.store.Len(c.Request.Context())
	if err != nil {
		h.logger.Error("ledger Len", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": count})
}

// GetTransaction handles GET /ledger/transactions/:txId.
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	entry, err := h.store.FindByTransactionID(c.Request.Context(), c.Param("txId"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		h.logger.Error("ledger FindByTransactionID", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListByRecord handles GET /ledger/records/:recordId — all anchoring events
// for one record, oldest first.
func (h *LedgerHandler) ListByRecord(c *gin.Context) {
	entries, err := h.store.FindByRecordID(c.Request.Context(), c.Param("recordId"))
	if err != nil {
		h.logger.Error("ledger FindByRecordID", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
