package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
	"ledger-matching-backend/internal/services/reconciliation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// UpsertTransaction ingests a normalized transaction. Re-sending the same
// source reference returns the stored row with 200 instead of 201.
func (h *ReconciliationHandler) UpsertTransaction(c *gin.Context) {
	var payload reconciliation.TransactionInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperror.Validation("invalid_payload", "invalid payload: "+err.Error()))
		return
	}

	txn, created, err := h.service.IngestTransaction(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"created": created, "transaction": txn})
}

func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	status := c.Query("status")
	if status != "" && status != "all" && !models.TransactionStatus(status).Valid() {
		respondError(c, apperror.Validation("invalid_status", "unknown transaction status "+status))
		return
	}

	items, nextCursor, hasMore, err := h.store.Transactions.List(c.Request.Context(), repository.ListFilter{
		Status: status,
		Cursor: c.Query("cursor"),
		Search: c.Query("search"),
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

func (h *ReconciliationHandler) TransactionStats(c *gin.Context) {
	stats, err := h.store.Transactions.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ReconciliationHandler) ReconcileTransaction(c *gin.Context) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := bindOptionalJSON(c, &payload); err != nil {
		respondError(c, err)
		return
	}

	txn, err := h.service.ReconcileTransaction(c.Request.Context(), c.Param("id"), actor(c), payload.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction reconciled", "transaction": txn})
}

func (h *ReconciliationHandler) IgnoreTransaction(c *gin.Context) {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := bindOptionalJSON(c, &payload); err != nil {
		respondError(c, err)
		return
	}

	txn, err := h.service.IgnoreTransaction(c.Request.Context(), c.Param("id"), actor(c), payload.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction ignored", "transaction": txn})
}
