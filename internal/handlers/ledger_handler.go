package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/repository"
	"ledger-matching-backend/internal/services/reconciliation"
)

func (h *ReconciliationHandler) CreateLedgerEntry(c *gin.Context) {
	var payload reconciliation.LedgerEntryInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperror.Validation("invalid_payload", "invalid payload: "+err.Error()))
		return
	}

	entry, err := h.service.CreateLedgerEntry(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListAudit returns audit records oldest first.
func (h *ReconciliationHandler) ListAudit(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	recs, err := h.store.Audit.List(c.Request.Context(), repository.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs})
}
