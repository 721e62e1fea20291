package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger-matching-backend/internal/services/matching"
	"ledger-matching-backend/internal/services/reconciliation"
)

// SuggestMatches ranks ledger entries for one transaction, or for the most
// recent imported transactions when transaction_id is absent.
func (h *ReconciliationHandler) SuggestMatches(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}

	bundles, err := h.suggester.Suggest(c.Request.Context(), c.Query("transaction_id"), matching.ClampLimit(limit))
	if err != nil {
		respondError(c, err)
		return
	}
	if bundles == nil {
		bundles = []matching.Bundle{}
	}
	c.JSON(http.StatusOK, gin.H{"matches": bundles})
}

func (h *ReconciliationHandler) CommitMatch(c *gin.Context) {
	var payload struct {
		TransactionID  string                 `json:"transaction_id"`
		LedgerEntryID  string                 `json:"ledger_entry_id"`
		MarkReconciled bool                   `json:"mark_reconciled"`
		Reason         string                 `json:"reason"`
		Metadata       map[string]interface{} `json:"metadata"`
	}
	if err := bindOptionalJSON(c, &payload); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.service.CommitMatch(c.Request.Context(), reconciliation.CommitRequest{
		TransactionID:  payload.TransactionID,
		LedgerEntryID:  payload.LedgerEntryID,
		MarkReconciled: payload.MarkReconciled,
		Reason:         payload.Reason,
		Actor:          actor(c),
		Metadata:       payload.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReconciliationHandler) RunAutoMatch(c *gin.Context) {
	var payload struct {
		Limit int `json:"limit"`
	}
	if err := bindOptionalJSON(c, &payload); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.service.RunAutoMatch(c.Request.Context(), payload.Limit, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReconciliationHandler) GetAutoMatchRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("runId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ReconciliationHandler) RepairFromAudit(c *gin.Context) {
	var payload struct {
		Limit int `json:"limit"`
	}
	if err := bindOptionalJSON(c, &payload); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.service.RepairFromAudit(c.Request.Context(), actor(c), payload.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
