package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	handler "ledger-matching-backend/internal/handlers"
)

func RegisterRoutes(r *gin.Engine, h *handler.ReconciliationHandler) {
	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	matches := api.Group("/matches")
	matches.GET("/suggestions", h.SuggestMatches)
	matches.POST("", h.CommitMatch)
	matches.POST("/auto", h.RunAutoMatch)
	matches.GET("/auto/:runId", h.GetAutoMatchRun)
	matches.POST("/repair", h.RepairFromAudit)

	// Transaction-level routes
	tx := api.Group("/transactions")
	tx.POST("", h.UpsertTransaction)
	tx.GET("", h.ListTransactions)
	tx.GET("/stats", h.TransactionStats)
	tx.POST("/:id/reconcile", h.ReconcileTransaction)
	tx.POST("/:id/ignore", h.IgnoreTransaction)

	api.POST("/ledger-entries", h.CreateLedgerEntry)
	api.GET("/audit", h.ListAudit)
}
