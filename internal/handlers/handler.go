package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/logger"
	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
	"ledger-matching-backend/internal/services/matching"
	"ledger-matching-backend/internal/services/reconciliation"
)

// ActorHeader names who is acting on a request.
const ActorHeader = "X-Actor"

// Suggester is the read side of matching used by the handlers.
type Suggester interface {
	Suggest(ctx context.Context, transactionID string, limit int) ([]matching.Bundle, error)
}

type ReconciliationHandler struct {
	service   *reconciliation.ReconciliationService
	suggester Suggester
	store     *repository.Store
}

func NewReconciliationHandler(s *reconciliation.ReconciliationService, suggester Suggester) *ReconciliationHandler {
	return &ReconciliationHandler{
		service:   s,
		suggester: suggester,
		store:     s.Store(),
	}
}

func actor(c *gin.Context) string {
	if a := strings.TrimSpace(c.GetHeader(ActorHeader)); a != "" {
		return a
	}
	return models.ActorSystem
}

// respondError writes err as {code, message} with the status of its
// category. Internal details are logged, not returned.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log := logger.FromContext(c.Request.Context(), logger.Nop())
		log.Error().Err(err).Msg("request failed")
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"code":    apperror.CodeOf(err),
		"message": message,
	})
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("invalid_"+name, name+" must be an integer")
	}
	return n, nil
}

// bindOptionalJSON binds the body into dst when there is one.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperror.Validation("invalid_payload", "invalid payload: "+err.Error())
	}
	return nil
}
