// Package reconciliation commits matches between bank transactions and
// ledger entries, runs the auto-match batch, and repairs state from the
// audit log. It is the only package that writes match state.
package reconciliation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
	"ledger-matching-backend/internal/services/matching"
)

const (
	ReasonManualMatch = "manual_match"
	ReasonAutoMatch   = "auto_match_high_confidence"

	// AutoCommitThreshold is the minimum confidence the batch runner commits
	// without a human.
	AutoCommitThreshold = 0.95

	DefaultAutoMatchLimit = 50
	MaxAutoMatchLimit     = 100
)

// Suggester ranks ledger entries for a transaction.
type Suggester interface {
	SuggestForTransaction(ctx context.Context, transactionID string, limit int) (matching.Bundle, error)
}

type Options struct {
	// CommitRetries bounds attempts when the ledger entry changed between
	// read and write.
	CommitRetries int
	// AutoMatchLimit is used when RunAutoMatch gets no limit.
	AutoMatchLimit int
}

func DefaultOptions() Options {
	return Options{
		CommitRetries:  3,
		AutoMatchLimit: DefaultAutoMatchLimit,
	}
}

type ReconciliationService struct {
	store     *repository.Store
	suggester Suggester
	opts      Options
	log       zerolog.Logger
}

func NewReconciliationService(store *repository.Store, suggester Suggester, opts Options, log zerolog.Logger) *ReconciliationService {
	if opts.CommitRetries < 1 {
		opts.CommitRetries = 1
	}
	if opts.AutoMatchLimit < 1 || opts.AutoMatchLimit > MaxAutoMatchLimit {
		opts.AutoMatchLimit = DefaultAutoMatchLimit
	}
	return &ReconciliationService{
		store:     store,
		suggester: suggester,
		opts:      opts,
		log:       log.With().Str("component", "reconciliation").Logger(),
	}
}

func (s *ReconciliationService) Store() *repository.Store {
	return s.store
}

func actorOrSystem(actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return models.ActorSystem
}

func parseID(field, value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, apperror.Validation("missing_"+field, field+" is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid_"+field, field+" must be a UUID")
	}
	return id, nil
}
