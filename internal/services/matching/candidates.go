// Package matching scores bank transactions against ledger entries and
// ranks the likely matches. Nothing in this package writes state.
package matching

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/models"
)

const (
	DefaultLimit      = 8
	MaxLimit          = 20
	MinConfidence     = 0.60
	CandidatePoolSize = 500
	TransactionPool   = 50
)

// TransactionSource reads transactions.
type TransactionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error)
}

// LedgerSource reads ledger entries eligible for matching.
type LedgerSource interface {
	ListCandidates(ctx context.Context, statuses []models.LedgerStatus, limit int) ([]models.LedgerEntry, error)
}

// Suggestion is one ranked ledger entry for a transaction.
type Suggestion struct {
	LedgerEntryID string   `json:"ledger_entry_id"`
	Confidence    float64  `json:"confidence"`
	Reasons       []string `json:"reasons"`
}

// Bundle holds the suggestions for one transaction.
type Bundle struct {
	TransactionID string       `json:"transaction_id"`
	Suggestions   []Suggestion `json:"suggestions"`
}

// Generator produces ranked match candidates.
type Generator struct {
	transactions TransactionSource
	ledger       LedgerSource
	workers      int
	log          zerolog.Logger
}

func NewGenerator(transactions TransactionSource, ledger LedgerSource, workers int, log zerolog.Logger) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		transactions: transactions,
		ledger:       ledger,
		workers:      workers,
		log:          log.With().Str("component", "candidates").Logger(),
	}
}

// ClampLimit applies the default and the hard cap to a requested limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Suggest returns suggestions for one transaction, or, when transactionID
// is empty, for the most recently posted imported transactions.
func (g *Generator) Suggest(ctx context.Context, transactionID string, limit int) ([]Bundle, error) {
	limit = ClampLimit(limit)

	var txns []models.Transaction
	if transactionID != "" {
		txn, err := g.loadTransaction(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		txns = []models.Transaction{*txn}
	} else {
		var err error
		txns, err = g.transactions.ListByStatus(ctx, models.TransactionImported, TransactionPool)
		if err != nil {
			return nil, err
		}
	}

	pool, err := g.ledger.ListCandidates(ctx, models.CandidateStatuses, CandidatePoolSize)
	if err != nil {
		return nil, err
	}

	bundles := make([]Bundle, len(txns))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range txns {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			bundles[i] = Rank(&txns[i], pool, limit)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.log.Debug().
		Int("transactions", len(txns)).
		Int("pool", len(pool)).
		Int("limit", limit).
		Msg("suggestions generated")
	return bundles, nil
}

// SuggestForTransaction returns the bundle for a single transaction.
func (g *Generator) SuggestForTransaction(ctx context.Context, transactionID string, limit int) (Bundle, error) {
	if transactionID == "" {
		return Bundle{}, apperror.Validation("missing_transaction_id", "transaction_id is required")
	}
	bundles, err := g.Suggest(ctx, transactionID, limit)
	if err != nil {
		return Bundle{}, err
	}
	return bundles[0], nil
}

func (g *Generator) loadTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	id, err := uuid.Parse(transactionID)
	if err != nil {
		return nil, apperror.Validation("invalid_transaction_id", "transaction_id must be a UUID")
	}
	return g.transactions.GetByID(ctx, id)
}

// Rank scores txn against every entry in pool, drops anything below
// MinConfidence, and returns the best limit entries. Ties keep pool order.
func Rank(txn *models.Transaction, pool []models.LedgerEntry, limit int) Bundle {
	suggestions := make([]Suggestion, 0, len(pool))
	for i := range pool {
		ev := Evaluate(txn, &pool[i])
		if ev.Confidence < MinConfidence {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			LedgerEntryID: pool[i].ID.String(),
			Confidence:    ev.Confidence,
			Reasons:       ev.Reasons,
		})
	}

	sort.SliceStable(suggestions, func(a, b int) bool {
		return suggestions[a].Confidence > suggestions[b].Confidence
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	return Bundle{
		TransactionID: txn.ID.String(),
		Suggestions:   suggestions,
	}
}
