package reconciliation

import (
	"context"
	"encoding/json"
	"time"

	"ledger-matching-backend/internal/logger"
	"ledger-matching-backend/internal/models"
)

const (
	OutcomeCommitted      = "committed"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeNoCandidates   = "no_candidates"
	OutcomeError          = "error"

	// progress is persisted every progressEvery items
	progressEvery = 10
)

// AutoMatchDetail describes what happened to one transaction.
type AutoMatchDetail struct {
	TransactionID string  `json:"transaction_id"`
	LedgerEntryID string  `json:"ledger_entry_id,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Outcome       string  `json:"outcome"`
	Error         string  `json:"error,omitempty"`
}

type AutoMatchResult struct {
	RunID     string            `json:"run_id,omitempty"`
	Scanned   int               `json:"scanned"`
	Committed int               `json:"committed"`
	Skipped   int               `json:"skipped"`
	Details   []AutoMatchDetail `json:"details"`
}

// ClampAutoMatchLimit applies the default and the cap of 100.
func (s *ReconciliationService) ClampAutoMatchLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.opts.AutoMatchLimit
	case limit > MaxAutoMatchLimit:
		return MaxAutoMatchLimit
	default:
		return limit
	}
}

// RunAutoMatch commits the top candidate of each imported transaction when
// its confidence reaches AutoCommitThreshold and leaves the rest for
// review. Per-transaction failures are counted as skipped; only the
// initial listing can fail the run.
func (s *ReconciliationService) RunAutoMatch(ctx context.Context, limit int, actor string) (*AutoMatchResult, error) {
	limit = s.ClampAutoMatchLimit(limit)
	actor = actorOrSystem(actor)
	log := logger.FromContext(ctx, s.log).With().Str("actor", actor).Logger()

	run := &models.AutoMatchRun{
		Actor:     actor,
		Limit:     limit,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.Runs.Create(ctx, run); err != nil {
		log.Warn().Err(err).Msg("could not record auto-match run")
		run = nil
	}

	txns, err := s.store.Transactions.ListByStatus(ctx, models.TransactionImported, limit)
	if err != nil {
		s.finishRun(ctx, run, nil, err)
		return nil, err
	}

	result := &AutoMatchResult{Details: make([]AutoMatchDetail, 0, len(txns))}
	if run != nil {
		result.RunID = run.ID.String()
	}

	for i := range txns {
		detail := s.autoMatchOne(ctx, &txns[i], actor, result.RunID)
		result.Scanned++
		if detail.Outcome == OutcomeCommitted {
			result.Committed++
		} else {
			result.Skipped++
		}
		if detail.Outcome == OutcomeError {
			log.Warn().
				Str("transaction_id", detail.TransactionID).
				Str("error", detail.Error).
				Msg("auto-match item failed")
		}
		result.Details = append(result.Details, detail)

		if run != nil && result.Scanned%progressEvery == 0 {
			if err := s.store.Runs.UpdateProgress(ctx, run.ID, result.Scanned, result.Committed, result.Skipped); err != nil {
				log.Warn().Err(err).Msg("could not update auto-match progress")
			}
		}
	}

	s.finishRun(ctx, run, result, nil)
	log.Info().
		Int("scanned", result.Scanned).
		Int("committed", result.Committed).
		Int("skipped", result.Skipped).
		Msg("auto-match finished")
	return result, nil
}

func (s *ReconciliationService) autoMatchOne(ctx context.Context, txn *models.Transaction, actor, runID string) AutoMatchDetail {
	detail := AutoMatchDetail{TransactionID: txn.ID.String()}

	bundle, err := s.suggester.SuggestForTransaction(ctx, detail.TransactionID, 1)
	if err != nil {
		detail.Outcome = OutcomeError
		detail.Error = err.Error()
		return detail
	}
	if len(bundle.Suggestions) == 0 {
		detail.Outcome = OutcomeNoCandidates
		return detail
	}

	top := bundle.Suggestions[0]
	detail.LedgerEntryID = top.LedgerEntryID
	detail.Confidence = top.Confidence
	if top.Confidence < AutoCommitThreshold {
		detail.Outcome = OutcomeBelowThreshold
		return detail
	}

	metadata := map[string]interface{}{"confidence": top.Confidence}
	if runID != "" {
		metadata["run_id"] = runID
	}
	_, err = s.CommitMatch(ctx, CommitRequest{
		TransactionID:  detail.TransactionID,
		LedgerEntryID:  top.LedgerEntryID,
		MarkReconciled: false,
		Reason:         ReasonAutoMatch,
		Actor:          actor,
		Metadata:       metadata,
	})
	if err != nil {
		detail.Outcome = OutcomeError
		detail.Error = err.Error()
		return detail
	}
	detail.Outcome = OutcomeCommitted
	return detail
}

// finishRun persists the final run state. Failures are logged only; the
// run record never changes the batch result.
func (s *ReconciliationService) finishRun(ctx context.Context, run *models.AutoMatchRun, result *AutoMatchResult, runErr error) {
	if run == nil {
		return
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = models.RunStatusCompleted
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
	}
	if result != nil {
		run.Scanned = result.Scanned
		run.Committed = result.Committed
		run.Skipped = result.Skipped
		if details, err := json.Marshal(result.Details); err == nil {
			run.Details = details
		}
	}
	if err := s.store.Runs.Finish(ctx, run); err != nil {
		s.log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("could not finish auto-match run")
	}
}

// GetRun loads a persisted auto-match run.
func (s *ReconciliationService) GetRun(ctx context.Context, runID string) (*models.AutoMatchRun, error) {
	id, err := parseID("run_id", runID)
	if err != nil {
		return nil, err
	}
	return s.store.Runs.GetByID(ctx, id)
}
