package reconciliation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/logger"
	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
)

// CommitRequest asks to link a transaction to a ledger entry.
type CommitRequest struct {
	TransactionID  string
	LedgerEntryID  string
	MarkReconciled bool
	Reason         string
	Actor          string
	// Metadata is copied into the audit record.
	Metadata map[string]interface{}
}

type CommitResult struct {
	TransactionID string                   `json:"transaction_id"`
	LedgerEntryID string                   `json:"ledger_entry_id"`
	Status        models.TransactionStatus `json:"status"`
	AuditID       string                   `json:"audit_id"`
}

// CommitMatch links the transaction to the ledger entry, advances both
// statuses and appends one audit record, all in one database transaction.
// The ledger entry write is version checked and the transaction write is
// checked against the status that was read. A concurrent change rolls the
// attempt back and it is retried from a fresh read.
func (s *ReconciliationService) CommitMatch(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	txnID, err := parseID("transaction_id", req.TransactionID)
	if err != nil {
		return nil, err
	}
	entryID, err := parseID("ledger_entry_id", req.LedgerEntryID)
	if err != nil {
		return nil, err
	}
	req.Actor = actorOrSystem(req.Actor)
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = ReasonManualMatch
	}

	log := logger.FromContext(ctx, s.log)

	var result *CommitResult
	for attempt := 1; attempt <= s.opts.CommitRetries; attempt++ {
		err = s.store.WithTx(ctx, func(tx *repository.Store) error {
			var txErr error
			result, txErr = commitOnce(ctx, tx, txnID, entryID, req, attempt)
			return txErr
		})
		if err == nil {
			break
		}
		if !retryable(err) {
			return nil, err
		}
		log.Warn().
			Str("transaction_id", txnID.String()).
			Str("ledger_entry_id", entryID.String()).
			Int("attempt", attempt).
			Str("code", apperror.CodeOf(err)).
			Msg("concurrent change during commit, retrying")
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", result.TransactionID).
		Str("ledger_entry_id", result.LedgerEntryID).
		Str("status", string(result.Status)).
		Str("actor", req.Actor).
		Str("reason", req.Reason).
		Msg("match committed")
	return result, nil
}

// retryable reports whether a failed attempt lost a race with another
// writer and may succeed from a fresh read.
func retryable(err error) bool {
	switch apperror.CodeOf(err) {
	case repository.CodeVersionConflict, repository.CodeStatusConflict:
		return true
	}
	return false
}

func commitOnce(ctx context.Context, tx *repository.Store, txnID, entryID uuid.UUID, req CommitRequest, attempt int) (*CommitResult, error) {
	txn, err := tx.Transactions.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	entry, err := tx.LedgerEntries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if txn.Status == models.TransactionIgnored {
		return nil, apperror.Conflict("transaction_ignored",
			"transaction "+txnID.String()+" is ignored and cannot be matched")
	}
	if entry.Status == models.LedgerLocked {
		return nil, apperror.Conflict("ledger_entry_locked",
			"ledger entry "+entryID.String()+" is locked")
	}

	beforeLinks := entry.LinkedTransactionIDs.Clone()
	afterLinks := entry.LinkedTransactionIDs.Clone()
	afterLinks.Add(txnID.String())
	afterEntryStatus := entry.Status.AfterLink()

	if err := tx.LedgerEntries.UpdateLinks(ctx, entryID, entry.Version, afterLinks, afterEntryStatus); err != nil {
		return nil, err
	}

	target := models.TransactionMatched
	action := models.AuditActionMatch
	if req.MarkReconciled {
		target = models.TransactionReconciled
		action = models.AuditActionReconcile
	}
	afterTxnStatus := txn.Status
	if txn.Status.CanAdvanceTo(target) {
		afterTxnStatus = target
		if err := tx.Transactions.UpdateStatus(ctx, txnID, txn.Status, target); err != nil {
			return nil, err
		}
	}

	metadata := map[string]interface{}{
		"mark_reconciled":      req.MarkReconciled,
		"attempt":              attempt,
		"ledger_entry_version": entry.Version + 1,
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	rec := &models.AuditRecord{
		EntityType: models.EntityTransactionLedgerEntry,
		EntityID:   models.MatchEntityID(txnID, entryID),
		Action:     action,
		Actor:      req.Actor,
		Reason:     req.Reason,
		Before:     snapshot(txn.Status, entry.Status, beforeLinks),
		After:      snapshot(afterTxnStatus, afterEntryStatus, afterLinks),
		Metadata:   metadata,
	}
	if err := tx.Audit.Append(ctx, rec); err != nil {
		return nil, err
	}

	return &CommitResult{
		TransactionID: txnID.String(),
		LedgerEntryID: entryID.String(),
		Status:        afterTxnStatus,
		AuditID:       rec.ID.String(),
	}, nil
}

func snapshot(txnStatus models.TransactionStatus, entryStatus models.LedgerStatus, links models.IDSet) map[string]interface{} {
	return map[string]interface{}{
		"transaction_status":     string(txnStatus),
		"ledger_entry_status":    string(entryStatus),
		"linked_transaction_ids": links.Slice(),
	}
}
