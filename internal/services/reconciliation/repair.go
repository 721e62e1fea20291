package reconciliation

import (
	"context"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/logger"
	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
)

type RepairResult struct {
	Examined int      `json:"examined"`
	Repaired int      `json:"repaired"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// RepairFromAudit replays committed match decisions, oldest first, and
// restores any link or transaction status the current state is missing.
// Each fix is itself audited with action "repair".
func (s *ReconciliationService) RepairFromAudit(ctx context.Context, actor string, limit int) (*RepairResult, error) {
	actor = actorOrSystem(actor)
	log := logger.FromContext(ctx, s.log)

	recs, err := s.store.Audit.List(ctx, repository.AuditFilter{
		EntityType: models.EntityTransactionLedgerEntry,
		Actions:    []string{models.AuditActionMatch, models.AuditActionReconcile, models.AuditActionRepair},
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	result := &RepairResult{}
	for i := range recs {
		result.Examined++
		repaired, err := s.repairOne(ctx, &recs[i], actor)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, recs[i].EntityID+": "+err.Error())
			continue
		}
		if repaired {
			result.Repaired++
		}
	}

	log.Info().
		Int("examined", result.Examined).
		Int("repaired", result.Repaired).
		Int("failed", result.Failed).
		Msg("audit replay finished")
	return result, nil
}

func (s *ReconciliationService) repairOne(ctx context.Context, rec *models.AuditRecord, actor string) (bool, error) {
	txnID, entryID, ok := models.ParseMatchEntityID(rec.EntityID)
	if !ok {
		return false, apperror.Validation("invalid_entity_id", "malformed audit entity id "+rec.EntityID)
	}
	want := expectedStatus(rec)

	repaired := false
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		txn, err := tx.Transactions.GetByID(ctx, txnID)
		if err != nil {
			return err
		}
		entry, err := tx.LedgerEntries.GetByID(ctx, entryID)
		if err != nil {
			return err
		}

		// a manual ignore after the match wins over the replay
		if txn.Status == models.TransactionIgnored {
			return nil
		}

		linked := entry.LinkedTransactionIDs.Contains(txnID.String())
		statusOK := txn.Status.AtLeast(want)
		if linked && statusOK {
			return nil
		}

		beforeLinks := entry.LinkedTransactionIDs.Clone()
		afterLinks := entry.LinkedTransactionIDs.Clone()
		afterEntryStatus := entry.Status
		if !linked {
			if entry.Status == models.LedgerLocked {
				return apperror.Conflict("ledger_entry_locked",
					"ledger entry "+entryID.String()+" is locked, link cannot be restored")
			}
			afterLinks.Add(txnID.String())
			afterEntryStatus = entry.Status.AfterLink()
			if err := tx.LedgerEntries.UpdateLinks(ctx, entryID, entry.Version, afterLinks, afterEntryStatus); err != nil {
				return err
			}
		}

		afterTxnStatus := txn.Status
		if !statusOK {
			afterTxnStatus = want
			if err := tx.Transactions.UpdateStatus(ctx, txnID, txn.Status, want); err != nil {
				return err
			}
		}

		repaired = true
		return tx.Audit.Append(ctx, &models.AuditRecord{
			EntityType: models.EntityTransactionLedgerEntry,
			EntityID:   rec.EntityID,
			Action:     models.AuditActionRepair,
			Actor:      actor,
			Reason:     "replay_from_audit",
			Before:     snapshot(txn.Status, entry.Status, beforeLinks),
			After:      snapshot(afterTxnStatus, afterEntryStatus, afterLinks),
			Metadata:   map[string]interface{}{"source_audit_id": rec.ID.String()},
		})
	})
	return repaired, err
}

// expectedStatus reads the transaction status an audit record left behind.
func expectedStatus(rec *models.AuditRecord) models.TransactionStatus {
	if v, ok := rec.After["transaction_status"].(string); ok {
		if status := models.TransactionStatus(v); status.Valid() {
			return status
		}
	}
	if rec.Action == models.AuditActionReconcile {
		return models.TransactionReconciled
	}
	return models.TransactionMatched
}
