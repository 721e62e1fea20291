package reconciliation

import (
	"context"
	"fmt"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/logger"
	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
)

// ReconcileTransaction confirms a matched transaction as final.
func (s *ReconciliationService) ReconcileTransaction(ctx context.Context, transactionID, actor, reason string) (*models.Transaction, error) {
	if reason == "" {
		reason = "manual_reconcile"
	}
	return s.advanceTransaction(ctx, transactionID, models.TransactionReconciled, models.AuditActionReconcile, actor, reason)
}

// IgnoreTransaction takes an imported transaction out of matching.
func (s *ReconciliationService) IgnoreTransaction(ctx context.Context, transactionID, actor, reason string) (*models.Transaction, error) {
	if reason == "" {
		reason = "manual_ignore"
	}
	return s.advanceTransaction(ctx, transactionID, models.TransactionIgnored, models.AuditActionIgnore, actor, reason)
}

func (s *ReconciliationService) advanceTransaction(ctx context.Context, transactionID string, next models.TransactionStatus, action, actor, reason string) (*models.Transaction, error) {
	id, err := parseID("transaction_id", transactionID)
	if err != nil {
		return nil, err
	}
	actor = actorOrSystem(actor)

	var updated *models.Transaction
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		txn, err := tx.Transactions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if next == models.TransactionReconciled && txn.Status != models.TransactionMatched {
			return apperror.Conflict("transaction_not_matched",
				fmt.Sprintf("transaction %s is %s, only matched transactions can be reconciled", id, txn.Status))
		}
		if !txn.Status.CanAdvanceTo(next) {
			return apperror.Conflict("invalid_status_transition",
				fmt.Sprintf("transaction %s cannot move from %s to %s", id, txn.Status, next))
		}
		if err := tx.Transactions.UpdateStatus(ctx, id, txn.Status, next); err != nil {
			return err
		}

		prev := txn.Status
		txn.Status = next
		updated = txn

		return tx.Audit.Append(ctx, &models.AuditRecord{
			EntityType: models.EntityTransaction,
			EntityID:   id.String(),
			Action:     action,
			Actor:      actor,
			Reason:     reason,
			Before:     map[string]interface{}{"transaction_status": string(prev)},
			After:      map[string]interface{}{"transaction_status": string(next)},
		})
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, s.log)
	log.Info().
		Str("transaction_id", id.String()).
		Str("status", string(next)).
		Str("actor", actor).
		Msg("transaction status changed")
	return updated, nil
}
