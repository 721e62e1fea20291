package reconciliation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/logger"
	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
	"ledger-matching-backend/internal/services/matching"
	"ledger-matching-backend/internal/testutil"
)

func newService(t *testing.T, suggester Suggester) (*ReconciliationService, *repository.Store) {
	t.Helper()
	store := testutil.NewStore(t)
	if suggester == nil {
		suggester = matching.NewGenerator(store.Transactions, store.LedgerEntries, 2, logger.Nop())
	}
	return NewReconciliationService(store, suggester, DefaultOptions(), logger.Nop()), store
}

func auditFor(t *testing.T, store *repository.Store, txn *models.Transaction, entry *models.LedgerEntry) []models.AuditRecord {
	t.Helper()
	recs, err := store.Audit.List(context.Background(), repository.AuditFilter{
		EntityType: models.EntityTransactionLedgerEntry,
		EntityID:   models.MatchEntityID(txn.ID, entry.ID),
	})
	require.NoError(t, err)
	return recs
}

func TestCommitMatch_LinksAndAudits(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	txn := testutil.Transaction(t, store, "-45.00", "2024-03-10", "Invoice INV-1042 payment")
	entry := testutil.LedgerEntry(t, store, "45.00", "2024-03-09", "INV-1042", models.LedgerDraft)

	res, err := svc.CommitMatch(ctx, CommitRequest{
		TransactionID: txn.ID.String(),
		LedgerEntryID: entry.ID.String(),
		Actor:         "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionMatched, res.Status)
	assert.Equal(t, txn.ID.String(), res.TransactionID)
	assert.Equal(t, entry.ID.String(), res.LedgerEntryID)

	storedTxn, err := store.Transactions.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionMatched, storedTxn.Status)

	storedEntry, err := store.LedgerEntries.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerNeedsApproval, storedEntry.Status)
	assert.Equal(t, models.IDSet{txn.ID.String()}, storedEntry.LinkedTransactionIDs)

	recs := auditFor(t, store, txn, entry)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, res.AuditID, rec.ID.String())
	assert.Equal(t, models.AuditActionMatch, rec.Action)
	assert.Equal(t, "alice", rec.Actor)
	assert.Equal(t, ReasonManualMatch, rec.Reason)
	assert.Equal(t, "imported", rec.Before["transaction_status"])
	assert.Equal(t, "matched", rec.After["transaction_status"])
	assert.Equal(t, "draft", rec.Before["ledger_entry_status"])
	assert.Equal(t, "needs_approval", rec.After["ledger_entry_status"])
	assert.Empty(t, rec.Before["linked_transaction_ids"])
	assert.Equal(t, []interface{}{txn.ID.String()}, rec.After["linked_transaction_ids"])
	assert.Equal(t, false, rec.Metadata["mark_reconciled"])
}

func TestCommitMatch_IsIdempotentOnLinks(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	txn := testutil.Transaction(t, store, "-10.00", "2024-03-10", "")
	entry := testutil.LedgerEntry(t, store, "10.00", "2024-03-10", "", models.LedgerApproved)

	req := CommitRequest{TransactionID: txn.ID.String(), LedgerEntryID: entry.ID.String()}
	_, err := svc.CommitMatch(ctx, req)
	require.NoError(t, err)
	_, err = svc.CommitMatch(ctx, req)
	require.NoError(t, err)

	stored, err := store.LedgerEntries.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LinkedTransactionIDs.Len())
	assert.Equal(t, models.LedgerApproved, stored.Status)
	assert.Equal(t, int64(3), stored.Version)

	// every invocation is an explicit action and is audited
	recs := auditFor(t, store, txn, entry)
	require.Len(t, recs, 2)
	assert.Equal(t, models.ActorSystem, recs[1].Actor)
	assert.Equal(t, []interface{}{txn.ID.String()}, recs[1].Before["linked_transaction_ids"])
	assert.Equal(t, []interface{}{txn.ID.String()}, recs[1].After["linked_transaction_ids"])
}

func TestCommitMatch_StatusNeverRegresses(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	txn := testutil.Transaction(t, store, "-10.00", "2024-03-10", "")
	entry := testutil.LedgerEntry(t, store, "10.00", "2024-03-10", "", models.LedgerNeedsApproval)

	res, err := svc.CommitMatch(ctx, CommitRequest{
		TransactionID:  txn.ID.String(),
		LedgerEntryID:  entry.ID.String(),
		MarkReconciled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionReconciled, res.Status)

	res, err = svc.CommitMatch(ctx, CommitRequest{
		TransactionID: txn.ID.String(),
		LedgerEntryID: entry.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionReconciled, res.Status)

	storedEntry, err := store.LedgerEntries.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerNeedsApproval, storedEntry.Status)

	recs := auditFor(t, store, txn, entry)
	require.Len(t, recs, 2)
	assert.Equal(t, models.AuditActionReconcile, recs[0].Action)
}

func TestCommitMatch_FanOutAllowed(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	txn := testutil.Transaction(t, store, "-20.00", "2024-03-10", "")
	first := testutil.LedgerEntry(t, store, "12.00", "2024-03-10", "", models.LedgerApproved)
	second := testutil.LedgerEntry(t, store, "8.00", "2024-03-10", "", models.LedgerApproved)

	for _, entry := range []*models.LedgerEntry{first, second} {
		_, err := svc.CommitMatch(ctx, CommitRequest{TransactionID: txn.ID.String(), LedgerEntryID: entry.ID.String()})
		require.NoError(t, err)
	}

	for _, entry := range []*models.LedgerEntry{first, second} {
		stored, err := store.LedgerEntries.GetByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, stored.LinkedTransactionIDs.Contains(txn.ID.String()))
	}
}

func TestCommitMatch_Errors(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	txn := testutil.Transaction(t, store, "-10.00", "2024-03-10", "")
	entry := testutil.LedgerEntry(t, store, "10.00", "2024-03-10", "", models.LedgerApproved)
	locked := testutil.LedgerEntry(t, store, "10.00", "2024-03-10", "", models.LedgerLocked)

	tests := []struct {
		name     string
		req      CommitRequest
		category apperror.Category
		code     string
	}{
		{"missing transaction id", CommitRequest{LedgerEntryID: entry.ID.String()}, apperror.CategoryValidation, "missing_transaction_id"},
		{"missing ledger entry id", CommitRequest{TransactionID: txn.ID.String()}, apperror.CategoryValidation, "missing_ledger_entry_id"},
		{"malformed id", CommitRequest{TransactionID: "abc", LedgerEntryID: entry.ID.String()}, apperror.CategoryValidation, "invalid_transaction_id"},
		{"unknown transaction", CommitRequest{TransactionID: uuid.NewString(), LedgerEntryID: entry.ID.String()}, apperror.CategoryNotFound, "transaction_not_found"},
		{"unknown ledger entry", CommitRequest{TransactionID: txn.ID.String(), LedgerEntryID: uuid.NewString()}, apperror.CategoryNotFound, "ledger_entry_not_found"},
		{"locked ledger entry", CommitRequest{TransactionID: txn.ID.String(), LedgerEntryID: locked.ID.String()}, apperror.CategoryConflict, "ledger_entry_locked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CommitMatch(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.category, apperror.CategoryOf(err))
			assert.Equal(t, tt.code, apperror.CodeOf(err))
		})
	}

	// nothing was written by the failed attempts
	stored, err := store.Transactions.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionImported, stored.Status)
	assert.Empty(t, auditFor(t, store, txn, locked))
}

func TestCommitMatch_IgnoredTransaction(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	txn := testutil.Transaction(t, store, "-10.00", "2024-03-10", "")
	entry := testutil.LedgerEntry(t, store, "10.00", "2024-03-10", "", models.LedgerApproved)
	_, err := svc.IgnoreTransaction(ctx, txn.ID.String(), "bob", "")
	require.NoError(t, err)

	_, err = svc.CommitMatch(ctx, CommitRequest{TransactionID: txn.ID.String(), LedgerEntryID: entry.ID.String()})

	assert.Equal(t, "transaction_ignored", apperror.CodeOf(err))
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	txn := testutil.Transaction(t, store, "-10.00", "2024-03-10", "")
	entry := testutil.LedgerEntry(t, store, "10.00", "2024-03-10", "", models.LedgerApproved)

	_, err := svc.ReconcileTransaction(ctx, txn.ID.String(), "carol", "")
	assert.Equal(t, "transaction_not_matched", apperror.CodeOf(err))

	_, err = svc.CommitMatch(ctx, CommitRequest{TransactionID: txn.ID.String(), LedgerEntryID: entry.ID.String()})
	require.NoError(t, err)

	_, err = svc.IgnoreTransaction(ctx, txn.ID.String(), "carol", "")
	assert.Equal(t, "invalid_status_transition", apperror.CodeOf(err))

	updated, err := svc.ReconcileTransaction(ctx, txn.ID.String(), "carol", "")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionReconciled, updated.Status)

	recs, err := store.Audit.List(ctx, repository.AuditFilter{EntityType: models.EntityTransaction, EntityID: txn.ID.String()})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "carol", recs[0].Actor)
	assert.Equal(t, "manual_reconcile", recs[0].Reason)
	assert.Equal(t, "matched", recs[0].Before["transaction_status"])
	assert.Equal(t, "reconciled", recs[0].After["transaction_status"])
}
