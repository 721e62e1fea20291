package reconciliation

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/logger"
	"ledger-matching-backend/internal/models"
)

// TransactionInput is a normalized bank transaction from any source.
type TransactionInput struct {
	Source              string          `json:"source"`
	AccountID           string          `json:"account_id"`
	SourceTransactionID string          `json:"source_transaction_id"`
	PostedAt            string          `json:"posted_at"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	Counterparty        string          `json:"counterparty"`
	Description         string          `json:"description"`
}

// IngestTransaction stores the transaction unless one with the same source
// reference exists. The stored row is returned along with whether it was
// created.
func (s *ReconciliationService) IngestTransaction(ctx context.Context, in TransactionInput) (*models.Transaction, bool, error) {
	source := strings.TrimSpace(in.Source)
	account := strings.TrimSpace(in.AccountID)
	native := strings.TrimSpace(in.SourceTransactionID)
	switch {
	case source == "":
		return nil, false, apperror.Validation("missing_source", "source is required")
	case account == "":
		return nil, false, apperror.Validation("missing_account_id", "account_id is required")
	case native == "":
		return nil, false, apperror.Validation("missing_source_transaction_id", "source_transaction_id is required")
	}
	posted, err := parsePostedAt(in.PostedAt)
	if err != nil {
		return nil, false, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "EUR"
	}

	txn, created, err := s.store.Transactions.Upsert(ctx, &models.Transaction{
		Source:              strings.ToLower(source),
		AccountID:           account,
		SourceTransactionID: native,
		SourceRef:           models.SourceRef(source, account, native),
		PostedAt:            posted,
		Amount:              in.Amount.Round(2),
		Currency:            currency,
		Counterparty:        strings.TrimSpace(in.Counterparty),
		Description:         strings.TrimSpace(in.Description),
		Status:              models.TransactionImported,
	})
	if err != nil {
		return nil, false, err
	}

	log := logger.FromContext(ctx, s.log)
	log.Debug().
		Str("transaction_id", txn.ID.String()).
		Str("source_ref", txn.SourceRef).
		Bool("created", created).
		Msg("transaction ingested")
	return txn, created, nil
}

func parsePostedAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperror.Validation("missing_posted_at", "posted_at is required")
	}
	if d, err := civil.ParseDate(value); err == nil {
		return d.In(time.UTC), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperror.Validation("invalid_posted_at", "posted_at must be YYYY-MM-DD or RFC3339")
}

// LedgerEntryInput creates a ledger entry.
type LedgerEntryInput struct {
	Direction           models.Direction    `json:"direction"`
	GrossAmount         decimal.Decimal     `json:"gross_amount"`
	NetAmount           decimal.NullDecimal `json:"net_amount"`
	VATAmount           decimal.NullDecimal `json:"vat_amount"`
	EntryDate           string              `json:"entry_date"`
	Description         string              `json:"description"`
	Status              models.LedgerStatus `json:"status"`
	EvidenceDocumentIDs []string            `json:"evidence_document_ids"`
}

// CreateLedgerEntry records a new ledger entry. Net defaults to gross and
// VAT to gross minus net. The entry date is kept as given.
func (s *ReconciliationService) CreateLedgerEntry(ctx context.Context, in LedgerEntryInput) (*models.LedgerEntry, error) {
	if in.Direction != models.DirectionIncome && in.Direction != models.DirectionExpense {
		return nil, apperror.Validation("invalid_direction", "direction must be income or expense")
	}
	if in.Status == "" {
		in.Status = models.LedgerDraft
	}
	if !in.Status.Valid() {
		return nil, apperror.Validation("invalid_status", "unknown ledger entry status "+string(in.Status))
	}
	if in.GrossAmount.IsNegative() {
		return nil, apperror.Validation("invalid_gross_amount", "gross_amount must not be negative")
	}

	gross := in.GrossAmount.Round(2)
	net := gross
	if in.NetAmount.Valid {
		net = in.NetAmount.Decimal.Round(2)
	}
	vat := gross.Sub(net)
	if in.VATAmount.Valid {
		vat = in.VATAmount.Decimal.Round(2)
	}

	entry := &models.LedgerEntry{
		Direction:           in.Direction,
		GrossAmount:         gross,
		NetAmount:           net,
		VATAmount:           vat,
		EntryDate:           strings.TrimSpace(in.EntryDate),
		Description:         strings.TrimSpace(in.Description),
		Status:              in.Status,
		EvidenceDocumentIDs: in.EvidenceDocumentIDs,
	}
	if err := s.store.LedgerEntries.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
