package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionImported   TransactionStatus = "imported"
	TransactionMatched    TransactionStatus = "matched"
	TransactionReconciled TransactionStatus = "reconciled"
	TransactionIgnored    TransactionStatus = "ignored"
)

// rank orders the match path. Ignored sits outside it.
func (s TransactionStatus) rank() int {
	switch s {
	case TransactionImported:
		return 0
	case TransactionMatched:
		return 1
	case TransactionReconciled:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	return s.rank() >= 0 || s == TransactionIgnored
}

// CanAdvanceTo reports whether moving from s to next is a forward step:
// imported -> matched -> reconciled, or imported -> ignored.
func (s TransactionStatus) CanAdvanceTo(next TransactionStatus) bool {
	if next == TransactionIgnored {
		return s == TransactionImported
	}
	if s == TransactionIgnored || next.rank() < 0 {
		return false
	}
	return next.rank() > s.rank()
}

// AtLeast reports whether s has reached other on the match path.
func (s TransactionStatus) AtLeast(other TransactionStatus) bool {
	if s.rank() < 0 || other.rank() < 0 {
		return s == other
	}
	return s.rank() >= other.rank()
}

// Transaction is an externally sourced payment event.
type Transaction struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Source              string            `gorm:"index;not null" json:"source"`
	AccountID           string            `json:"account_id"`
	SourceTransactionID string            `gorm:"not null" json:"source_transaction_id"`
	SourceRef           string            `gorm:"uniqueIndex;not null" json:"source_ref"`
	PostedAt            time.Time         `gorm:"index" json:"posted_at"`
	Amount              decimal.Decimal   `gorm:"type:numeric(14,2)" json:"amount"`
	Currency            string            `gorm:"size:3" json:"currency"`
	Counterparty        string            `json:"counterparty"`
	Description         string            `json:"description"`
	Status              TransactionStatus `gorm:"index;not null" json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// sourceRefEscaper keeps ':' unambiguous as the part separator.
var sourceRefEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// SourceRef builds the globally unique ingestion key. Parts containing ':'
// or '%' are percent-escaped, so distinct inputs never share a key.
func SourceRef(source, accountID, nativeID string) string {
	return strings.Join([]string{
		sourceRefEscaper.Replace(strings.ToLower(strings.TrimSpace(source))),
		sourceRefEscaper.Replace(strings.TrimSpace(accountID)),
		sourceRefEscaper.Replace(strings.TrimSpace(nativeID)),
	}, ":")
}
