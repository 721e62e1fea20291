package models

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

type LedgerStatus string

const (
	LedgerDraft         LedgerStatus = "draft"
	LedgerNeedsApproval LedgerStatus = "needs_approval"
	LedgerApproved      LedgerStatus = "approved"
	LedgerLocked        LedgerStatus = "locked"
)

// CandidateStatuses are the ledger statuses eligible for matching.
var CandidateStatuses = []LedgerStatus{LedgerNeedsApproval, LedgerApproved}

// Valid reports whether s is a known status.
func (s LedgerStatus) Valid() bool {
	switch s {
	case LedgerDraft, LedgerNeedsApproval, LedgerApproved, LedgerLocked:
		return true
	}
	return false
}

// AfterLink is the status an entry takes once a transaction is linked.
// Only drafts move; nothing is ever demoted.
func (s LedgerStatus) AfterLink() LedgerStatus {
	if s == LedgerDraft {
		return LedgerNeedsApproval
	}
	return s
}

// LedgerEntry is an internally recorded bookkeeping line.
type LedgerEntry struct {
	ID                   uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Direction            Direction                   `gorm:"not null" json:"direction"`
	GrossAmount          decimal.Decimal             `gorm:"type:numeric(14,2);index" json:"gross_amount"`
	NetAmount            decimal.Decimal             `gorm:"type:numeric(14,2)" json:"net_amount"`
	VATAmount            decimal.Decimal             `gorm:"column:vat_amount;type:numeric(14,2)" json:"vat_amount"`
	EntryDate            string                      `json:"entry_date"`               // YYYY-MM-DD when parseable, else as recorded
	EntryOn              *time.Time                  `gorm:"type:date;index" json:"-"` // nil when EntryDate is unparseable
	Description          string                      `json:"description"`
	Status               LedgerStatus                `gorm:"index;not null" json:"status"`
	LinkedTransactionIDs IDSet                       `json:"linked_transaction_ids"`
	EvidenceDocumentIDs  datatypes.JSONSlice[string] `json:"evidence_document_ids"`
	Version              int64                       `gorm:"not null;default:1" json:"version"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// entryDateLayouts are the formats accepted for ledger entry dates after
// YYYY-MM-DD.
var entryDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02.01.2006",
}

// ParseEntryDate reads a recorded entry date as a calendar date.
func ParseEntryDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, true
	}
	for _, layout := range entryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t.UTC()), true
		}
	}
	return civil.Date{}, false
}

// BeforeCreate rewrites a parseable entry date as YYYY-MM-DD and fills
// EntryOn, which candidate selection sorts by.
func (e *LedgerEntry) BeforeCreate(_ *gorm.DB) error {
	if d, ok := ParseEntryDate(e.EntryDate); ok {
		e.EntryDate = d.String()
		on := d.In(time.UTC)
		e.EntryOn = &on
	}
	return nil
}
