package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EntityTransactionLedgerEntry = "transaction_ledger_entry"
	EntityTransaction            = "transaction"

	AuditActionMatch     = "match"
	AuditActionReconcile = "reconcile"
	AuditActionIgnore    = "ignore"
	AuditActionRepair    = "repair"

	ActorSystem = "system"
)

// AuditRecord is an append-only record of one matching decision.
type AuditRecord struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType string            `gorm:"index:idx_audit_entity;not null" json:"entity_type"`
	EntityID   string            `gorm:"index:idx_audit_entity;not null" json:"entity_id"`
	Action     string            `gorm:"index;not null" json:"action"`
	Actor      string            `gorm:"not null" json:"actor"`
	Reason     string            `json:"reason"`
	Before     datatypes.JSONMap `json:"before"`
	After      datatypes.JSONMap `json:"after"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	OccurredAt time.Time         `gorm:"index" json:"occurred_at"`
}

// MatchEntityID is the composite key of a transaction/ledger entry pair.
func MatchEntityID(transactionID, ledgerEntryID uuid.UUID) string {
	return transactionID.String() + ":" + ledgerEntryID.String()
}

// ParseMatchEntityID splits a composite key produced by MatchEntityID.
func ParseMatchEntityID(entityID string) (uuid.UUID, uuid.UUID, bool) {
	// uuid strings are 36 characters, so the separator sits at index 36
	if len(entityID) != 73 || entityID[36] != ':' {
		return uuid.Nil, uuid.Nil, false
	}
	txnID, err := uuid.Parse(entityID[:36])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	entryID, err := uuid.Parse(entityID[37:])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return txnID, entryID, true
}
