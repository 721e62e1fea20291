package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/models"
)

// Store groups the repositories that share one connection or database
// transaction.
type Store struct {
	db            *gorm.DB
	Transactions  *TransactionRepository
	LedgerEntries *LedgerEntryRepository
	Audit         *AuditRepository
	Runs          *AutoMatchRunRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Transactions:  NewTransactionRepository(db),
		LedgerEntries: NewLedgerEntryRepository(db),
		Audit:         NewAuditRepository(db),
		Runs:          NewAutoMatchRunRepository(db),
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside one database transaction. fn must only use the
// Store it is given; an error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource, id)
	}
	return apperror.Internal(err, "load "+resource)
}
