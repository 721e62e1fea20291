// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ledger-matching-backend/internal/models"
	"ledger-matching-backend/internal/repository"
)

// NewDB opens a migrated in-memory sqlite database. A single connection
// keeps the database alive for the whole test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

// NewStore returns a Store over a fresh database.
func NewStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewStore(NewDB(t))
}

// Date parses a YYYY-MM-DD date in UTC.
func Date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// Transaction inserts an imported transaction.
func Transaction(t *testing.T, store *repository.Store, amount string, posted string, description string) *models.Transaction {
	t.Helper()

	native := uuid.NewString()
	txn := &models.Transaction{
		Source:              "bank",
		AccountID:           "ACC-1",
		SourceTransactionID: native,
		SourceRef:           models.SourceRef("bank", "ACC-1", native),
		PostedAt:            Date(posted),
		Amount:              decimal.RequireFromString(amount),
		Currency:            "EUR",
		Description:         description,
		Status:              models.TransactionImported,
	}
	stored, _, err := store.Transactions.Upsert(context.Background(), txn)
	require.NoError(t, err)
	return stored
}

// LedgerEntry inserts a ledger entry with the given status.
func LedgerEntry(t *testing.T, store *repository.Store, gross string, date string, description string, status models.LedgerStatus) *models.LedgerEntry {
	t.Helper()

	entry := &models.LedgerEntry{
		Direction:   models.DirectionExpense,
		GrossAmount: decimal.RequireFromString(gross),
		NetAmount:   decimal.RequireFromString(gross),
		VATAmount:   decimal.Zero,
		EntryDate:   date,
		Description: description,
		Status:      status,
	}
	require.NoError(t, store.LedgerEntries.Create(context.Background(), entry))
	return entry
}
