// Package app wires the repositories and services shared by the server and
// the CLI.
package app

import (
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ledger-matching-backend/internal/config"
	"ledger-matching-backend/internal/repository"
	"ledger-matching-backend/internal/services/matching"
	"ledger-matching-backend/internal/services/reconciliation"
)

type App struct {
	Store      *repository.Store
	Generator  *matching.Generator
	Reconciler *reconciliation.ReconciliationService
}

func New(db *gorm.DB, cfg config.MatchingConfig, log zerolog.Logger) *App {
	store := repository.NewStore(db)
	gen := matching.NewGenerator(store.Transactions, store.LedgerEntries, cfg.Workers, log)
	svc := reconciliation.NewReconciliationService(store, gen, reconciliation.Options{
		CommitRetries:  cfg.CommitRetries,
		AutoMatchLimit: cfg.AutoMatchLimit,
	}, log)

	return &App{
		Store:      store,
		Generator:  gen,
		Reconciler: svc,
	}
}
