package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/models"
)

// CodeVersionConflict marks a write rejected by the version check.
const CodeVersionConflict = "ledger_entry_version_conflict"

type LedgerEntryRepository struct {
	db *gorm.DB
}

func NewLedgerEntryRepository(db *gorm.DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{db: db}
}

func (r *LedgerEntryRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Status == "" {
		entry.Status = models.LedgerDraft
	}
	if entry.LinkedTransactionIDs == nil {
		entry.LinkedTransactionIDs = models.IDSet{}
	}
	if entry.Version == 0 {
		entry.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return apperror.Internal(err, "insert ledger entry")
	}
	return nil
}

func (r *LedgerEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "ledger_entry", id.String())
	}
	return &entry, nil
}

// ListCandidates returns up to limit entries in the given statuses, most
// recent entry date first and undated entries last. Older entries beyond
// limit are left out.
func (r *LedgerEntryRepository) ListCandidates(ctx context.Context, statuses []models.LedgerStatus, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("CASE WHEN entry_on IS NULL THEN 1 ELSE 0 END").
		Order("entry_on DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, apperror.Internal(err, "list candidate ledger entries")
	}
	return entries, nil
}

// UpdateLinks writes the link list and status if the stored version still
// equals expectedVersion, bumping it by one. A stale version is a
// conflict.
func (r *LedgerEntryRepository) UpdateLinks(ctx context.Context, id uuid.UUID, expectedVersion int64, links models.IDSet, status models.LedgerStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"linked_transaction_ids": links,
			"status":                 status,
			"version":                expectedVersion + 1,
			"updated_at":             time.Now().UTC(),
		})
	if res.Error != nil {
		return apperror.Internal(res.Error, "update ledger entry links")
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict(CodeVersionConflict,
			"ledger entry "+id.String()+" was modified concurrently")
	}
	return nil
}
