package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/models"
)

// AuditRepository is append-only: it has no update or delete.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, rec *models.AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return apperror.Internal(err, "append audit record")
	}
	return nil
}

// AuditFilter narrows List. Empty fields match everything.
type AuditFilter struct {
	EntityType string
	EntityID   string
	Actions    []string
	Limit      int
}

// List returns matching records oldest first.
func (r *AuditRepository) List(ctx context.Context, f AuditFilter) ([]models.AuditRecord, error) {
	query := r.db.WithContext(ctx).Order("occurred_at ASC").Order("id ASC")
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		query = query.Where("entity_id = ?", f.EntityID)
	}
	if len(f.Actions) > 0 {
		query = query.Where("action IN ?", f.Actions)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var recs []models.AuditRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, apperror.Internal(err, "list audit records")
	}
	return recs, nil
}

func (r *AuditRepository) Count(ctx context.Context, entityType, entityID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.AuditRecord{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&n).Error
	if err != nil {
		return 0, apperror.Internal(err, "count audit records")
	}
	return n, nil
}
