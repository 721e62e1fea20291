package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/models"
)

type AutoMatchRunRepository struct {
	db *gorm.DB
}

func NewAutoMatchRunRepository(db *gorm.DB) *AutoMatchRunRepository {
	return &AutoMatchRunRepository{db: db}
}

func (r *AutoMatchRunRepository) Create(ctx context.Context, run *models.AutoMatchRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return apperror.Internal(err, "insert auto-match run")
	}
	return nil
}

// UpdateProgress stores the running counters.
func (r *AutoMatchRunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, scanned, committed, skipped int) error {
	err := r.db.WithContext(ctx).
		Model(&models.AutoMatchRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"scanned":   scanned,
			"committed": committed,
			"skipped":   skipped,
		}).Error
	if err != nil {
		return apperror.Internal(err, "update auto-match run")
	}
	return nil
}

// Finish writes the final state of run.
func (r *AutoMatchRunRepository) Finish(ctx context.Context, run *models.AutoMatchRun) error {
	err := r.db.WithContext(ctx).
		Model(&models.AutoMatchRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"scanned":      run.Scanned,
			"committed":    run.Committed,
			"skipped":      run.Skipped,
			"status":       run.Status,
			"details":      run.Details,
			"error":        run.Error,
			"completed_at": run.CompletedAt,
		}).Error
	if err != nil {
		return apperror.Internal(err, "finish auto-match run")
	}
	return nil
}

func (r *AutoMatchRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AutoMatchRun, error) {
	var run models.AutoMatchRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "auto_match_run", id.String())
	}
	return &run, nil
}
