package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-matching-backend/internal/apperror"
	"ledger-matching-backend/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

// CodeStatusConflict marks a status write whose expected prior status no
// longer holds.
const CodeStatusConflict = "transaction_status_conflict"

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Upsert inserts txn unless its SourceRef already exists, and returns the
// stored row either way. Re-ingestion never rewrites an existing row.
func (r *TransactionRepository) Upsert(ctx context.Context, txn *models.Transaction) (*models.Transaction, bool, error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Status == "" {
		txn.Status = models.TransactionImported
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "source_ref"}}, DoNothing: true}).
		Create(txn)
	if res.Error != nil {
		return nil, false, apperror.Internal(res.Error, "insert transaction")
	}
	if res.RowsAffected == 1 {
		return txn, true, nil
	}

	existing, err := r.GetBySourceRef(ctx, txn.SourceRef)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "transaction", id.String())
	}
	return &txn, nil
}

func (r *TransactionRepository) GetBySourceRef(ctx context.Context, ref string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "source_ref = ?", ref).Error; err != nil {
		return nil, notFoundOr(err, "transaction", ref)
	}
	return &txn, nil
}

// ListByStatus returns up to limit transactions in status, most recently
// posted first.
func (r *TransactionRepository) ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("posted_at DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, apperror.Internal(err, "list transactions")
	}
	return txns, nil
}

// UpdateStatus moves the transaction from status from to status to and
// writes nothing else. A row no longer in from is a status conflict, so a
// concurrent writer can never be overwritten with a lower status.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return apperror.Internal(res.Error, "update transaction status")
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict(CodeStatusConflict,
			"transaction "+id.String()+" is no longer "+string(from))
	}
	return nil
}

// DefaultListLimit is the page size when ListFilter.Limit is not set.
const DefaultListLimit = 50

// ListFilter narrows List.
type ListFilter struct {
	Status string
	Cursor string
	Search string
	Limit  int
}

// List pages through transactions ordered by id. The returned cursor is
// empty when there are no more rows.
func (r *TransactionRepository) List(ctx context.Context, f ListFilter) ([]models.Transaction, string, bool, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}

	var txns []models.Transaction
	query := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(f.Limit + 1)

	if f.Status != "" && f.Status != "all" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Cursor != "" {
		query = query.Where("id > ?", f.Cursor)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where(
			"LOWER(description) LIKE ? OR LOWER(counterparty) LIKE ? OR CAST(amount AS TEXT) LIKE ?",
			like, like, like,
		)
	}

	if err := query.Find(&txns).Error; err != nil {
		return nil, "", false, apperror.Internal(err, "list transactions")
	}

	hasMore := false
	var nextCursor string
	if len(txns) > f.Limit {
		hasMore = true
		txns = txns[:f.Limit]
		nextCursor = txns[f.Limit-1].ID.String()
	}
	return txns, nextCursor, hasMore, nil
}

type StatusStat struct {
	Count int64           `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

type Stats struct {
	Total       int64                 `json:"total"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
	ByStatus    map[string]StatusStat `json:"by_status"`
}

type statRow struct {
	Status string
	Count  int64
	Sum    decimal.Decimal
}

// Stats aggregates transaction counts and amounts per status.
func (r *TransactionRepository) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: map[string]StatusStat{}}
	var rows []statRow

	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return stats, apperror.Internal(err, "transaction stats")
	}

	for _, row := range rows {
		stats.Total += row.Count
		stats.TotalAmount = stats.TotalAmount.Add(row.Sum)
		stats.ByStatus[row.Status] = StatusStat{Count: row.Count, Sum: row.Sum}
	}
	return stats, nil
}
