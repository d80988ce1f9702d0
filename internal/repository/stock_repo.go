package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/model"
)

// StockRepository persists purchase lots and the append-only ledger.
// Ledger rows and entry items are write-once — there are no update methods.
type StockRepository interface {
	CreateEntryTx(tx *gorm.DB, e *model.StockEntry) error
	CreateEntryItemTx(tx *gorm.DB, item *model.StockEntryItem) error
	// NextLotNumberTx draws from the stock_entries_lot_seq sequence; retried
	// ingestions may leave numbering gaps but never duplicate a batch code.
	NextLotNumberTx(tx *gorm.DB) (int64, error)
	CreateLedgerTx(tx *gorm.DB, m *model.LedgerMovement) error
	FindEntryByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error)
	ListEntries(ctx context.Context, from, to time.Time) ([]model.StockEntry, error)
	ListLedger(ctx context.Context, from, to time.Time, productID *uuid.UUID) ([]model.LedgerMovement, error)
	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DB() *gorm.DB { return r.db }

func (r *stockRepo) CreateEntryTx(tx *gorm.DB, e *model.StockEntry) error {
	return tx.Create(e).Error
}

func (r *stockRepo) CreateEntryItemTx(tx *gorm.DB, item *model.StockEntryItem) error {
	return tx.Create(item).Error
}

func (r *stockRepo) NextLotNumberTx(tx *gorm.DB) (int64, error) {
	var num int64
	err := tx.Raw("SELECT nextval('stock_entries_lot_seq')").Scan(&num).Error
	return num, err
}

func (r *stockRepo) CreateLedgerTx(tx *gorm.DB, m *model.LedgerMovement) error {
	return tx.Create(m).Error
}

func (r *stockRepo) FindEntryByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := r.db.WithContext(ctx).Preload("Items.Product").First(&e, "id = ?", id).Error
	return &e, err
}

func (r *stockRepo) ListEntries(ctx context.Context, from, to time.Time) ([]model.StockEntry, error) {
	var entries []model.StockEntry
	err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Where("date >= ? AND date <= ?", from, to).
		Order("date DESC").
		Limit(200).
		Find(&entries).Error
	return entries, err
}

func (r *stockRepo) ListLedger(ctx context.Context, from, to time.Time, productID *uuid.UUID) ([]model.LedgerMovement, error) {
	var movements []model.LedgerMovement
	q := r.db.WithContext(ctx).
		Preload("Product").
		Where("timestamp >= ? AND timestamp <= ?", from, to)
	if productID != nil {
		q = q.Where("product_id = ?", *productID)
	}
	err := q.Order("timestamp DESC").Limit(1000).Find(&movements).Error
	return movements, err
}
