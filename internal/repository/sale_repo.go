package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weps89/lb-electronica/internal/model"
)

// SaleRepository persists sales and their frozen line items.
type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	// FindByIDForUpdateTx locks the sale row so collect/cancel can verify the
	// status is still pending inside the same transaction that flips it.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	SaveTx(tx *gorm.DB, s *model.Sale) error
	// CountForDayTx counts the sales dated within [dayStart, dayEnd] — the
	// basis of the day-scoped ticket sequence.
	CountForDayTx(tx *gorm.DB, dayStart, dayEnd time.Time) (int64, error)
	List(ctx context.Context, from, to time.Time, userID *uuid.UUID) ([]model.Sale, error)
	ListPending(ctx context.Context) ([]model.Sale, error)
	ListByUserAndDay(ctx context.Context, userID uuid.UUID, dayStart, dayEnd time.Time) ([]model.Sale, error)
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("User").
		Preload("Customer").
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	// Items are loaded separately — FOR UPDATE does not mix with joins.
	if err := tx.Where("sale_id = ?", id).Find(&s.Items).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) SaveTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Save(s).Error
}

func (r *saleRepo) CountForDayTx(tx *gorm.DB, dayStart, dayEnd time.Time) (int64, error) {
	var count int64
	err := tx.Model(&model.Sale{}).
		Where("date >= ? AND date <= ?", dayStart, dayEnd).
		Count(&count).Error
	return count, err
}

func (r *saleRepo) List(ctx context.Context, from, to time.Time, userID *uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	q := r.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("User").
		Where("date >= ? AND date <= ?", from, to)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	err := q.Order("date DESC").Limit(1000).Find(&sales).Error
	return sales, err
}

func (r *saleRepo) ListPending(ctx context.Context) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Preload("Customer").
		Where("status = ?", model.SalePending).
		Order("date ASC").
		Limit(500).
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) ListByUserAndDay(ctx context.Context, userID uuid.UUID, dayStart, dayEnd time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, dayStart, dayEnd).
		Order("date DESC").
		Find(&sales).Error
	return sales, err
}
