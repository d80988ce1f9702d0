package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via in-memory stubs.
// Methods with a Tx suffix run inside a caller-owned transaction.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	CreateTx(tx *gorm.DB, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindByIDForUpdateTx locks the product row (SELECT ... FOR UPDATE) so
	// concurrent sales against the same product serialize on it.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	// FindByNameFoldTx matches by case-insensitive exact name.
	FindByNameFoldTx(tx *gorm.DB, name string) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)
	// Update persists catalog and pricing columns. stock_quantity is excluded:
	// only AddStockTx moves it.
	Update(ctx context.Context, p *model.Product) error
	// UpdateCostBasisTx writes the pricing columns stamped at lot ingestion.
	// stock_quantity is excluded here too, so repeated lines for one product
	// in a lot cannot overwrite each other's increments.
	UpdateCostBasisTx(tx *gorm.DB, p *model.Product) error
	// AddStockTx applies a signed stock delta. For negative deltas the update
	// is guarded by stock_quantity >= |delta|; applied=false means the guard
	// rejected it (insufficient stock) and nothing changed.
	AddStockTx(tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (applied bool, err error)
	// NextInternalCodeTx derives the next "P-%06d" code from the highest
	// existing one.
	NextInternalCodeTx(tx *gorm.DB) (string, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("barcode = ? AND active = true", barcode).First(&p).Error
	return &p, err
}

func (r *productRepo) FindByNameFoldTx(tx *gorm.DB, name string) (*model.Product, error) {
	var p model.Product
	err := tx.Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&p).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, error) {
	var products []model.Product

	q := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.Query != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(filter.Query)) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(internal_code) LIKE ? OR barcode LIKE ?",
			term, term, "%"+strings.TrimSpace(filter.Query)+"%")
	}
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}

	err := q.Order("name ASC").Limit(500).Find(&products).Error
	return products, err
}

func (r *productRepo) ListLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("active = true AND stock_quantity <= stock_minimum").
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Model(p).
		Select("barcode", "name", "category", "brand", "model",
			"cost_price", "margin_percent", "sale_price", "stock_minimum").
		Updates(p).Error
}

func (r *productRepo) UpdateCostBasisTx(tx *gorm.DB, p *model.Product) error {
	return tx.Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"cost_price":                   p.CostPrice,
		"margin_percent":               p.MarginPercent,
		"sale_price":                   p.SalePrice,
		"last_stock_exchange_rate_ars": p.LastStockExchangeRateArs,
	}).Error
}

func (r *productRepo) AddStockTx(tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	q := tx.Model(&model.Product{}).Where("id = ?", id)
	if delta.IsNegative() {
		// Guard inside the UPDATE itself: the decrement only lands when
		// enough stock remains at write time.
		q = q.Where("stock_quantity >= ?", delta.Neg())
	}
	res := q.Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepo) NextInternalCodeTx(tx *gorm.DB) (string, error) {
	var lastCode string
	err := tx.Model(&model.Product{}).
		Select("internal_code").
		Order("internal_code DESC").
		Limit(1).
		Scan(&lastCode).Error
	if err != nil {
		return "", err
	}

	next := 1
	if strings.HasPrefix(lastCode, "P-") {
		if parsed, perr := strconv.Atoi(lastCode[2:]); perr == nil {
			next = parsed + 1
		}
	}
	return fmt.Sprintf("P-%06d", next), nil
}

func (r *productRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Update("active", active).Error
}
