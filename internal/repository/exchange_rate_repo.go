package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/model"
)

// ExchangeRateRepository reads and appends the ARS/USD rate series.
// The series is append-only: no update or delete methods exist.
type ExchangeRateRepository interface {
	Latest(ctx context.Context) (*model.ExchangeRate, error)
	Create(ctx context.Context, rate *model.ExchangeRate) error
	List(ctx context.Context, limit int) ([]model.ExchangeRate, error)
}

type exchangeRateRepo struct{ db *gorm.DB }

func NewExchangeRateRepository(db *gorm.DB) ExchangeRateRepository {
	return &exchangeRateRepo{db: db}
}

func (r *exchangeRateRepo) Latest(ctx context.Context) (*model.ExchangeRate, error) {
	var rate model.ExchangeRate
	err := r.db.WithContext(ctx).Order("effective_date DESC").First(&rate).Error
	return &rate, err
}

func (r *exchangeRateRepo) Create(ctx context.Context, rate *model.ExchangeRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *exchangeRateRepo) List(ctx context.Context, limit int) ([]model.ExchangeRate, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	var rates []model.ExchangeRate
	err := r.db.WithContext(ctx).Order("effective_date DESC").Limit(limit).Find(&rates).Error
	return rates, err
}
