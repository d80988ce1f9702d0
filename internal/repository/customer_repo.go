package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/model"
)

// CustomerRepository is the customer directory boundary. Sale creation uses
// it best-effort only.
type CustomerRepository interface {
	FindByDni(ctx context.Context, dni string) (*model.Customer, error)
	Create(ctx context.Context, c *model.Customer) error
	Update(ctx context.Context, c *model.Customer) error
	Search(ctx context.Context, term string, limit int) ([]model.Customer, error)
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) FindByDni(ctx context.Context, dni string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).Where("dni = ?", strings.TrimSpace(dni)).First(&c).Error
	return &c, err
}

func (r *customerRepo) Create(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *customerRepo) Update(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *customerRepo) Search(ctx context.Context, term string, limit int) ([]model.Customer, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	t := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	var customers []model.Customer
	err := r.db.WithContext(ctx).
		Where("active = true AND (LOWER(dni) LIKE ? OR LOWER(name) LIKE ? OR LOWER(phone) LIKE ?)", t, t, t).
		Order("name ASC, dni ASC").
		Limit(limit).
		Find(&customers).Error
	return customers, err
}
