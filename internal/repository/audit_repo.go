package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/model"
)

// AuditRepository appends to the audit trail. Append-only by contract.
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
