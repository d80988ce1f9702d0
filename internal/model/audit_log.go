package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is a human-readable, append-only record of mutating actions
// (SALE_CREATE, STOCK_ENTRY_CREATE, CASH_CLOSE, ...). Writes are best-effort:
// an audit failure is logged but never fails the originating operation.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID     *uuid.UUID `gorm:"type:uuid;index"`
	Action     string     `gorm:"index;not null"`
	EntityName *string
	EntityID   *string
	Details    *string
	CreatedAt  time.Time
}
