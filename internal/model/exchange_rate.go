package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRate is an append-only time series of ARS per USD. The current rate
// is the most recent row; rows are never updated in place.
type ExchangeRate struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ArsPerUsd     decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	EffectiveDate time.Time       `gorm:"index;not null"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
}
