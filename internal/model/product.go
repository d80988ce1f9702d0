package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry for a single sellable item.
// CostPrice and SalePrice are kept in USD; ARS prices are always derived at
// read time by the pricing package, never stored.
// StockQuantity mirrors the net of all LedgerMovement rows for the product and
// is only mutated inside the same transaction that appends the movement.
type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InternalCode string    `gorm:"uniqueIndex;not null"`
	Barcode      *string   `gorm:"uniqueIndex"`
	Name         string    `gorm:"index;not null"`
	Category     *string
	Brand        *string
	Model        *string
	CostPrice    decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	// MarginPercent applied on top of CostPrice to derive SalePrice (USD).
	MarginPercent decimal.Decimal `gorm:"type:decimal(7,2);not null"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	// LastStockExchangeRateArs is the ARS/USD rate in effect at the last stock-in.
	// The pricing engine never lets the effective rate fall below the current one.
	LastStockExchangeRateArs decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	StockQuantity            decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	StockMinimum             int             `gorm:"not null;default:1"`
	Active                   bool            `gorm:"not null;default:true"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
}
