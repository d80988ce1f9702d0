package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockEntry is one receiving event (a purchase lot). Immutable once created.
// BatchCode is "LOTE-%06d" from a dedicated postgres sequence.
type StockEntry struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BatchCode      string    `gorm:"uniqueIndex;not null"`
	Date           time.Time `gorm:"index;not null"`
	Supplier       *string
	DocumentNumber *string
	Notes          *string
	// LogisticsUsd is the shared freight/import cost allocated across items
	// proportionally by purchase value.
	LogisticsUsd    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	ExchangeRateArs decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt       time.Time

	Items []StockEntryItem `gorm:"foreignKey:StockEntryID"`
	User  *User            `gorm:"foreignKey:UserID"`
}

// StockEntryItem snapshots the landed cost math of one lot line:
// FinalUnitCostUsd = PurchaseUnitCostUsd + LogisticsUnitCostUsd.
type StockEntryItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StockEntryID uuid.UUID `gorm:"type:uuid;index;not null"`
	ProductID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Qty          decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	PurchaseUnitCostUsd  decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	LogisticsUnitCostUsd decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	FinalUnitCostUsd     decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	FinalUnitCostArs     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	// Margin and sale price applied at ingestion time.
	MarginPercent     decimal.Decimal `gorm:"type:decimal(7,2);not null"`
	SalePriceSnapshot decimal.Decimal `gorm:"type:decimal(14,6);not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}
