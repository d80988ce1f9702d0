package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerMovementType: "in" | "out" | "adjust"
type LedgerMovementType string

const (
	MovementIn     LedgerMovementType = "in"
	MovementOut    LedgerMovementType = "out"
	MovementAdjust LedgerMovementType = "adjust"
)

// LedgerReferenceType: "purchase" | "sale" | "manual_adjust"
type LedgerReferenceType string

const (
	ReferencePurchase     LedgerReferenceType = "purchase"
	ReferenceSale         LedgerReferenceType = "sale"
	ReferenceManualAdjust LedgerReferenceType = "manual_adjust"
)

// LedgerMovement is the append-only stock audit trail. Rows are NEVER updated
// or deleted — a cancellation writes an inverse "in" movement instead.
// Every change to Product.StockQuantity must produce exactly one row here,
// inside the same transaction.
type LedgerMovement struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MovementType  LedgerMovementType  `gorm:"type:varchar(10);not null"`
	ReferenceType LedgerReferenceType `gorm:"type:varchar(20);not null"`
	ProductID     uuid.UUID           `gorm:"type:uuid;index;not null"`
	// ReferenceID links to the originating StockEntry or Sale, when any.
	ReferenceID *uuid.UUID `gorm:"type:uuid"`
	// Qty is always positive; MovementType carries the sign, except for
	// "adjust" where Qty itself may be negative.
	Qty                   decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitCost              decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	UnitSalePriceSnapshot decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	UserID                uuid.UUID       `gorm:"type:uuid;not null"`
	Timestamp             time.Time       `gorm:"index;not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
	User    *User    `gorm:"foreignKey:UserID"`
}

// Delta returns the signed effect of the movement on stock quantity.
func (m *LedgerMovement) Delta() decimal.Decimal {
	if m.MovementType == MovementOut {
		return m.Qty.Neg()
	}
	return m.Qty
}
