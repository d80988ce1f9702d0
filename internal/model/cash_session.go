package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashMovementType: "income" | "expense"
type CashMovementType string

const (
	CashIncome  CashMovementType = "income"
	CashExpense CashMovementType = "expense"
)

// CashSession tracks one operator's till between open and close. At most one
// session per operator may be open at any time. Closing fields are set once at
// close; the session is immutable afterwards.
type CashSession struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null"`
	OpenedAt      time.Time `gorm:"index;not null"`
	OpeningAmount decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ClosedAt      *time.Time
	CountedCash   *decimal.Decimal `gorm:"type:decimal(14,2)"`
	ExpectedCash  *decimal.Decimal `gorm:"type:decimal(14,2)"`
	Difference    *decimal.Decimal `gorm:"type:decimal(14,2)"`
	IsOpen        bool             `gorm:"index;not null;default:true"`

	Movements []CashMovement `gorm:"foreignKey:CashSessionID"`
	User      *User          `gorm:"foreignKey:UserID"`
}

// CashMovement is an immutable event in the till ledger. Sale receipts are
// tagged Category "VENTA:{method}" so non-cash receipts can be excluded from
// the physical-cash expectation at close.
type CashMovement struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CashSessionID uuid.UUID        `gorm:"type:uuid;index;not null"`
	Type          CashMovementType `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal  `gorm:"type:decimal(14,2);not null"`
	Reason        string           `gorm:"not null"`
	Category      *string          `gorm:"type:varchar(40)"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
}
