package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod: "cash" | "card" | "transfer"
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// SaleStatus is the sale state machine:
//
//	pending → paid | verified   (terminal)
//	pending → cancelled         (terminal)
//
// There is no transition out of paid/verified/cancelled.
type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SalePaid      SaleStatus = "paid"
	SaleVerified  SaleStatus = "verified"
	SaleCancelled SaleStatus = "cancelled"
)

// CanTransitionTo reports whether the state machine allows moving to next.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	if s != SalePending {
		return false
	}
	switch next {
	case SalePaid, SaleVerified, SaleCancelled:
		return true
	}
	return false
}

// Sale is a cart frozen at creation time. Item snapshots are never recomputed
// after the fact — historical profit reporting depends on them.
type Sale struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TicketNumber string    `gorm:"uniqueIndex;not null"`
	Date         time.Time `gorm:"index;not null"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null"`
	CustomerID   *uuid.UUID
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null"`
	Status        SaleStatus    `gorm:"type:varchar(20);index;not null;default:'pending'"`
	PaidAt        *time.Time
	ReceivedAmount *decimal.Decimal `gorm:"type:decimal(14,2)"`
	ChangeAmount   *decimal.Decimal `gorm:"type:decimal(14,2)"`
	// OperationNumber identifies the card voucher or bank transfer.
	OperationNumber *string
	IsVerified      bool `gorm:"not null;default:false"`
	CancelledAt     *time.Time
	CancelledReason *string
	Subtotal        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	GlobalDiscount  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	DiscountTotal   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Total           decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt       time.Time

	Items    []SaleItem `gorm:"foreignKey:SaleID"`
	User     *User      `gorm:"foreignKey:UserID"`
	Customer *Customer  `gorm:"foreignKey:CustomerID"`
}

// SaleItem snapshots unit price (ARS, post-pricing) and the product's USD cost
// and computed price at sale time.
type SaleItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID `gorm:"type:uuid;index;not null"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null"`
	Qty       decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CostPriceSnapshot decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	SalePriceSnapshot decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}
