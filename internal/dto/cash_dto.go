package dto

import "github.com/shopspring/decimal"

type OpenCashSessionRequest struct {
	OpeningAmount decimal.Decimal `json:"opening_amount" validate:"min=0"`
}

type CashMovementRequest struct {
	Type     string          `json:"type"     validate:"required,oneof=income expense"`
	Amount   decimal.Decimal `json:"amount"   validate:"required"`
	Reason   string          `json:"reason"   validate:"required,min=3"`
	Category *string         `json:"category"`
}

type CloseCashSessionRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash" validate:"min=0"`
}

// Responses

type CashMovementResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Category  *string         `json:"category"`
	CreatedAt string          `json:"created_at"`
}

type CashSessionResponse struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	OpenedAt      string                 `json:"opened_at"`
	OpeningAmount decimal.Decimal        `json:"opening_amount"`
	ClosedAt      *string                `json:"closed_at"`
	CountedCash   *decimal.Decimal       `json:"counted_cash"`
	ExpectedCash  *decimal.Decimal       `json:"expected_cash"`
	Difference    *decimal.Decimal       `json:"difference"`
	IsOpen        bool                   `json:"is_open"`
	Movements     []CashMovementResponse `json:"movements"`
}

// DayMovementResponse is one row of the merged "my day" feed: sale receipts
// and manual till movements, newest first.
type DayMovementResponse struct {
	Date          string          `json:"date"`
	Type          string          `json:"type"` // sale | income | expense
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

// MyDayResponse aggregates one operator's day for display only and never
// feeds back into reconciliation.
type MyDayResponse struct {
	SalesCount       int                        `json:"sales_count"`
	PendingSales     int                        `json:"pending_sales"`
	SalesTotal       decimal.Decimal            `json:"sales_total"`
	PaymentBreakdown map[string]decimal.Decimal `json:"payment_breakdown"`
	Incomes          decimal.Decimal            `json:"incomes"`
	Expenses         decimal.Decimal            `json:"expenses"`
	ClosureDiff      decimal.Decimal            `json:"closure_diff"`
	DayMovements     []DayMovementResponse      `json:"day_movements"`
	Sessions         []CashSessionResponse      `json:"sessions"`
}
