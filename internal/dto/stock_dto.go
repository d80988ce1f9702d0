package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockEntryItemRequest is one lot line: either ProductID references an
// existing product, or ProductName creates-or-reuses one by name.
type StockEntryItemRequest struct {
	ProductID           *string          `json:"product_id"   validate:"omitempty,uuid"`
	ProductName         *string          `json:"product_name"`
	Category            *string          `json:"category"`
	Qty                 decimal.Decimal  `json:"qty"                    validate:"required"`
	PurchaseUnitCostUsd decimal.Decimal  `json:"purchase_unit_cost_usd" validate:"min=0"`
	MarginPercent       *decimal.Decimal `json:"margin_percent"         validate:"omitempty,min=0"`
}

type CreateStockEntryRequest struct {
	Date           time.Time               `json:"date"`
	Supplier       *string                 `json:"supplier"`
	DocumentNumber *string                 `json:"document_number"`
	Notes          *string                 `json:"notes"`
	LogisticsUsd   decimal.Decimal         `json:"logistics_usd"     validate:"min=0"`
	// ExchangeRateArs overrides the configured rate when set; values <= 1 fall back.
	ExchangeRateArs *decimal.Decimal       `json:"exchange_rate_ars"`
	Items           []StockEntryItemRequest `json:"items" validate:"required,min=1,dive"`
}

type StockOutRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Qty       decimal.Decimal `json:"qty"        validate:"required"`
	Reason    string          `json:"reason"     validate:"required,min=3"`
}

// AdjustStockRequest applies a signed correction (positive or negative).
type AdjustStockRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Qty       decimal.Decimal `json:"qty"        validate:"required"`
	Notes     string          `json:"notes"      validate:"required,min=3"`
}

// Responses

type StockEntryItemResponse struct {
	ProductID            string          `json:"product_id"`
	ProductName          string          `json:"product_name"`
	Qty                  decimal.Decimal `json:"qty"`
	PurchaseUnitCostUsd  decimal.Decimal `json:"purchase_unit_cost_usd"`
	LogisticsUnitCostUsd decimal.Decimal `json:"logistics_unit_cost_usd"`
	FinalUnitCostUsd     decimal.Decimal `json:"final_unit_cost_usd"`
	FinalUnitCostArs     decimal.Decimal `json:"final_unit_cost_ars"`
	MarginPercent        decimal.Decimal `json:"margin_percent"`
	SalePriceSnapshot    decimal.Decimal `json:"sale_price_snapshot"`
}

type StockEntryResponse struct {
	ID              string                   `json:"id"`
	BatchCode       string                   `json:"batch_code"`
	Date            string                   `json:"date"`
	Supplier        *string                  `json:"supplier"`
	DocumentNumber  *string                  `json:"document_number"`
	Notes           *string                  `json:"notes"`
	LogisticsUsd    decimal.Decimal          `json:"logistics_usd"`
	ExchangeRateArs decimal.Decimal          `json:"exchange_rate_ars"`
	TotalCostUsd    decimal.Decimal          `json:"total_cost_usd"`
	Items           []StockEntryItemResponse `json:"items"`
}

type LedgerMovementResponse struct {
	ID                    string          `json:"id"`
	MovementType          string          `json:"movement_type"`
	ReferenceType         string          `json:"reference_type"`
	ProductID             string          `json:"product_id"`
	ProductName           string          `json:"product_name"`
	ReferenceID           *string         `json:"reference_id"`
	Qty                   decimal.Decimal `json:"qty"`
	UnitCost              decimal.Decimal `json:"unit_cost"`
	UnitSalePriceSnapshot decimal.Decimal `json:"unit_sale_price_snapshot"`
	Timestamp             string          `json:"timestamp"`
}
