package dto

import "github.com/shopspring/decimal"

// ProductFilter is bound from the query string of GET /v1/products.
type ProductFilter struct {
	Query  string `form:"q"`
	Active *bool  `form:"active"`
}

type CreateProductRequest struct {
	Barcode       *string         `json:"barcode"`
	Name          string          `json:"name"     validate:"required,min=2"`
	Category      *string         `json:"category"`
	Brand         *string         `json:"brand"`
	Model         *string         `json:"model"`
	CostPrice     decimal.Decimal `json:"cost_price"     validate:"min=0"`
	MarginPercent decimal.Decimal `json:"margin_percent" validate:"min=0"`
	StockMinimum  int             `json:"stock_minimum"  validate:"min=0"`
}

type UpdateProductRequest struct {
	Barcode       *string         `json:"barcode"`
	Name          string          `json:"name"     validate:"required,min=2"`
	Category      *string         `json:"category"`
	Brand         *string         `json:"brand"`
	Model         *string         `json:"model"`
	CostPrice     decimal.Decimal `json:"cost_price"     validate:"min=0"`
	MarginPercent decimal.Decimal `json:"margin_percent" validate:"min=0"`
	StockMinimum  int             `json:"stock_minimum"  validate:"min=0"`
}

// ProductResponse carries the catalog row plus the ARS prices derived for
// each payment method at the current exchange rate. Cost basis and margin are
// only populated for admin callers.
type ProductResponse struct {
	ID           string  `json:"id"`
	InternalCode string  `json:"internal_code"`
	Barcode      *string `json:"barcode"`
	Name         string  `json:"name"`
	Category     *string `json:"category"`
	Brand        *string `json:"brand"`
	Model        *string `json:"model"`

	CostPrice     *decimal.Decimal `json:"cost_price,omitempty"`
	MarginPercent *decimal.Decimal `json:"margin_percent,omitempty"`
	SalePriceUsd  *decimal.Decimal `json:"sale_price_usd,omitempty"`

	PriceCashArs     decimal.Decimal `json:"price_cash_ars"`
	PriceCardArs     decimal.Decimal `json:"price_card_ars"`
	PriceTransferArs decimal.Decimal `json:"price_transfer_ars"`

	StockQuantity decimal.Decimal `json:"stock_quantity"`
	StockMinimum  int             `json:"stock_minimum"`
	Active        bool            `json:"active"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// PriceCheckResponse is the public barcode price lookup payload (cacheable).
type PriceCheckResponse struct {
	ProductID        string          `json:"product_id"`
	Name             string          `json:"name"`
	PriceCashArs     decimal.Decimal `json:"price_cash_ars"`
	PriceCardArs     decimal.Decimal `json:"price_card_ars"`
	PriceTransferArs decimal.Decimal `json:"price_transfer_ars"`
}
