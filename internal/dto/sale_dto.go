package dto

import "github.com/shopspring/decimal"

type SaleItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Qty       decimal.Decimal `json:"qty"        validate:"required"`
	Discount  decimal.Decimal `json:"discount"   validate:"min=0"`
}

type CreateSaleRequest struct {
	Items         []SaleItemRequest      `json:"items"          validate:"required,min=1,dive"`
	PaymentMethod string                 `json:"payment_method" validate:"required,oneof=cash card transfer"`
	GlobalDiscount *decimal.Decimal      `json:"global_discount" validate:"omitempty,min=0"`
	Customer       *CustomerUpsertRequest `json:"customer"`
}

type CollectSaleRequest struct {
	SaleID         string                 `json:"sale_id"        validate:"required,uuid"`
	PaymentMethod  string                 `json:"payment_method" validate:"required,oneof=cash card transfer"`
	ReceivedAmount *decimal.Decimal       `json:"received_amount"`
	OperationNumber *string               `json:"operation_number"`
	Verified        bool                  `json:"verified"`
	Customer        *CustomerUpsertRequest `json:"customer"`
}

type CancelSaleRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// Responses

type SaleItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// SaleResponse is the frozen snapshot returned by create/collect/list.
type SaleResponse struct {
	ID             string             `json:"id"`
	TicketNumber   string             `json:"ticket_number"`
	Date           string             `json:"date"`
	Seller         string             `json:"seller,omitempty"`
	CustomerID     *string            `json:"customer_id"`
	PaymentMethod  string             `json:"payment_method"`
	Status         string             `json:"status"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	GlobalDiscount decimal.Decimal    `json:"global_discount"`
	DiscountTotal  decimal.Decimal    `json:"discount_total"`
	Total          decimal.Decimal    `json:"total"`
	ReceivedAmount *decimal.Decimal   `json:"received_amount,omitempty"`
	ChangeAmount   *decimal.Decimal   `json:"change_amount,omitempty"`
	OperationNumber *string           `json:"operation_number,omitempty"`
	Items          []SaleItemResponse `json:"items"`
}
